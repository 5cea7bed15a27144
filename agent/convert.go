package agent

import (
	"encoding/json"

	"Vista/convert"
)

// ConvertSource parses raw in the named dialect (sniffed when empty) and
// returns the indented studio JSON document. Shared by the convert
// endpoint's CLI sibling.
func ConvertSource(raw []byte, from string) ([]byte, error) {
	parser, err := parserFor(from, raw)
	if err != nil {
		return nil, err
	}
	doc, err := parser.Parse(raw)
	if err != nil {
		return nil, err
	}
	m, err := convert.ToStudio(doc)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(&studioEnvelope{Version: "1.1", StudioModel: m}, "", "  ")
}
