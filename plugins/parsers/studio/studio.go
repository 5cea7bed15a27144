package studio

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"Vista"
	"Vista/convert"
	"Vista/dashboard"
	"Vista/plugins/parsers"
)

// schemaSource is the structural contract a studio definition must meet
// before decoding is attempted. It pins the types of the top-level keys and
// of the id-indexed sections; everything below stays open for forward
// compatibility.
const schemaSource = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "version": {"type": "string"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "dataSources": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "options": {"type": "object"}
        },
        "required": ["type"]
      }
    },
    "visualizations": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "dataSources": {"type": "object"}
        },
        "required": ["type"]
      }
    },
    "inputs": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "options": {"type": "object"}
        },
        "required": ["type"]
      }
    },
    "layout": {
      "type": "object",
      "properties": {
        "type": {"type": "string"},
        "structure": {"type": "array"},
        "globalInputs": {"type": "array"}
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("studio.schema.json", schemaSource)

type Parser struct {
	Log Vista.Logger `toml:"-"`
}

func (*Parser) Init() error {
	return nil
}

// Parse decodes a studio definition and lowers it into the document model.
func (p *Parser) Parse(src []byte) (*dashboard.Document, error) {
	model, err := p.ParseStudio(src)
	if err != nil {
		return nil, err
	}
	return convert.ToDocument(model), nil
}

// ParseStudio decodes a studio definition into the flat studio model
// without any lowering. The explicit version marker, when present, selects
// the decode strategy; only the 1.x line is understood.
func (p *Parser) ParseStudio(src []byte) (*dashboard.StudioModel, error) {
	if !gjson.ValidBytes(src) {
		return nil, &Vista.ParseError{Format: "studio", Msg: "source is not valid JSON"}
	}
	if v := gjson.GetBytes(src, "version"); v.Exists() {
		if !strings.HasPrefix(v.String(), "1") {
			return nil, &Vista.UnsupportedVersionError{Format: "studio", Version: v.String()}
		}
	}

	var instance interface{}
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, &Vista.ParseError{Format: "studio", Msg: "decoding JSON", Err: err}
	}
	if err := schema.Validate(instance); err != nil {
		return nil, &Vista.ParseError{Format: "studio", Msg: "schema validation", Err: err}
	}

	var wire wireModel
	if err := json.Unmarshal(src, &wire); err != nil {
		return nil, &Vista.ParseError{Format: "studio", Msg: "decoding JSON", Err: err}
	}
	return wire.toModel(), nil
}

type wireModel struct {
	Title          string                    `json:"title"`
	Description    string                    `json:"description"`
	DataSources    map[string]wireDataSource `json:"dataSources"`
	Visualizations map[string]wireViz        `json:"visualizations"`
	Inputs         map[string]wireInput      `json:"inputs"`
	Layout         wireLayout                `json:"layout"`
}

type wireDataSource struct {
	Type    string                 `json:"type"`
	Name    string                 `json:"name"`
	Options map[string]interface{} `json:"options"`
}

type wireViz struct {
	Type        string                 `json:"type"`
	Title       string                 `json:"title"`
	Options     map[string]interface{} `json:"options"`
	Context     map[string]interface{} `json:"context"`
	DataSources map[string]string      `json:"dataSources"`
}

type wireInput struct {
	Type    string                 `json:"type"`
	Title   string                 `json:"title"`
	Options map[string]interface{} `json:"options"`
}

type wireLayout struct {
	Type         string           `json:"type"`
	Structure    []wireLayoutItem `json:"structure"`
	GlobalInputs []string         `json:"globalInputs"`
}

type wireLayoutItem struct {
	Item     string             `json:"item"`
	Type     string             `json:"type"`
	Position dashboard.Position `json:"position"`
}

func (w *wireModel) toModel() *dashboard.StudioModel {
	m := &dashboard.StudioModel{
		Title:          w.Title,
		Description:    w.Description,
		DataSources:    make(map[string]*dashboard.DataSourceDef, len(w.DataSources)),
		Visualizations: make(map[string]*dashboard.VisualizationDef, len(w.Visualizations)),
		Inputs:         make(map[string]*dashboard.InputDef, len(w.Inputs)),
	}

	for id, ds := range w.DataSources {
		m.DataSources[id] = decodeDataSource(ds)
	}
	for id, viz := range w.Visualizations {
		m.Visualizations[id] = &dashboard.VisualizationDef{
			Type:        viz.Type,
			Title:       viz.Title,
			Options:     viz.Options,
			Context:     viz.Context,
			DataSources: viz.DataSources,
		}
	}
	for id, in := range w.Inputs {
		m.Inputs[id] = decodeInput(in)
	}

	m.Layout = dashboard.Layout{Type: w.Layout.Type}
	if m.Layout.Type == "" {
		m.Layout.Type = "absolute"
	}
	// Global inputs come first, stacked above the structured items.
	for i, id := range w.Layout.GlobalInputs {
		m.Layout.Items = append(m.Layout.Items, dashboard.LayoutItem{
			Item:     id,
			Type:     dashboard.LayoutItemInput,
			Position: dashboard.Position{X: i * convert.InputWidth, Y: 0, W: convert.InputWidth, H: convert.InputHeight},
		})
	}
	for _, item := range w.Layout.Structure {
		kind := item.Type
		if kind == "" {
			kind = dashboard.LayoutItemBlock
		}
		m.Layout.Items = append(m.Layout.Items, dashboard.LayoutItem{
			Item:     item.Item,
			Type:     kind,
			Position: item.Position,
		})
	}
	return m
}

func decodeDataSource(w wireDataSource) *dashboard.DataSourceDef {
	def := &dashboard.DataSourceDef{Type: w.Type, Name: w.Name}
	extra := make(map[string]interface{})
	for key, value := range w.Options {
		switch key {
		case "query":
			def.Options.Query = cast.ToString(value)
		case "extend":
			def.Options.Extend = cast.ToString(value)
		case "ref":
			def.Options.Ref = cast.ToString(value)
		case "earliest":
			def.Options.Earliest = cast.ToString(value)
		case "latest":
			def.Options.Latest = cast.ToString(value)
		case "refresh":
			def.Options.RefreshInterval = cast.ToString(value)
		case "queryParameters":
			if params, ok := value.(map[string]interface{}); ok {
				def.Options.Earliest = cast.ToString(params["earliest"])
				def.Options.Latest = cast.ToString(params["latest"])
			}
		default:
			extra[key] = value
		}
	}
	if len(extra) > 0 {
		def.Extra = extra
	}
	return def
}

func decodeInput(w wireInput) *dashboard.InputDef {
	def := &dashboard.InputDef{Type: w.Type, Title: w.Title}
	extra := make(map[string]interface{})
	for key, value := range w.Options {
		switch key {
		case "token":
			def.Options.Token = cast.ToString(value)
		case "defaultValue":
			def.Options.DefaultValue = cast.ToString(value)
		case "initialValue":
			def.Options.InitialValue = cast.ToString(value)
		case "prefix":
			def.Options.Prefix = cast.ToString(value)
		case "suffix":
			def.Options.Suffix = cast.ToString(value)
		case "searchWhenChanged":
			def.Options.SearchWhenChanged = cast.ToBool(value)
		case "query":
			def.Options.Query = cast.ToString(value)
		case "items":
			items, ok := value.([]interface{})
			if !ok {
				extra[key] = value
				continue
			}
			for _, raw := range items {
				entry, ok := raw.(map[string]interface{})
				if !ok {
					continue
				}
				def.Options.Items = append(def.Options.Items, dashboard.ChoiceItem{
					Label: cast.ToString(entry["label"]),
					Value: cast.ToString(entry["value"]),
				})
			}
		default:
			extra[key] = value
		}
	}
	if len(extra) > 0 {
		def.Extra = extra
	}
	return def
}

func init() {
	parsers.Add("studio", func() Vista.DashboardParser {
		return &Parser{}
	})
}
