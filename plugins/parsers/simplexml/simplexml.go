package simplexml

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"Vista"
	"Vista/dashboard"
	"Vista/plugins/parsers"
	"Vista/plugins/parsers/studio"
	"Vista/token"
)

// visualization element names of the legacy dialect, in the order they are
// probed within a panel.
var vizElements = []string{"chart", "table", "single", "event", "map", "viz", "html"}

// panel child elements with dedicated handling; anything else is an
// extension element and lands in Panel.Extra.
var knownPanelChildren = map[string]bool{
	"title": true, "search": true,
	"chart": true, "table": true, "single": true, "event": true,
	"map": true, "viz": true, "html": true,
}

type Parser struct {
	Log Vista.Logger `toml:"-"`

	studio studio.Parser
}

func (p *Parser) Init() error {
	return p.studio.Init()
}

// Parse decodes a markup dashboard. Version "1" (or absent) selects the
// legacy element walk; version "2" decodes the studio JSON embedded in the
// definition block. Anything else is an unsupported version, never a guess.
func (p *Parser) Parse(src []byte) (*dashboard.Document, error) {
	root, err := decodeTree(src)
	if err != nil {
		return nil, err
	}
	if root.name() != "dashboard" && root.name() != "form" {
		return nil, &Vista.ParseError{
			Format: "simplexml",
			Msg:    "root element must be <dashboard> or <form>, got <" + root.name() + ">",
		}
	}

	switch v := root.attr("version"); v {
	case "", "1", "1.0", "1.1":
		return p.parseLegacy(root)
	case "2":
		return p.parseEmbeddedStudio(root)
	default:
		return nil, &Vista.UnsupportedVersionError{Format: "simplexml", Version: v}
	}
}

// parseEmbeddedStudio pulls the studio JSON out of the typed wrapper
// element and hands it to the studio decoder.
func (p *Parser) parseEmbeddedStudio(root *node) (*dashboard.Document, error) {
	def := root.child("definition")
	if def == nil {
		return nil, &Vista.ParseError{
			Format: "simplexml",
			Msg:    "version 2 dashboard has no <definition> block",
		}
	}
	raw := strings.TrimSpace(def.Content)
	if !gjson.Valid(raw) {
		return nil, &Vista.ParseError{
			Format: "simplexml",
			Msg:    "definition block does not contain valid JSON",
		}
	}
	return p.studio.Parse([]byte(raw))
}

func (p *Parser) parseLegacy(root *node) (*dashboard.Document, error) {
	doc := &dashboard.Document{}

	for _, attr := range root.Attrs {
		switch attr.Name.Local {
		case "version":
		default:
			if doc.Extra == nil {
				doc.Extra = make(map[string]string)
			}
			doc.Extra[attr.Name.Local] = attr.Value
		}
	}

	for i := range root.Nodes {
		child := &root.Nodes[i]
		switch child.name() {
		case "label":
			doc.Title = strings.TrimSpace(child.Content)
		case "description":
			doc.Description = strings.TrimSpace(child.Content)
		case "fieldset":
			doc.Fieldsets = append(doc.Fieldsets, p.parseFieldset(child))
		case "row":
			row, err := p.parseRow(child)
			if err != nil {
				return nil, err
			}
			doc.Rows = append(doc.Rows, row)
		default:
			// Extension element at the document level, keep it around.
			if doc.Extra == nil {
				doc.Extra = make(map[string]string)
			}
			doc.Extra[child.name()] = strings.TrimSpace(child.Content)
		}
	}
	return doc, nil
}

func (p *Parser) parseFieldset(n *node) dashboard.Fieldset {
	fs := dashboard.Fieldset{
		SubmitOnEnter: parseBool(n.attr("submitButton"), false),
		AutoRun:       parseBool(n.attr("autoRun"), false),
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.name() != "input" {
			continue
		}
		fs.Inputs = append(fs.Inputs, p.parseInput(child))
	}
	return fs
}

func (p *Parser) parseInput(n *node) dashboard.InputSpec {
	in := dashboard.InputSpec{
		Kind:              n.attr("type"),
		Token:             n.attr("token"),
		SearchWhenChanged: parseBool(n.attr("searchWhenChanged"), false),
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch child.name() {
		case "label":
			in.Label = strings.TrimSpace(child.Content)
		case "default":
			in.DefaultValue = strings.TrimSpace(child.Content)
		case "initialValue":
			in.InitialValue = strings.TrimSpace(child.Content)
		case "prefix":
			in.Prefix = child.Content
		case "suffix":
			in.Suffix = child.Content
		case "choice":
			in.Choices = append(in.Choices, dashboard.Choice{
				Value: child.attr("value"),
				Label: strings.TrimSpace(child.Content),
			})
		case "change":
			in.ChangeHandler = renderInner(child)
		case "search":
			spec := parseSearch(child)
			in.Search = &spec
		}
	}
	return in
}

func (p *Parser) parseRow(n *node) (dashboard.Row, error) {
	var row dashboard.Row
	for i := range n.Nodes {
		child := &n.Nodes[i]
		if child.name() != "panel" {
			continue
		}
		panel, err := p.parsePanel(child)
		if err != nil {
			return row, err
		}
		row.Panels = append(row.Panels, panel)
	}
	return row, nil
}

func (p *Parser) parsePanel(n *node) (dashboard.Panel, error) {
	panel := dashboard.Panel{}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch {
		case child.name() == "title":
			panel.Title = strings.TrimSpace(child.Content)
		case child.name() == "search":
			spec := parseSearch(child)
			if err := spec.Validate(); err != nil {
				return panel, &Vista.ParseError{Format: "simplexml", Msg: "panel search", Err: err}
			}
			panel.Search = &spec
		case isVizElement(child.name()):
			panel.Visualization = p.parseVisualization(child)
			// A search may live inside the visualization element.
			if s := child.child("search"); s != nil && panel.Search == nil {
				spec := parseSearch(s)
				if err := spec.Validate(); err != nil {
					return panel, &Vista.ParseError{Format: "simplexml", Msg: "panel search", Err: err}
				}
				panel.Search = &spec
			}
		case !knownPanelChildren[child.name()]:
			if panel.Extra == nil {
				panel.Extra = make(map[string]string)
			}
			panel.Extra[child.name()] = strings.TrimSpace(child.Content)
		}
	}
	if panel.Visualization.Kind == "" {
		panel.Visualization.Kind = "table"
	}
	return panel, nil
}

func (p *Parser) parseVisualization(n *node) dashboard.VisualizationSpec {
	viz := dashboard.VisualizationSpec{
		Kind:    n.name(),
		Options: make(map[string]string),
	}
	if viz.Kind == "viz" {
		if t := n.attr("type"); t != "" {
			viz.Kind = t
		}
	}
	if viz.Kind == "html" {
		viz.Options["html"] = strings.TrimSpace(n.Content)
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch child.name() {
		case "option":
			viz.Options[child.attr("name")] = strings.TrimSpace(child.Content)
		case "format":
			viz.FormatRules = append(viz.FormatRules, parseFormat(child))
		}
	}
	return viz
}

// parseFormat flattens one per-field "format" sub-element into a FormatRule.
func parseFormat(n *node) dashboard.FormatRule {
	rule := dashboard.FormatRule{
		Field:   n.attr("field"),
		Type:    n.attr("type"),
		Options: make(map[string]string),
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch child.name() {
		case "colorPalette":
			rule.Palette = parsePalette(child)
		case "scale":
			rule.Scale = parseScale(child)
		case "option":
			rule.Options[child.attr("name")] = strings.TrimSpace(child.Content)
		}
	}
	return rule
}

func parsePalette(n *node) dashboard.PaletteSpec {
	palette := dashboard.PaletteSpec{
		Type:     n.attr("type"),
		MinColor: n.attr("minColor"),
		MidColor: n.attr("midColor"),
		MaxColor: n.attr("maxColor"),
	}
	content := strings.TrimSpace(n.Content)
	if content == "" {
		return palette
	}
	switch palette.Type {
	case "list":
		for _, c := range gjson.Parse(content).Array() {
			palette.Colors = append(palette.Colors, c.String())
		}
	case "map":
		palette.Lookup = make(map[string]string)
		gjson.Parse(content).ForEach(func(key, value gjson.Result) bool {
			palette.Lookup[key.String()] = value.String()
			return true
		})
	}
	return palette
}

func parseScale(n *node) dashboard.ScaleSpec {
	scale := dashboard.ScaleSpec{Type: n.attr("type")}
	content := strings.TrimSpace(n.Content)
	if content == "" {
		return scale
	}
	if strings.HasPrefix(content, "[") {
		for _, v := range gjson.Parse(content).Array() {
			scale.Values = append(scale.Values, v.Float())
		}
		return scale
	}
	for _, part := range strings.Split(content, ",") {
		if f, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil {
			scale.Values = append(scale.Values, f)
		}
	}
	return scale
}

func parseSearch(n *node) dashboard.SearchSpec {
	spec := dashboard.SearchSpec{
		ID:   n.attr("id"),
		Base: n.attr("base"),
		Ref:  n.attr("ref"),
	}
	for i := range n.Nodes {
		child := &n.Nodes[i]
		switch child.name() {
		case "query":
			spec.Query = strings.TrimSpace(child.Content)
		case "earliest":
			spec.Earliest = strings.TrimSpace(child.Content)
		case "latest":
			spec.Latest = strings.TrimSpace(child.Content)
		case "refresh":
			spec.Refresh = strings.TrimSpace(child.Content)
		}
	}
	spec.Tokens = token.ExtractReferences(spec.Query)
	return spec
}

func isVizElement(name string) bool {
	for _, v := range vizElements {
		if name == v {
			return true
		}
	}
	return false
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}

// node is a tolerant element-tree representation: unknown elements decode
// fine and keep their raw attributes and content.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n *node) name() string {
	return n.XMLName.Local
}

func (n *node) attr(name string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func (n *node) child(name string) *node {
	for i := range n.Nodes {
		if n.Nodes[i].name() == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

func decodeTree(src []byte) (*node, error) {
	var root node
	decoder := xml.NewDecoder(bytes.NewReader(src))
	decoder.Strict = true
	if err := decoder.Decode(&root); err != nil {
		perr := &Vista.ParseError{Format: "simplexml", Msg: "malformed document", Err: err}
		var syntax *xml.SyntaxError
		if errors.As(err, &syntax) {
			perr.Line = syntax.Line
			perr.Msg = "malformed document"
		}
		return nil, perr
	}
	return &root, nil
}

// renderInner flattens an element's children into a compact textual form,
// used for change handlers whose structure the core does not interpret.
func renderInner(n *node) string {
	var parts []string
	for i := range n.Nodes {
		child := &n.Nodes[i]
		var b strings.Builder
		b.WriteString(child.name())
		for _, a := range child.Attrs {
			b.WriteString(" " + a.Name.Local + "=" + a.Value)
		}
		if c := strings.TrimSpace(child.Content); c != "" {
			b.WriteString("=" + c)
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "; ")
}

func init() {
	parsers.Add("simplexml", func() Vista.DashboardParser {
		return &Parser{}
	})
}
