package convert

import (
	"github.com/spf13/cast"

	"Vista/dashboard"
)

// Format-rule regrouping. Document-side per-field rules become entries in
// the visualization's structured context payload under the "formats" key;
// the shapes below are the ones the visualization layer understands.
//
// Color rules map by palette type: "list" becomes a threshold config,
// "minMidMax" a two-stop gradient, "map" a value-to-color lookup table.

const contextFormatsKey = "formats"

func formatsToContext(rules []dashboard.FormatRule) []interface{} {
	if len(rules) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(rules))
	for _, rule := range rules {
		entry := map[string]interface{}{
			"field": rule.Field,
			"type":  rule.Type,
		}
		switch {
		case rule.Type == "color" && rule.Palette.Type == "list":
			entry["config"] = map[string]interface{}{
				"mode":       "threshold",
				"colors":     toAnySlice(rule.Palette.Colors),
				"thresholds": toAnyFloats(rule.Scale.Values),
			}
		case rule.Type == "color" && rule.Palette.Type == "minMidMax":
			entry["config"] = map[string]interface{}{
				"mode":   "gradient",
				"colors": toAnySlice([]string{rule.Palette.MinColor, rule.Palette.MaxColor}),
			}
		case rule.Type == "color" && rule.Palette.Type == "map":
			lookup := make(map[string]interface{}, len(rule.Palette.Lookup))
			for value, color := range rule.Palette.Lookup {
				lookup[value] = color
			}
			entry["config"] = map[string]interface{}{
				"mode":   "match",
				"lookup": lookup,
			}
		default:
			config := make(map[string]interface{}, len(rule.Options))
			for k, v := range rule.Options {
				config[k] = v
			}
			if len(config) > 0 {
				entry["config"] = config
			}
		}
		out = append(out, entry)
	}
	return out
}

func contextToFormats(ctx map[string]interface{}) []dashboard.FormatRule {
	raw, ok := ctx[contextFormatsKey]
	if !ok {
		return nil
	}
	entries, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	var rules []dashboard.FormatRule
	for _, e := range entries {
		entry, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		rule := dashboard.FormatRule{
			Field: cast.ToString(entry["field"]),
			Type:  cast.ToString(entry["type"]),
		}
		config, _ := entry["config"].(map[string]interface{})
		if rule.Type == "color" && config != nil {
			switch cast.ToString(config["mode"]) {
			case "threshold":
				rule.Palette = dashboard.PaletteSpec{
					Type:   "list",
					Colors: cast.ToStringSlice(config["colors"]),
				}
				rule.Scale = dashboard.ScaleSpec{
					Type:   "threshold",
					Values: toFloats(config["thresholds"]),
				}
			case "gradient":
				colors := cast.ToStringSlice(config["colors"])
				rule.Palette = dashboard.PaletteSpec{Type: "minMidMax"}
				if len(colors) > 0 {
					rule.Palette.MinColor = colors[0]
				}
				if len(colors) > 1 {
					rule.Palette.MaxColor = colors[len(colors)-1]
				}
			case "match":
				rule.Palette = dashboard.PaletteSpec{
					Type:   "map",
					Lookup: cast.ToStringMapString(config["lookup"]),
				}
			}
		} else if config != nil {
			rule.Options = cast.ToStringMapString(config)
		}
		if rule.Options == nil {
			rule.Options = make(map[string]string)
		}
		rules = append(rules, rule)
	}
	return rules
}

func toAnySlice(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func toAnyFloats(values []float64) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func toFloats(raw interface{}) []float64 {
	values, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(values))
	for _, v := range values {
		out = append(out, cast.ToFloat64(v))
	}
	return out
}
