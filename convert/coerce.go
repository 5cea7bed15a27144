package convert

import (
	"strconv"

	"github.com/spf13/cast"
)

// coerceOption parses a document-side string option into the narrowest
// type the literal matches: bool, then int, then float, string as the
// fallback. "1" is an int, not a bool.
func coerceOption(s string) interface{} {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

func coerceOptions(opts map[string]string) map[string]interface{} {
	if len(opts) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(opts))
	for k, v := range opts {
		out[k] = coerceOption(v)
	}
	return out
}

// stringifyOptions is the reverse direction: studio-side typed options
// become document-side strings.
func stringifyOptions(opts map[string]interface{}) map[string]string {
	out := make(map[string]string, len(opts))
	for k, v := range opts {
		out[k] = cast.ToString(v)
	}
	return out
}
