package token

import (
	"fmt"
	"regexp"
	"strings"
)

// ResolutionError reports tokens that were left unresolved because neither
// a runtime value nor a default was available. The query is still usable:
// the literal token text stays in place and the caller decides whether to
// dispatch anyway.
type ResolutionError struct {
	Names []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unresolved tokens: %s", strings.Join(e.Names, ", "))
}

// Resolve substitutes token values into query. Explicit runtime values from
// the catalog are applied first; definition defaults apply only to tokens
// still present afterwards. Each substitution wraps the value in the
// definition's prefix and suffix. The returned error, when non-nil, is a
// *ResolutionError and the returned query is still valid to dispatch.
func (c *Catalog) Resolve(query string, defs []Definition) (string, error) {
	refs := ExtractReferences(query)
	if len(refs) == 0 {
		return query, nil
	}

	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	// Runtime values first.
	for _, name := range refs {
		value, ok := c.Value(name)
		if !ok {
			continue
		}
		query = substitute(query, name, wrap(value, byName[name]))
	}

	// Defaults for whatever survived the first pass.
	var unresolved []string
	for _, name := range ExtractReferences(query) {
		def, ok := byName[name]
		if !ok || def.DefaultValue == "" {
			unresolved = append(unresolved, name)
			continue
		}
		query = substitute(query, name, wrap(def.DefaultValue, def))
	}

	if len(unresolved) > 0 {
		return query, &ResolutionError{Names: unresolved}
	}
	return query, nil
}

func wrap(value string, def Definition) string {
	return def.Prefix + value + def.Suffix
}

// substitute replaces every $name$ occurrence, including filtered forms
// like $name|s$; filters are dropped at substitution time.
func substitute(query, name, value string) string {
	re := regexp.MustCompile(`\$` + regexp.QuoteMeta(name) + `(\|\w+)?\$`)
	return re.ReplaceAllLiteralString(query, value)
}
