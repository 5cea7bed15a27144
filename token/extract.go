package token

import (
	"regexp"
	"sort"
	"strings"
)

// referencePattern matches $name$ placeholders. Names may carry a filter
// suffix ("$host|s$"); the filter is not part of the token name.
var referencePattern = regexp.MustCompile(`\$([A-Za-z_][\w.]*)(\|[\w]+)?\$`)

// ExtractReferences returns the sorted set of token names referenced in
// text. Both parsers and the resolver use it; an empty result lets the
// resolver skip substitution entirely.
func ExtractReferences(text string) []string {
	if !strings.Contains(text, "$") {
		return nil
	}
	seen := make(map[string]struct{})
	for _, m := range referencePattern.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasReferences reports whether text contains at least one token reference.
func HasReferences(text string) bool {
	return len(ExtractReferences(text)) > 0
}
