package token

import (
	"Vista/dashboard"
)

// Definition is the declared shape of a token: where its value comes from,
// how it is spliced into queries and which other tokens it depends on.
type Definition struct {
	Name              string
	Type              string
	DefaultValue      string
	InitialValue      string
	Prefix            string
	Suffix            string
	Choices           []dashboard.Choice
	DependsOn         []string
	SearchWhenChanged bool
}

// ExtractDefinitions collects one Definition per input declared in the
// document's fieldsets. DependsOn is the set of token names referenced by
// the input's own populating search or default expression.
func ExtractDefinitions(doc *dashboard.Document) []Definition {
	var defs []Definition
	for _, fs := range doc.Fieldsets {
		for _, in := range fs.Inputs {
			def := Definition{
				Name:              in.Token,
				Type:              in.Kind,
				DefaultValue:      in.DefaultValue,
				InitialValue:      in.InitialValue,
				Prefix:            in.Prefix,
				Suffix:            in.Suffix,
				Choices:           in.Choices,
				SearchWhenChanged: in.SearchWhenChanged,
			}
			deps := make(map[string]struct{})
			if in.Search != nil {
				for _, name := range in.Search.Tokens {
					deps[name] = struct{}{}
				}
				for _, name := range ExtractReferences(in.Search.Query) {
					deps[name] = struct{}{}
				}
			}
			for _, name := range ExtractReferences(in.DefaultValue) {
				deps[name] = struct{}{}
			}
			delete(deps, in.Token)
			for name := range deps {
				def.DependsOn = append(def.DependsOn, name)
			}
			sortStrings(def.DependsOn)
			defs = append(defs, def)
		}
	}
	return defs
}

// RunBehavior applies the auto-run decision rule for one input within its
// fieldset. When the fieldset has no submit button (SubmitOnEnter false)
// both run-on-load and run-on-change are forced true regardless of the
// declared flags; otherwise run-on-load follows the fieldset's AutoRun and
// run-on-change follows the input's SearchWhenChanged.
func RunBehavior(fs dashboard.Fieldset, in dashboard.InputSpec) (runOnLoad, runOnChange bool) {
	if !fs.SubmitOnEnter {
		return true, true
	}
	return fs.AutoRun, in.SearchWhenChanged
}
