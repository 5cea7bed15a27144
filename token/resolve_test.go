package token

import (
	"testing"

	"github.com/stretchr/testify/require"

	"Vista/dashboard"
)

func TestExtractReferences(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "no tokens",
			text:     "index=main sourcetype=access_combined",
			expected: nil,
		},
		{
			name:     "single token",
			text:     "index=main host=$host$",
			expected: []string{"host"},
		},
		{
			name:     "repeated and multiple",
			text:     "index=$idx$ host=$host$ OR host=$host$",
			expected: []string{"host", "idx"},
		},
		{
			name:     "filtered reference",
			text:     "search $query|s$",
			expected: []string{"query"},
		},
		{
			name:     "dotted name",
			text:     "earliest=$time.earliest$",
			expected: []string{"time.earliest"},
		},
		{
			name:     "lone dollar signs",
			text:     "price is 5$ or 6$",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, ExtractReferences(tt.text))
		})
	}
}

func TestResolveRuntimeOverridesDefault(t *testing.T) {
	defs := []Definition{{Name: "host", DefaultValue: "web01"}}
	catalog := NewCatalog()
	catalog.SetValue("host", "web02")

	resolved, err := catalog.Resolve("index=main host=$host$", defs)
	require.NoError(t, err)
	require.Equal(t, "index=main host=web02", resolved)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	defs := []Definition{{Name: "host", DefaultValue: "web01"}}
	catalog := NewCatalog()

	resolved, err := catalog.Resolve("index=main host=$host$", defs)
	require.NoError(t, err)
	require.Equal(t, "index=main host=web01", resolved)
}

func TestResolveKeepsLiteralWhenUnresolvable(t *testing.T) {
	catalog := NewCatalog()

	resolved, err := catalog.Resolve("index=main host=$host$", nil)
	require.Equal(t, "index=main host=$host$", resolved)

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Equal(t, []string{"host"}, resErr.Names)
}

func TestResolveAppliesPrefixSuffix(t *testing.T) {
	defs := []Definition{{Name: "host", DefaultValue: "web01", Prefix: `host="`, Suffix: `"`}}
	catalog := NewCatalog()
	catalog.SetValue("host", "web02")

	resolved, err := catalog.Resolve("index=main $host$", defs)
	require.NoError(t, err)
	require.Equal(t, `index=main host="web02"`, resolved)
}

func TestResolveNoTokensShortCircuits(t *testing.T) {
	catalog := NewCatalog()
	query := "index=main | stats count"
	resolved, err := catalog.Resolve(query, nil)
	require.NoError(t, err)
	require.Equal(t, query, resolved)
}

func TestRunBehavior(t *testing.T) {
	tests := []struct {
		name              string
		submitOnEnter     bool
		autoRun           bool
		searchWhenChanged bool
		wantLoad          bool
		wantChange        bool
	}{
		{"no submit button forces both", false, false, false, true, true},
		{"no submit button ignores declared flags", false, true, false, true, true},
		{"submit button follows autorun off", true, false, false, false, false},
		{"submit button follows autorun on", true, true, false, true, false},
		{"submit button follows searchWhenChanged", true, false, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := dashboard.Fieldset{SubmitOnEnter: tt.submitOnEnter, AutoRun: tt.autoRun}
			in := dashboard.InputSpec{SearchWhenChanged: tt.searchWhenChanged}
			load, change := RunBehavior(fs, in)
			require.Equal(t, tt.wantLoad, load)
			require.Equal(t, tt.wantChange, change)
		})
	}
}

func TestExtractDefinitions(t *testing.T) {
	doc := &dashboard.Document{
		Fieldsets: []dashboard.Fieldset{{
			SubmitOnEnter: true,
			Inputs: []dashboard.InputSpec{
				{
					Kind:         "dropdown",
					Token:        "host",
					DefaultValue: "web01",
					Prefix:       `host="`,
					Suffix:       `"`,
					Choices:      []dashboard.Choice{{Value: "web01", Label: "Web 01"}},
					Search: &dashboard.SearchSpec{
						Query:  "index=$idx$ | stats count by host",
						Tokens: []string{"idx"},
					},
					SearchWhenChanged: true,
				},
				{
					Kind:         "text",
					Token:        "idx",
					DefaultValue: "main",
				},
			},
		}},
	}

	defs := ExtractDefinitions(doc)
	require.Len(t, defs, 2)

	require.Equal(t, "host", defs[0].Name)
	require.Equal(t, "dropdown", defs[0].Type)
	require.Equal(t, []string{"idx"}, defs[0].DependsOn)
	require.True(t, defs[0].SearchWhenChanged)

	require.Equal(t, "idx", defs[1].Name)
	require.Empty(t, defs[1].DependsOn)
}

func TestCatalogChangeNotification(t *testing.T) {
	catalog := NewCatalog()

	var notified []string
	catalog.OnChange(func(name, value string) {
		notified = append(notified, name+"="+value)
	})

	catalog.SetValue("host", "web01")
	catalog.SetValue("host", "web01") // unchanged, no second notification
	catalog.SetValue("host", "web02")

	require.Equal(t, []string{"host=web01", "host=web02"}, notified)

	v, ok := catalog.Value("host")
	require.True(t, ok)
	require.Equal(t, "web02", v)

	snap := catalog.Snapshot()
	require.Equal(t, map[string]string{"host": "web02"}, snap)
}
