package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/c360studio/rulebook/rule"
)

func TestMerge(t *testing.T) {
	shared := &Corpus{
		Name: SharedName,
		Entries: []Entry{
			{Section: 1, Rule: &rule.Rule{Title: "Use X"}},
			{Section: 2, Rule: &rule.Rule{Title: "Use Y"}},
		},
		Sections: rule.SectionIndex{
			1: {Title: "Shared One", Impact: rule.ImpactHigh},
			3: {Title: "Shared Three", Impact: rule.ImpactLow, Introduction: "old"},
		},
		Metadata: Metadata{Version: "1.0.0", Organization: "Acme", Abstract: "shared"},
		Files:    2,
	}
	variant := &Corpus{
		Name: "next",
		Entries: []Entry{
			{Section: 1, Rule: &rule.Rule{Title: "Use X"}},
		},
		Sections: rule.SectionIndex{
			3: {Title: "Variant Three", Impact: rule.ImpactCritical, Introduction: "new"},
		},
		Metadata: Metadata{Abstract: "variant", Variant: "Next"},
		Files:    1,
	}

	merged := Merge(shared, variant)

	assert.Equal(t, "next", merged.Name)
	assert.Len(t, merged.Entries, 3)
	assert.Same(t, shared.Entries[0].Rule, merged.Entries[0].Rule)
	assert.Same(t, variant.Entries[0].Rule, merged.Entries[2].Rule)
	assert.Equal(t, 3, merged.Files)

	assert.Equal(t, "Shared One", merged.Sections[1].Title)
	assert.Equal(t, rule.SectionMeta{Title: "Variant Three", Impact: rule.ImpactCritical, Introduction: "new"}, merged.Sections[3])

	assert.Equal(t, Metadata{Version: "1.0.0", Organization: "Acme", Abstract: "variant", Variant: "Next"}, merged.Metadata)

	// Inputs are untouched.
	assert.Equal(t, "Shared Three", shared.Sections[3].Title)
	assert.Len(t, shared.Entries, 2)
}

func TestMerge_Nil(t *testing.T) {
	shared := &Corpus{Name: SharedName, Entries: []Entry{{Section: 1, Rule: &rule.Rule{Title: "A"}}}}

	merged := Merge(shared, nil)
	assert.Equal(t, SharedName, merged.Name)
	assert.Len(t, merged.Entries, 1)

	merged = Merge(nil, &Corpus{Name: "v"})
	assert.Equal(t, "v", merged.Name)
	assert.Empty(t, merged.Entries)
	assert.NotNil(t, merged.Sections)
}
