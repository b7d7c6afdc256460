package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rulebook/rule"
)

func TestParseSections(t *testing.T) {
	content := `# Sections

This file defines all sections.

---

## 1. Eliminating Waterfalls (async)

**Impact:** CRITICAL
**Description:** Waterfalls are the #1 performance killer.
Each sequential await adds full network latency.

## 2. Bundle Size Optimization (bundle)

**Impact: HIGH**

Reducing initial bundle size improves Time to Interactive.

## 4. Untagged Section

Nothing but prose here.
`

	idx := ParseSections(content)
	require.Len(t, idx, 3)
	assert.Equal(t, []int{1, 2, 4}, idx.Numbers())

	assert.Equal(t, rule.SectionMeta{
		Title:        "Eliminating Waterfalls",
		Impact:       rule.ImpactCritical,
		Introduction: "Waterfalls are the #1 performance killer. Each sequential await adds full network latency.",
		Prefix:       "async",
	}, idx[1])

	assert.Equal(t, "Bundle Size Optimization", idx[2].Title)
	assert.Equal(t, rule.ImpactHigh, idx[2].Impact)
	assert.Equal(t, "Reducing initial bundle size improves Time to Interactive.", idx[2].Introduction)
	assert.Equal(t, "bundle", idx[2].Prefix)

	assert.Equal(t, "Untagged Section", idx[4].Title)
	assert.Equal(t, rule.ImpactMedium, idx[4].Impact)
	assert.Empty(t, idx[4].Prefix)
	assert.Equal(t, "Nothing but prose here.", idx[4].Introduction)
}

func TestParseSections_Defaults(t *testing.T) {
	idx := ParseSections("## 7. Bare\n")
	require.Contains(t, idx, 7)
	assert.Equal(t, rule.ImpactMedium, idx[7].Impact)
	assert.Empty(t, idx[7].Introduction)
}

func TestParseSections_Empty(t *testing.T) {
	assert.Empty(t, ParseSections(""))
	assert.Empty(t, ParseSections("# Title only\n\nno numbered headings\n"))
}

func TestFieldValue(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"**Impact:** HIGH", "HIGH", true},
		{"**Impact: LOW-MEDIUM**", "LOW-MEDIUM", true},
		{"**Impact**: MEDIUM", "MEDIUM", true},
		{"Impact: CRITICAL", "CRITICAL", true},
		{"Impactful: nope", "", false},
		{"Some impact: here", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := fieldValue(tt.line, "impact")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
