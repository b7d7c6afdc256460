package compiler

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/rule"
)

func sampleDocument() Document {
	return Document{
		Metadata: corpus.Metadata{
			Title:        "React Best Practices",
			Version:      "1.0.0",
			Organization: "Acme Engineering",
			Date:         "January 2026",
			Abstract:     "Performance guide for agents.",
			Variant:      "React 19",
			References:   []string{"https://react.dev"},
		},
		Sections: []rule.Section{
			{
				Number:       1,
				Title:        "Eliminating Waterfalls",
				Impact:       rule.ImpactCritical,
				Introduction: "Waterfalls are the top performance killer.",
				Rules: []rule.Rule{
					{
						ID:                "1.1",
						Subsection:        1,
						Title:             "Promise.all() for Independent Operations",
						Impact:            rule.ImpactCritical,
						ImpactDescription: "2-10x improvement",
						Explanation:       "Run independent work concurrently.",
						Examples: []rule.Example{
							{Label: "Incorrect", Description: "sequential", Code: "await a()\nawait b()", Language: "typescript"},
							{Label: "Correct", Code: "await Promise.all([a(), b()])", Language: "typescript", AdditionalText: "Both start at once."},
							{Label: "Note", AdditionalText: "Prose only."},
						},
						References: []string{"https://developer.mozilla.org/promise", "https://react.dev/learn"},
					},
				},
			},
			{
				Number: 2,
				Title:  "Bundle Size",
				Impact: rule.ImpactHigh,
				Rules: []rule.Rule{
					{ID: "2.1", Subsection: 1, Title: "Avoid Barrel Imports", Impact: rule.ImpactHigh, Explanation: "Import directly."},
				},
			},
		},
	}
}

func TestRenderer_Render(t *testing.T) {
	out := NewRenderer().Render(sampleDocument())

	expected := []string{
		"# React Best Practices (React 19)\n",
		"**Version 1.0.0**  \nAcme Engineering  \nJanuary 2026\n",
		"## Abstract\n\nPerformance guide for agents.\n",
		"## Table of Contents\n",
		"1. [Eliminating Waterfalls](#1-eliminating-waterfalls) - **CRITICAL**\n",
		"   - 1.1 [Promise.all() for Independent Operations](#11-promiseall-for-independent-operations)\n",
		"2. [Bundle Size](#2-bundle-size) - **HIGH**\n",
		"   - 2.1 [Avoid Barrel Imports](#21-avoid-barrel-imports)\n",
		"## 1. Eliminating Waterfalls\n\n**Impact: CRITICAL**\n\nWaterfalls are the top performance killer.\n",
		"### 1.1 Promise.all() for Independent Operations\n\n**Impact: CRITICAL (2-10x improvement)**\n\nRun independent work concurrently.\n",
		"**Incorrect (sequential):**\n\n```typescript\nawait a()\nawait b()\n```\n",
		"**Correct:**\n\n```typescript\nawait Promise.all([a(), b()])\n```\n\nBoth start at once.\n",
		"**Note:**\n\nProse only.\n",
		"Reference: [https://developer.mozilla.org/promise](https://developer.mozilla.org/promise), [https://react.dev/learn](https://react.dev/learn)\n",
		"## 2. Bundle Size\n\n**Impact: HIGH**\n\n### 2.1 Avoid Barrel Imports\n\n**Impact: HIGH**\n\nImport directly.\n",
		"## References\n\n1. [https://react.dev](https://react.dev)\n",
	}
	for _, want := range expected {
		assert.Contains(t, out, want)
	}

	// Table of contents precedes the body.
	assert.Less(t, strings.Index(out, "## Table of Contents"), strings.Index(out, "## 1. Eliminating Waterfalls"))
	// A prose-only example renders no code fence.
	assert.NotContains(t, out, "**Note:**\n\n```")
	// The rule without references has no reference line.
	assert.Equal(t, 1, strings.Count(out, "Reference: "))
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.False(t, strings.HasSuffix(out, "\n\n"))
}

func TestRenderer_Render_Defaults(t *testing.T) {
	out := NewRenderer().Render(Document{})

	assert.True(t, strings.HasPrefix(out, "# "+DefaultTitle+"\n"))
	assert.Contains(t, out, "**Version "+corpus.DefaultVersion+"**")
	assert.NotContains(t, out, "## Abstract")
	assert.NotContains(t, out, "## References")
}

func TestRenderer_RoundTrip(t *testing.T) {
	entries := []corpus.Entry{
		entry(2, "Memoize expensive work", rule.ImpactMedium),
		entry(1, "Defer await until needed", rule.ImpactHigh),
		entry(2, "Hoist static JSX", rule.ImpactLow),
		entry(1, "Cache: per-request (React.cache)", rule.ImpactHigh),
		entry(10, "Use toSorted() instead of sort()", rule.ImpactLow),
	}
	sections := NewAssembler(language.English).Assemble(entries, nil)

	out := NewRenderer().Render(Document{Sections: sections})

	headingRe := regexp.MustCompile(`(?m)^### (\d+\.\d+) (.+)$`)
	recovered := make(map[string]string)
	for _, m := range headingRe.FindAllStringSubmatch(out, -1) {
		_, dup := recovered[m[1]]
		require.False(t, dup, "duplicate id %s", m[1])
		recovered[m[1]] = m[2]
	}

	assert.Equal(t, ids(sections), recovered)
}

func TestRenderer_CodeFenceEscalates(t *testing.T) {
	doc := Document{Sections: []rule.Section{{
		Number: 1, Title: "S", Impact: rule.ImpactLow,
		Rules: []rule.Rule{{
			ID: "1.1", Title: "R", Impact: rule.ImpactLow,
			Examples: []rule.Example{{Label: "Usage", Code: "```md\nnested\n```", Language: "markdown"}},
		}},
	}}}

	out := NewRenderer().Render(doc)
	assert.Contains(t, out, "````markdown\n```md\nnested\n```\n````\n")
}

func TestAnchor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1. Eliminating Waterfalls", "1-eliminating-waterfalls"},
		{"1.1 Promise.all() for Independent Operations", "11-promiseall-for-independent-operations"},
		{"  Use   toSorted()  ", "use-tosorted"},
		{"Cache: per-request (React.cache)", "cache-per-request-reactcache"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Anchor(tt.in))
		})
	}
}

func TestDocumentTitle(t *testing.T) {
	assert.Equal(t, DefaultTitle, DocumentTitle(corpus.Metadata{}))
	assert.Equal(t, "Guide (v2)", DocumentTitle(corpus.Metadata{Title: "Guide", Variant: "v2"}))
}
