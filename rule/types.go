// Package rule defines the domain types shared by the rulebook compiler:
// rules, their labeled examples, numbered sections and extracted test cases.
package rule

import (
	"slices"
	"strings"
)

// Impact is the severity label attached to rules and sections.
type Impact string

// Impact levels, ordered from most to least severe.
const (
	ImpactCritical   Impact = "CRITICAL"
	ImpactHigh       Impact = "HIGH"
	ImpactMediumHigh Impact = "MEDIUM-HIGH"
	ImpactMedium     Impact = "MEDIUM"
	ImpactLowMedium  Impact = "LOW-MEDIUM"
	ImpactLow        Impact = "LOW"
)

// Impacts lists every valid impact level.
var Impacts = []Impact{
	ImpactCritical,
	ImpactHigh,
	ImpactMediumHigh,
	ImpactMedium,
	ImpactLowMedium,
	ImpactLow,
}

// ParseImpact normalizes a raw impact string. Unknown values are returned
// upper-cased but otherwise untouched so validation can report them.
func ParseImpact(s string) Impact {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.Join(strings.Fields(s), "-")
	return Impact(s)
}

// Valid reports whether the impact is one of the known levels.
func (i Impact) Valid() bool {
	return slices.Contains(Impacts, i)
}

func (i Impact) String() string {
	return string(i)
}

// Example is one labeled illustration inside a rule.
type Example struct {
	// Label is the verbatim label text, e.g. "Incorrect".
	Label string `json:"label"`

	// Description is the optional parenthetical qualifier of the label.
	Description string `json:"description,omitempty"`

	// Code is the fenced code block following the label. Empty for prose-only examples.
	Code string `json:"code,omitempty"`

	// Language tags the code block.
	Language string `json:"language,omitempty"`

	// AdditionalText is prose following the code block.
	AdditionalText string `json:"additional_text,omitempty"`
}

// HasCode reports whether the example carries a non-blank code block.
func (e Example) HasCode() bool {
	return strings.TrimSpace(e.Code) != ""
}

// Rule is one documented guideline.
type Rule struct {
	// ID is the dotted identifier "<section>.<ordinal>", assigned at assembly.
	ID string `json:"id,omitempty"`

	// Subsection is the ordinal component of ID.
	Subsection int `json:"subsection,omitempty"`

	Title             string    `json:"title"`
	Impact            Impact    `json:"impact"`
	ImpactDescription string    `json:"impact_description,omitempty"`
	Tags              []string  `json:"tags,omitempty"`
	Explanation       string    `json:"explanation"`
	Examples          []Example `json:"examples"`
	References        []string  `json:"references,omitempty"`

	// Section is the section number declared in the rule's frontmatter, zero when unset.
	Section int `json:"section,omitempty"`

	// File is the base name of the file the rule was parsed from.
	File string `json:"file,omitempty"`

	// Corpus names the corpus (shared or a variant) the rule was loaded from.
	Corpus string `json:"corpus,omitempty"`
}

// CodeExamples returns the examples that carry code, in original order.
func (r *Rule) CodeExamples() []Example {
	var out []Example
	for _, ex := range r.Examples {
		if ex.HasCode() {
			out = append(out, ex)
		}
	}
	return out
}

// SectionMeta is the metadata of one numbered section as declared in a
// section metadata document.
type SectionMeta struct {
	Title        string `json:"title"`
	Impact       Impact `json:"impact"`
	Introduction string `json:"introduction,omitempty"`

	// Prefix is the filename prefix that assigns rule files to this section.
	Prefix string `json:"prefix,omitempty"`
}

// SectionIndex maps section numbers to their metadata.
type SectionIndex map[int]SectionMeta

// Numbers returns the section numbers in ascending order.
func (idx SectionIndex) Numbers() []int {
	nums := make([]int, 0, len(idx))
	for n := range idx {
		nums = append(nums, n)
	}
	slices.Sort(nums)
	return nums
}

// ByPrefix returns the section number whose prefix matches, ignoring case.
// When several sections share a prefix the lowest number wins.
func (idx SectionIndex) ByPrefix(prefix string) (int, bool) {
	if prefix == "" {
		return 0, false
	}
	for _, n := range idx.Numbers() {
		if strings.EqualFold(idx[n].Prefix, prefix) {
			return n, true
		}
	}
	return 0, false
}

// Section is a numbered grouping of rules in a compiled document.
type Section struct {
	Number       int    `json:"number"`
	Title        string `json:"title"`
	Impact       Impact `json:"impact"`
	Introduction string `json:"introduction,omitempty"`
	Rules        []Rule `json:"rules"`
}

// TestCase is one fixture extracted from a labeled example.
type TestCase struct {
	RuleID      string   `json:"ruleId"`
	RuleTitle   string   `json:"ruleTitle"`
	Type        Polarity `json:"type"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Description string   `json:"description"`
	Corpus      string   `json:"corpus,omitempty"`
}
