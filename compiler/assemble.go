package compiler

import (
	"cmp"
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/rule"
)

// Assembler groups merged rules into ordered, numbered sections.
// It is not safe for concurrent use.
type Assembler struct {
	collator *collate.Collator
}

// NewAssembler creates an assembler that sorts titles case-insensitively
// using the collation rules of tag.
func NewAssembler(tag language.Tag) *Assembler {
	return &Assembler{collator: collate.New(tag, collate.IgnoreCase)}
}

// Assemble builds the sections of one document. Only section numbers used by
// at least one rule appear in the output. Rules are copied; the entries'
// rules are not modified.
func (a *Assembler) Assemble(entries []corpus.Entry, sections rule.SectionIndex) []rule.Section {
	groups := make(map[int]*rule.Section)

	for _, e := range entries {
		s, ok := groups[e.Section]
		if !ok {
			s = newSection(e.Section, e.Rule, sections)
			groups[e.Section] = s
		}
		s.Rules = append(s.Rules, *e.Rule)
	}

	out := make([]rule.Section, 0, len(groups))
	for _, s := range groups {
		slices.SortStableFunc(s.Rules, func(x, y rule.Rule) int {
			return a.collator.CompareString(x.Title, y.Title)
		})
		for i := range s.Rules {
			s.Rules[i].Section = s.Number
			s.Rules[i].Subsection = i + 1
			s.Rules[i].ID = fmt.Sprintf("%d.%d", s.Number, i+1)
		}
		out = append(out, *s)
	}

	slices.SortFunc(out, func(x, y rule.Section) int {
		return cmp.Compare(x.Number, y.Number)
	})
	return out
}

// newSection resolves section metadata. A number without a metadata entry
// gets a synthesized title and the impact of its first rule.
func newSection(number int, first *rule.Rule, sections rule.SectionIndex) *rule.Section {
	meta, ok := sections[number]
	if !ok {
		meta.Impact = first.Impact
	}
	s := &rule.Section{
		Number:       number,
		Title:        meta.Title,
		Impact:       meta.Impact,
		Introduction: meta.Introduction,
	}
	if s.Title == "" {
		s.Title = fmt.Sprintf("Section %d", number)
	}
	if s.Impact == "" {
		s.Impact = rule.ImpactMedium
	}
	return s
}
