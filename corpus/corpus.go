// Package corpus loads rule corpora from disk and merges a shared corpus
// with a variant corpus.
package corpus

import (
	"errors"

	"github.com/c360studio/rulebook/rule"
)

// ErrNoSection is returned when a rule file cannot be assigned to a section.
var ErrNoSection = errors.New("cannot determine section")

// SharedName is the corpus name of the shared baseline.
const SharedName = "shared"

// Source locates one corpus on disk. All paths are explicit; nothing is
// resolved against the working directory.
type Source struct {
	// Name identifies the corpus in reports ("shared" or a variant key).
	Name string

	// RulesDir holds the rule files. A missing directory is an empty corpus.
	RulesDir string

	// SectionsFile is the section metadata document. Empty or absent means
	// no section metadata.
	SectionsFile string

	// MetadataFile is the document metadata JSON. Empty or absent means defaults.
	MetadataFile string
}

// Entry pairs a rule with the section it belongs to.
type Entry struct {
	Section int
	Rule    *rule.Rule
}

// Corpus is the loaded content of one Source.
type Corpus struct {
	Name     string
	Entries  []Entry
	Sections rule.SectionIndex
	Metadata Metadata

	// Errors holds per-file failures. They never abort a load.
	Errors []error

	// Files is the number of rule files found.
	Files int
}

// Rules returns the rules of the corpus in load order.
func (c *Corpus) Rules() []*rule.Rule {
	out := make([]*rule.Rule, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.Rule)
	}
	return out
}
