// Package validation checks rule files against the structural contract
// required before compilation. It collects every violation in one pass
// instead of stopping at the first.
package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/metrics"
	"github.com/c360studio/rulebook/rule"
	"github.com/c360studio/rulebook/rule/parser"
)

// Violation is one structural problem in one rule file.
type Violation struct {
	File    string `json:"file"`
	Corpus  string `json:"corpus"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Corpus, v.File, v.Message)
}

// Check is one structural requirement on a parsed rule.
type Check struct {
	Name    string
	Message func(r *rule.Rule) string // empty when the rule passes
}

// DefaultChecks are the requirements every rule must satisfy.
var DefaultChecks = []Check{
	{
		Name: "Title",
		Message: func(r *rule.Rule) string {
			if strings.TrimSpace(r.Title) == "" {
				return "missing title"
			}
			return ""
		},
	},
	{
		Name: "Explanation",
		Message: func(r *rule.Rule) string {
			if strings.TrimSpace(r.Explanation) == "" {
				return "missing explanation"
			}
			return ""
		},
	},
	{
		Name: "Code examples",
		Message: func(r *rule.Rule) string {
			if len(r.CodeExamples()) == 0 {
				return "missing code examples"
			}
			return ""
		},
	},
	{
		Name: "Polarity",
		Message: func(r *rule.Rule) string {
			for _, ex := range r.CodeExamples() {
				if ex.Polarity() != rule.PolarityNone {
					return ""
				}
			}
			return "missing bad/incorrect or good/correct example"
		},
	},
	{
		Name: "Impact",
		Message: func(r *rule.Rule) string {
			if r.Impact.Valid() {
				return ""
			}
			valid := make([]string, 0, len(rule.Impacts))
			for _, i := range rule.Impacts {
				valid = append(valid, string(i))
			}
			return fmt.Sprintf("invalid impact %q (valid: %s)", r.Impact, strings.Join(valid, ", "))
		},
	},
}

// CheckRule runs the default checks and returns every failure message.
func CheckRule(r *rule.Rule) []string {
	var msgs []string
	for _, c := range DefaultChecks {
		if msg := c.Message(r); msg != "" {
			msgs = append(msgs, msg)
		}
	}
	return msgs
}

// CorpusSummary counts the outcome for one corpus.
type CorpusSummary struct {
	Name       string `json:"name"`
	Files      int    `json:"files"`
	Violations int    `json:"violations"`
}

// Report aggregates violations across every checked corpus.
type Report struct {
	Violations []Violation     `json:"violations"`
	Corpora    []CorpusSummary `json:"corpora"`
}

// Valid reports whether no corpus had a violation.
func (r *Report) Valid() bool {
	return len(r.Violations) == 0
}

// Format renders the report as a human-readable per-file listing.
func (r *Report) Format() string {
	var sb strings.Builder
	for _, v := range r.Violations {
		sb.WriteString(v.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validator walks rule directories and checks each rule file.
type Validator struct {
	loader   *corpus.Loader
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewValidator creates a validator. recorder may be nil.
func NewValidator(loader *corpus.Loader, recorder *metrics.Recorder, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{loader: loader, recorder: recorder, logger: logger}
}

// ValidateCorpus parses every file in the source's rules directory and
// returns all violations plus the number of files checked. Parse failures
// and files whose section cannot be resolved against the source's own or
// the inherited section metadata become violations; only directory-level
// I/O errors are returned.
func (v *Validator) ValidateCorpus(src corpus.Source, inherited rule.SectionIndex) ([]Violation, int, error) {
	sections, err := v.loader.LoadSections(src.SectionsFile)
	if err != nil {
		return nil, 0, fmt.Errorf("validate %s: %w", src.Name, err)
	}

	parsed, err := v.loader.ParseAll(src.RulesDir)
	if err != nil {
		return nil, 0, fmt.Errorf("validate %s: %w", src.Name, err)
	}

	var violations []Violation
	for _, p := range parsed {
		file := filepath.Base(p.Path)

		if p.Err != nil {
			msg := p.Err.Error()
			var perr *parser.ParseError
			if errors.As(p.Err, &perr) {
				msg = perr.Err.Error()
			}
			violations = append(violations, Violation{File: file, Corpus: src.Name, Message: msg})
			continue
		}

		for _, msg := range CheckRule(p.Rule) {
			violations = append(violations, Violation{File: file, Corpus: src.Name, Message: msg})
		}
		if _, err := corpus.ResolveSection(p.Rule, sections, inherited); err != nil {
			violations = append(violations, Violation{File: file, Corpus: src.Name, Message: err.Error()})
		}
	}

	v.recorder.Violations(src.Name, len(violations))
	v.logger.Debug("Validated corpus",
		"corpus", src.Name,
		"files", len(parsed),
		"violations", len(violations))

	return violations, len(parsed), nil
}

// Run validates every source and aggregates the results. Sections of the
// source named "shared" are inherited by every other source. It never stops
// early because of violations.
func (v *Validator) Run(sources []corpus.Source) (*Report, error) {
	var inherited rule.SectionIndex
	for _, src := range sources {
		if src.Name != corpus.SharedName {
			continue
		}
		idx, err := v.loader.LoadSections(src.SectionsFile)
		if err != nil {
			return nil, fmt.Errorf("validate %s: %w", src.Name, err)
		}
		inherited = idx
	}

	report := &Report{}
	for _, src := range sources {
		violations, files, err := v.ValidateCorpus(src, inherited)
		if err != nil {
			return nil, err
		}
		report.Violations = append(report.Violations, violations...)
		report.Corpora = append(report.Corpora, CorpusSummary{
			Name:       src.Name,
			Files:      files,
			Violations: len(violations),
		})
	}
	return report, nil
}
