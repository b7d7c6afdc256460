// Package extract pulls labeled code examples out of rule files as raw
// fixtures for an external test generator.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/c360studio/rulebook/compiler"
	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/metrics"
	"github.com/c360studio/rulebook/rule"
	"github.com/c360studio/rulebook/rule/parser"
)

// Summary counts extracted test cases.
type Summary struct {
	Total int `json:"total"`
	Bad   int `json:"bad"`
	Good  int `json:"good"`

	// Unassigned counts rules extracted without an id because no section
	// could be resolved for their file.
	Unassigned int `json:"unassigned"`

	// Failures lists rule files that could not be parsed, as "[corpus] file: error".
	Failures []string `json:"failures,omitempty"`
}

// FromRule emits one test case per example that has code and a label
// classified as bad or good. Bad patterns are checked first.
func FromRule(r rule.Rule) []rule.TestCase {
	var cases []rule.TestCase
	for _, ex := range r.Examples {
		if !ex.HasCode() {
			continue
		}
		polarity := ex.Polarity()
		if polarity == rule.PolarityNone {
			continue
		}

		desc := ex.Description
		if desc == "" {
			desc = ex.Label
		}
		cases = append(cases, rule.TestCase{
			RuleID:      r.ID,
			RuleTitle:   r.Title,
			Type:        polarity,
			Code:        ex.Code,
			Language:    ex.Language,
			Description: desc,
			Corpus:      r.Corpus,
		})
	}
	return cases
}

// FromSections extracts test cases from assembled sections. When corpusName
// is not empty only rules loaded from that corpus are used.
func FromSections(sections []rule.Section, corpusName string) []rule.TestCase {
	var cases []rule.TestCase
	for _, s := range sections {
		for _, r := range s.Rules {
			if corpusName != "" && r.Corpus != corpusName {
				continue
			}
			cases = append(cases, FromRule(r)...)
		}
	}
	return cases
}

// Summarize counts test cases by polarity.
func Summarize(cases []rule.TestCase) Summary {
	s := Summary{Total: len(cases)}
	for _, c := range cases {
		switch c.Type {
		case rule.PolarityBad:
			s.Bad++
		case rule.PolarityGood:
			s.Good++
		}
	}
	return s
}

// Write stores test cases as an indented JSON array.
func Write(path string, cases []rule.TestCase) error {
	if cases == nil {
		cases = []rule.TestCase{}
	}
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal test cases: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write test cases: %w", err)
	}
	return nil
}

// Extractor runs the extract path across the shared corpus and every variant.
// Every rule file is parsed; assembly only contributes ids.
type Extractor struct {
	loader   *corpus.Loader
	compiler *compiler.Compiler
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewExtractor creates an extractor. recorder may be nil.
func NewExtractor(loader *corpus.Loader, c *compiler.Compiler, recorder *metrics.Recorder, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{loader: loader, compiler: c, recorder: recorder, logger: logger}
}

// Run extracts shared rules once, using ids from the shared-only assembly,
// then each variant's own rules using ids from its merged assembly. Rules
// without a resolvable section are still extracted, with an empty id.
func (e *Extractor) Run(sharedSrc corpus.Source, targets []compiler.Target) ([]rule.TestCase, Summary, error) {
	shared, err := e.compiler.LoadShared(sharedSrc)
	if err != nil {
		return nil, Summary{}, err
	}

	base, err := e.compiler.Build(shared, compiler.Target{Name: corpus.SharedName})
	if err != nil {
		return nil, Summary{}, err
	}

	var (
		cases   []rule.TestCase
		summary Summary
	)
	collect := func(src corpus.Source, sections []rule.Section) error {
		found, failures, unassigned, err := e.extractCorpus(src, sections)
		if err != nil {
			return err
		}
		cases = append(cases, found...)
		summary.Failures = append(summary.Failures, failures...)
		summary.Unassigned += unassigned
		e.logger.Debug("Extracted test cases", "corpus", src.Name, "cases", len(found))
		return nil
	}

	if err := collect(sharedSrc, base.Sections); err != nil {
		return nil, Summary{}, err
	}

	for _, t := range targets {
		if t.Source.RulesDir == "" {
			continue
		}
		b, err := e.compiler.Build(shared, t)
		if err != nil {
			return nil, Summary{}, err
		}

		src := t.Source
		if src.Name == "" {
			src.Name = t.Name
		}
		if err := collect(src, b.Sections); err != nil {
			return nil, Summary{}, err
		}
	}

	counts := Summarize(cases)
	summary.Total, summary.Bad, summary.Good = counts.Total, counts.Bad, counts.Good
	e.recorder.TestCases(string(rule.PolarityBad), summary.Bad)
	e.recorder.TestCases(string(rule.PolarityGood), summary.Good)

	return cases, summary, nil
}

// extractCorpus parses every rule file of src. Rules present in sections
// keep their assembled ids and order; the rest follow in file order without
// an id. It returns the cases, the parse failures and the number of rules
// without a section.
func (e *Extractor) extractCorpus(src corpus.Source, sections []rule.Section) ([]rule.TestCase, []string, int, error) {
	parsed, err := e.loader.ParseAll(src.RulesDir)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("extract %s: %w", src.Name, err)
	}

	cases := FromSections(sections, src.Name)
	assembled := make(map[string]bool)
	for _, s := range sections {
		for _, r := range s.Rules {
			if r.Corpus == src.Name {
				assembled[r.File] = true
			}
		}
	}

	var (
		failures   []string
		unassigned int
	)
	for _, p := range parsed {
		file := filepath.Base(p.Path)
		if p.Err != nil {
			e.logger.Warn("Skipping rule file", "corpus", src.Name, "file", file, "error", p.Err)
			failures = append(failures, fmt.Sprintf("[%s] %s: %v", src.Name, file, unwrapParse(p.Err)))
			continue
		}
		if assembled[p.Rule.File] {
			continue
		}

		p.Rule.Corpus = src.Name
		unassigned++
		e.logger.Warn("Extracting rule without a section", "corpus", src.Name, "file", file)
		cases = append(cases, FromRule(*p.Rule)...)
	}

	return cases, failures, unassigned, nil
}

// unwrapParse drops the file name a ParseError already carries.
func unwrapParse(err error) error {
	var perr *parser.ParseError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}
