// Package compiler assembles merged rule corpora into numbered sections and
// renders one canonical markdown document per variant.
package compiler

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/metrics"
	"github.com/c360studio/rulebook/rule"
)

// ErrUnknownVariant is returned when a requested variant is not configured.
var ErrUnknownVariant = errors.New("unknown variant")

// Target is one variant to compile.
type Target struct {
	// Name is the variant key.
	Name string

	// Label is shown in the document title. Empty keeps the metadata's label.
	Label string

	// Source locates the variant corpus. An empty RulesDir compiles the
	// shared corpus alone.
	Source corpus.Source

	// Output is the path of the compiled document.
	Output string
}

// SelectTargets returns all targets when name is empty, or the single
// target called name.
func SelectTargets(targets []Target, name string) ([]Target, error) {
	if name == "" {
		return targets, nil
	}
	for _, t := range targets {
		if t.Name == name {
			return []Target{t}, nil
		}
	}

	valid := make([]string, 0, len(targets))
	for _, t := range targets {
		valid = append(valid, t.Name)
	}
	sort.Strings(valid)
	return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnknownVariant, name, strings.Join(valid, ", "))
}

// Options configures a Compiler.
type Options struct {
	// Title names the document when metadata does not.
	Title string

	// Language selects the collation used to sort rule titles.
	Language language.Tag

	// Now returns the build time. Defaults to time.Now.
	Now func() time.Time
}

// Compiler runs the compile path: load, merge, assemble, render.
type Compiler struct {
	loader    *corpus.Loader
	assembler *Assembler
	renderer  *Renderer
	recorder  *metrics.Recorder
	opts      Options
	logger    *slog.Logger
}

// New creates a compiler. recorder may be nil.
func New(loader *corpus.Loader, recorder *metrics.Recorder, opts Options, logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Language == language.Und {
		opts.Language = language.English
	}
	return &Compiler{
		loader:    loader,
		assembler: NewAssembler(opts.Language),
		renderer:  NewRenderer(),
		recorder:  recorder,
		opts:      opts,
		logger:    logger,
	}
}

// Build is an assembled, not yet rendered, document.
type Build struct {
	Corpus   *corpus.Corpus
	Sections []rule.Section
	Metadata corpus.Metadata
}

// Rules counts the rules in all sections.
func (b *Build) Rules() int {
	n := 0
	for _, s := range b.Sections {
		n += len(s.Rules)
	}
	return n
}

// Result summarizes one compiled variant.
type Result struct {
	Variant  string
	Output   string
	Sections int
	Rules    int
	Skipped  int
}

// LoadShared loads the shared corpus.
func (c *Compiler) LoadShared(src corpus.Source) (*corpus.Corpus, error) {
	shared, err := c.loader.Load(src, nil)
	if err != nil {
		return nil, err
	}
	c.observe(shared)
	return shared, nil
}

// Build loads the target's variant corpus, merges it over shared and
// assembles the sections.
func (c *Compiler) Build(shared *corpus.Corpus, t Target) (*Build, error) {
	var variant *corpus.Corpus
	if t.Source.RulesDir != "" || t.Source.SectionsFile != "" || t.Source.MetadataFile != "" {
		src := t.Source
		if src.Name == "" {
			src.Name = t.Name
		}
		v, err := c.loader.Load(src, shared.Sections)
		if err != nil {
			return nil, err
		}
		c.observe(v)
		variant = v
	}

	merged := corpus.Merge(shared, variant)
	merged.Name = t.Name

	meta := merged.Metadata
	if t.Label != "" {
		meta.Variant = t.Label
	}
	if meta.Title == "" {
		meta.Title = c.opts.Title
	}

	return &Build{
		Corpus:   merged,
		Sections: c.assembler.Assemble(merged.Entries, merged.Sections),
		Metadata: meta.WithDefaults(c.opts.Now()),
	}, nil
}

// Render renders an assembled build.
func (c *Compiler) Render(b *Build) string {
	return c.renderer.Render(Document{Metadata: b.Metadata, Sections: b.Sections})
}

// Compile builds, renders and writes one target. Bad rule files are logged
// and skipped; they never fail the compile.
func (c *Compiler) Compile(shared *corpus.Corpus, t Target) (*Result, error) {
	b, err := c.Build(shared, t)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", t.Name, err)
	}

	if err := writeFile(t.Output, c.Render(b)); err != nil {
		return nil, fmt.Errorf("write %s: %w", t.Name, err)
	}

	res := &Result{
		Variant:  t.Name,
		Output:   t.Output,
		Sections: len(b.Sections),
		Rules:    b.Rules(),
		Skipped:  len(b.Corpus.Errors),
	}
	c.recorder.Sections(t.Name, res.Sections)

	c.logger.Info("Compiled document",
		"variant", res.Variant,
		"output", res.Output,
		"sections", res.Sections,
		"rules", res.Rules,
		"skipped", res.Skipped)

	return res, nil
}

// CompileAll loads the shared corpus once and compiles every target.
func (c *Compiler) CompileAll(sharedSrc corpus.Source, targets []Target) ([]*Result, error) {
	shared, err := c.LoadShared(sharedSrc)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(targets))
	for _, t := range targets {
		res, err := c.Compile(shared, t)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (c *Compiler) observe(corp *corpus.Corpus) {
	c.recorder.RulesLoaded(corp.Name, len(corp.Entries))
	c.recorder.ParseFailures(corp.Name, len(corp.Errors))
}

// writeFile writes content to path, creating parent directories. Concurrent
// writers to the same path race; the last one wins.
func writeFile(path, content string) error {
	if path == "" {
		return errors.New("no output path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
