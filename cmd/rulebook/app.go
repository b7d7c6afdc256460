package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/c360studio/rulebook/compiler"
	"github.com/c360studio/rulebook/config"
	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/extract"
	"github.com/c360studio/rulebook/metrics"
	"github.com/c360studio/rulebook/validation"
)

// defaultTarget names the single target compiled when no variants are configured.
const defaultTarget = "default"

// App wires configuration to the compile, validate and extract paths.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	stdout   io.Writer
	stderr   io.Writer
	recorder *metrics.Recorder
	loader   *corpus.Loader
	compiler *compiler.Compiler
	now      func() time.Time
}

// NewApp creates an application from a validated configuration.
func NewApp(cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) *App {
	if logger == nil {
		logger = slog.Default()
	}

	recorder := metrics.NewRecorder()
	loader := corpus.NewLoader(corpus.Options{
		Include:         cfg.Rules.Include,
		Exclude:         cfg.Rules.Exclude,
		DefaultLanguage: cfg.Rules.DefaultLanguage,
	}, logger)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
		stderr:   stderr,
		recorder: recorder,
		loader:   loader,
		now:      time.Now,
	}
	a.compiler = compiler.New(loader, recorder, compiler.Options{
		Title:    cfg.Title,
		Language: cfg.CollationTag(),
		Now:      func() time.Time { return a.now() },
	}, logger)
	return a
}

// SharedSource locates the shared corpus.
func (a *App) SharedSource() corpus.Source {
	return a.source(corpus.SharedName, a.cfg.Path(a.cfg.Shared.Dir))
}

// Targets returns one compile target per configured variant, sorted by name.
// Without variants the shared corpus compiles to a single document at Root.
func (a *App) Targets() []compiler.Target {
	if len(a.cfg.Variants) == 0 {
		return []compiler.Target{{
			Name:   defaultTarget,
			Output: a.cfg.Path(a.cfg.Output.FileName),
		}}
	}

	targets := make([]compiler.Target, 0, len(a.cfg.Variants))
	for _, name := range a.cfg.VariantNames() {
		targets = append(targets, compiler.Target{
			Name:   name,
			Label:  a.cfg.Variants[name].Label,
			Source: a.source(name, a.cfg.Path(a.cfg.VariantDir(name))),
			Output: a.cfg.VariantOutput(name),
		})
	}
	return targets
}

// source applies the shared file layout below dir.
func (a *App) source(name, dir string) corpus.Source {
	rulesDir := filepath.Join(dir, a.cfg.Shared.RulesDir)
	src := corpus.Source{
		Name:     name,
		RulesDir: rulesDir,
	}
	if a.cfg.Shared.SectionsFile != "" {
		src.SectionsFile = filepath.Join(rulesDir, a.cfg.Shared.SectionsFile)
	}
	if a.cfg.Shared.MetadataFile != "" {
		src.MetadataFile = filepath.Join(dir, a.cfg.Shared.MetadataFile)
	}
	return src
}

// Compile compiles every target, or only the named variant. An unknown
// variant fails before any file is read.
func (a *App) Compile(variant string) error {
	targets, err := compiler.SelectTargets(a.Targets(), variant)
	if err != nil {
		return err
	}
	if err := a.compileTargets(targets); err != nil {
		return err
	}
	return a.flushMetrics()
}

func (a *App) compileTargets(targets []compiler.Target) error {
	results, err := a.compiler.CompileAll(a.SharedSource(), targets)
	if len(results) > 0 {
		newPrinter(a.stdout).compiled(results)
	}
	return err
}

// Watch compiles once, then recompiles the affected targets whenever their
// rule files change until ctx is done. A shared change recompiles every
// selected target.
func (a *App) Watch(ctx context.Context, variant string) error {
	targets, err := compiler.SelectTargets(a.Targets(), variant)
	if err != nil {
		return err
	}
	if err := a.compileTargets(targets); err != nil {
		return err
	}

	w, err := corpus.NewWatcher(a.cfg.Watch.Debounce, a.logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Add(a.SharedSource()); err != nil {
		return fmt.Errorf("watch shared corpus: %w", err)
	}
	for _, t := range targets {
		w.Ignore(t.Output)
		if t.Source.RulesDir == "" {
			continue
		}
		if err := w.Add(t.Source); err != nil {
			return fmt.Errorf("watch %s: %w", t.Name, err)
		}
	}
	w.Start(ctx)

	for batch := range w.Events() {
		affected := affectedTargets(targets, batch)
		if len(affected) == 0 {
			continue
		}
		a.logger.Info("Rule files changed",
			"paths", len(batch.Paths),
			"targets", len(affected))
		if err := a.compileTargets(affected); err != nil {
			a.logger.Error("Recompile failed", "error", err)
			continue
		}
		if err := a.flushMetrics(); err != nil {
			a.logger.Warn("Failed to write metrics", "error", err)
		}
	}
	return nil
}

// affectedTargets returns the targets a change batch invalidates.
func affectedTargets(targets []compiler.Target, batch corpus.Batch) []compiler.Target {
	if batch.Has(corpus.SharedName) {
		return targets
	}
	var out []compiler.Target
	for _, t := range targets {
		if batch.Has(t.Source.Name) {
			out = append(out, t)
		}
	}
	return out
}

// Validate checks the shared corpus and every variant corpus. The
// per-file listing goes to stderr; with jsonOut the report is also written
// to stdout as JSON. It reports whether no violation was found.
func (a *App) Validate(jsonOut bool) (bool, error) {
	sources := []corpus.Source{a.SharedSource()}
	for _, t := range a.Targets() {
		if t.Source.RulesDir != "" {
			sources = append(sources, t.Source)
		}
	}

	report, err := validation.NewValidator(a.loader, a.recorder, a.logger).Run(sources)
	if err != nil {
		return false, err
	}
	if report.Violations == nil {
		report.Violations = []validation.Violation{}
	}

	fmt.Fprint(a.stderr, report.Format())

	summary := a.stdout
	if jsonOut {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return false, fmt.Errorf("encode report: %w", err)
		}
		summary = a.stderr
	}
	newPrinter(summary).validated(report)

	if err := a.flushMetrics(); err != nil {
		return false, err
	}
	return report.Valid(), nil
}

// Extract writes every labeled example of the shared and variant corpora to
// the configured test case file. Files that fail to parse are listed on
// stderr and never stop the run.
func (a *App) Extract() error {
	cases, summary, err := extract.NewExtractor(a.loader, a.compiler, a.recorder, a.logger).
		Run(a.SharedSource(), a.Targets())
	if err != nil {
		return err
	}
	for _, f := range summary.Failures {
		fmt.Fprintln(a.stderr, f)
	}

	path := a.cfg.Path(a.cfg.Output.TestCases)
	if err := extract.Write(path, cases); err != nil {
		return err
	}
	a.logger.Info("Wrote test cases", "path", path, "total", summary.Total)

	newPrinter(a.stdout).extracted(path, summary)
	return a.flushMetrics()
}

// List prints every target with its assembled rule and section counts.
func (a *App) List() error {
	shared, err := a.compiler.LoadShared(a.SharedSource())
	if err != nil {
		return err
	}

	var rows []variantRow
	for _, t := range a.Targets() {
		b, err := a.compiler.Build(shared, t)
		if err != nil {
			return fmt.Errorf("build %s: %w", t.Name, err)
		}
		rows = append(rows, variantRow{
			Name:     t.Name,
			Label:    b.Metadata.Variant,
			Sections: len(b.Sections),
			Rules:    b.Rules(),
			Output:   t.Output,
		})
	}

	newPrinter(a.stdout).variants(rows)
	return nil
}

// flushMetrics writes the metrics textfile when one is configured.
func (a *App) flushMetrics() error {
	if a.cfg.Metrics.Textfile == "" {
		return nil
	}
	path := a.cfg.Path(a.cfg.Metrics.Textfile)
	if err := a.recorder.WriteTextfile(path, a.now()); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.logger.Debug("Wrote metrics", "path", path)
	return nil
}
