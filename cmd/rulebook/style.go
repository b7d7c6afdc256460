package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/c360studio/rulebook/compiler"
	"github.com/c360studio/rulebook/extract"
	"github.com/c360studio/rulebook/validation"
)

// printer writes styled console summaries. Styles degrade to plain text
// when w is not a terminal.
type printer struct {
	w io.Writer

	title lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	dim   lipgloss.Style
}

func newPrinter(w io.Writer) *printer {
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("69")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("220")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

func (p *printer) compiled(results []*compiler.Result) {
	fmt.Fprintln(p.w, p.title.Render("Compiled"))
	for _, r := range results {
		line := fmt.Sprintf("  %-14s %3d sections  %3d rules", r.Variant, r.Sections, r.Rules)
		fmt.Fprint(p.w, p.ok.Render(line))
		if r.Skipped > 0 {
			fmt.Fprint(p.w, " ", p.warn.Render(fmt.Sprintf("(%d skipped)", r.Skipped)))
		}
		fmt.Fprintln(p.w, " ", p.dim.Render(r.Output))
	}
}

func (p *printer) validated(report *validation.Report) {
	fmt.Fprintln(p.w, p.title.Render("Validation"))
	for _, c := range report.Corpora {
		line := fmt.Sprintf("  %-14s %3d files  %3d violations", c.Name, c.Files, c.Violations)
		if c.Violations > 0 {
			fmt.Fprintln(p.w, p.fail.Render(line))
		} else {
			fmt.Fprintln(p.w, p.ok.Render(line))
		}
	}
	if report.Valid() {
		fmt.Fprintln(p.w, p.ok.Render("All rule files are valid"))
		return
	}
	fmt.Fprintln(p.w, p.fail.Render(fmt.Sprintf("%d violations found", len(report.Violations))))
}

func (p *printer) extracted(path string, s extract.Summary) {
	fmt.Fprintln(p.w, p.title.Render("Extracted test cases"))
	fmt.Fprintf(p.w, "  total %d  %s  %s\n",
		s.Total,
		p.fail.Render(fmt.Sprintf("bad %d", s.Bad)),
		p.ok.Render(fmt.Sprintf("good %d", s.Good)))
	if s.Unassigned > 0 {
		fmt.Fprintln(p.w, " ", p.warn.Render(fmt.Sprintf("%d rules without a section (no id)", s.Unassigned)))
	}
	if len(s.Failures) > 0 {
		fmt.Fprintln(p.w, " ", p.fail.Render(fmt.Sprintf("%d files failed to parse", len(s.Failures))))
	}
	fmt.Fprintln(p.w, " ", p.dim.Render(path))
}

// variantRow is one line of the list command.
type variantRow struct {
	Name     string
	Label    string
	Sections int
	Rules    int
	Output   string
}

func (p *printer) variants(rows []variantRow) {
	fmt.Fprintln(p.w, p.title.Render("Variants"))
	for _, r := range rows {
		label := r.Label
		if label == "" {
			label = "-"
		}
		line := fmt.Sprintf("  %-14s %-16s %3d sections  %3d rules", r.Name, label, r.Sections, r.Rules)
		fmt.Fprintln(p.w, line, p.dim.Render(r.Output))
	}
}
