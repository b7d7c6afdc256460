package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/c360studio/rulebook/rule"
)

// DefaultLanguage tags code blocks that declare no language.
const DefaultLanguage = "typescript"

var (
	// headingRe matches an ATX markdown heading.
	headingRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	// labelRe matches a whole-line bold example label: **Incorrect (why):**
	labelRe = regexp.MustCompile(`^\*\*([^*]+?)\*\*:?$`)
	// labelDescRe splits a trailing parenthetical off a label.
	labelDescRe = regexp.MustCompile(`^(.*?)\s*\((.*)\)$`)
	// fenceRe matches an opening code fence and its info string.
	fenceRe = regexp.MustCompile("^(`{3,}|~{3,})\\s*([^\\s`]*)")
	// referenceRe matches a "Reference:" or "References:" line.
	referenceRe = regexp.MustCompile(`(?i)^\*{0,2}references?:\*{0,2}\s*(.*)$`)
	// linkRe matches an inline markdown link.
	linkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)
	// listItemRe matches a bullet list item.
	listItemRe = regexp.MustCompile(`^[-*+]\s+(.*)$`)
)

// Parser parses rule files into rule records.
type Parser struct {
	defaultLanguage string
}

// NewParser creates a rule parser. An empty defaultLanguage selects DefaultLanguage.
func NewParser(defaultLanguage string) *Parser {
	if defaultLanguage == "" {
		defaultLanguage = DefaultLanguage
	}
	return &Parser{defaultLanguage: defaultLanguage}
}

// Parse parses one rule document. Labels are stored verbatim; polarity is
// inferred later by whoever needs it.
func (p *Parser) Parse(filename string, content []byte) (*rule.Rule, error) {
	base := filepath.Base(filename)

	fm, body, err := decodeFrontmatter(string(content))
	if err != nil {
		return nil, &ParseError{File: base, Err: err}
	}

	r := &rule.Rule{
		Title:             strings.TrimSpace(fm.Title),
		Impact:            rule.ParseImpact(fm.Impact),
		ImpactDescription: strings.TrimSpace(fm.ImpactDescription),
		Tags:              []string(fm.Tags),
		Section:           fm.Section,
		File:              base,
	}

	p.parseBody(r, body)

	if r.Title == "" {
		return nil, &ParseError{File: base, Err: fmt.Errorf("%w: title", ErrMissingField)}
	}
	if r.Impact == "" {
		return nil, &ParseError{File: base, Err: fmt.Errorf("%w: impact", ErrMissingField)}
	}

	return r, nil
}

// exampleDraft accumulates one example while scanning the body.
type exampleDraft struct {
	example rule.Example
	fenced  bool
	text    []string
}

// parseBody fills explanation, examples and references from the markdown body.
func (p *Parser) parseBody(r *rule.Rule, body string) {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	var (
		explanation []string
		drafts      []*exampleDraft
		cur         *exampleDraft
		inRefs      bool
		headingSeen bool
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
			code, next := readFence(lines, i+1, m[1])
			raw := lines[i:next]
			i = next - 1
			inRefs = false

			switch {
			case cur != nil && !cur.fenced:
				cur.fenced = true
				cur.example.Code = code
				cur.example.Language = m[2]
				if cur.example.Language == "" {
					cur.example.Language = p.defaultLanguage
				}
			case cur != nil:
				cur.text = append(cur.text, raw...)
			default:
				explanation = append(explanation, raw...)
			}
			continue
		}

		// The first heading before any prose is the rule title.
		if !headingSeen && cur == nil && strings.TrimSpace(strings.Join(explanation, "")) == "" {
			if m := headingRe.FindStringSubmatch(trimmed); m != nil {
				headingSeen = true
				if r.Title == "" {
					r.Title = strings.TrimSpace(m[1])
				}
				continue
			}
		}

		if m := referenceRe.FindStringSubmatch(trimmed); m != nil {
			inRefs = true
			r.References = append(r.References, extractLinks(m[1])...)
			continue
		}

		if inRefs {
			if trimmed == "" {
				continue
			}
			if m := listItemRe.FindStringSubmatch(trimmed); m != nil {
				r.References = append(r.References, extractLinks(m[1])...)
				continue
			}
			inRefs = false
		}

		if m := labelRe.FindStringSubmatch(trimmed); m != nil {
			label, desc := splitLabel(m[1])
			cur = &exampleDraft{example: rule.Example{Label: label, Description: desc}}
			drafts = append(drafts, cur)
			continue
		}

		if cur != nil {
			cur.text = append(cur.text, line)
		} else {
			explanation = append(explanation, line)
		}
	}

	r.Explanation = joinText(explanation)
	for _, d := range drafts {
		d.example.AdditionalText = joinText(d.text)
		r.Examples = append(r.Examples, d.example)
	}
}

// readFence collects code lines until the closing fence. It returns the code
// and the index of the line after the closing fence.
func readFence(lines []string, start int, marker string) (string, int) {
	var code []string
	for i := start; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if strings.HasPrefix(t, marker) && strings.Trim(t, marker[:1]) == "" {
			return strings.Join(code, "\n"), i + 1
		}
		code = append(code, lines[i])
	}
	// Unterminated fence runs to the end of the document.
	return strings.Join(code, "\n"), len(lines)
}

// splitLabel separates "Incorrect (old pattern):" into label and description.
func splitLabel(raw string) (string, string) {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ":"))
	if m := labelDescRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return raw, ""
}

// extractLinks returns the link targets in text, or the text itself when it
// is a bare URL.
func extractLinks(text string) []string {
	var out []string
	for _, m := range linkRe.FindAllStringSubmatch(text, -1) {
		out = append(out, m[2])
	}
	if len(out) > 0 {
		return out
	}
	for _, field := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' }) {
		field = strings.Trim(field, "<>")
		if strings.HasPrefix(field, "http://") || strings.HasPrefix(field, "https://") {
			out = append(out, field)
		}
	}
	return out
}

func joinText(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
