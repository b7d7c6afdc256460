package compiler

import (
	"fmt"
	"strings"

	"github.com/c360studio/rulebook/corpus"
	"github.com/c360studio/rulebook/rule"
)

// DefaultTitle is used when neither metadata nor configuration names the document.
const DefaultTitle = "Best Practices"

// Document is everything the renderer needs for one compiled document.
type Document struct {
	Metadata corpus.Metadata
	Sections []rule.Section
}

// Renderer serializes assembled sections into the canonical markdown document.
type Renderer struct{}

// NewRenderer creates a new markdown renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the compiled document. Missing metadata is defaulted so a
// valid corpus always renders.
func (r *Renderer) Render(doc Document) string {
	var sb strings.Builder

	r.writeHeader(&sb, doc.Metadata)
	r.writeContents(&sb, doc.Sections)

	for i, section := range doc.Sections {
		r.writeSection(&sb, section)
		if i < len(doc.Sections)-1 {
			sb.WriteString("---\n\n")
		}
	}

	if len(doc.Metadata.References) > 0 {
		sb.WriteString("---\n\n## References\n\n")
		for i, ref := range doc.Metadata.References {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, link(ref))
		}
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// DocumentTitle returns the H1 text, embedding the variant label when set.
func DocumentTitle(meta corpus.Metadata) string {
	title := meta.Title
	if title == "" {
		title = DefaultTitle
	}
	if meta.Variant != "" {
		title = fmt.Sprintf("%s (%s)", title, meta.Variant)
	}
	return title
}

func (r *Renderer) writeHeader(sb *strings.Builder, meta corpus.Metadata) {
	sb.WriteString("# ")
	sb.WriteString(DocumentTitle(meta))
	sb.WriteString("\n\n")

	version := meta.Version
	if version == "" {
		version = corpus.DefaultVersion
	}
	fmt.Fprintf(sb, "**Version %s**  \n", version)
	if meta.Organization != "" {
		sb.WriteString(meta.Organization)
		sb.WriteString("  \n")
	}
	if meta.Date != "" {
		sb.WriteString(meta.Date)
		sb.WriteString("\n")
	}
	sb.WriteString("\n---\n\n")

	if meta.Abstract != "" {
		sb.WriteString("## Abstract\n\n")
		sb.WriteString(strings.TrimSpace(meta.Abstract))
		sb.WriteString("\n\n---\n\n")
	}
}

func (r *Renderer) writeContents(sb *strings.Builder, sections []rule.Section) {
	sb.WriteString("## Table of Contents\n\n")
	for _, s := range sections {
		heading := sectionHeading(s)
		fmt.Fprintf(sb, "%d. [%s](#%s) - **%s**\n", s.Number, s.Title, Anchor(heading), s.Impact)
		for _, rl := range s.Rules {
			fmt.Fprintf(sb, "   - %s [%s](#%s)\n", rl.ID, rl.Title, Anchor(ruleHeading(rl)))
		}
	}
	sb.WriteString("\n---\n\n")
}

func (r *Renderer) writeSection(sb *strings.Builder, s rule.Section) {
	sb.WriteString("## ")
	sb.WriteString(sectionHeading(s))
	sb.WriteString("\n\n")
	fmt.Fprintf(sb, "**Impact: %s**\n\n", s.Impact)

	if intro := strings.TrimSpace(s.Introduction); intro != "" {
		sb.WriteString(intro)
		sb.WriteString("\n\n")
	}

	for _, rl := range s.Rules {
		r.writeRule(sb, rl)
	}
}

func (r *Renderer) writeRule(sb *strings.Builder, rl rule.Rule) {
	sb.WriteString("### ")
	sb.WriteString(ruleHeading(rl))
	sb.WriteString("\n\n")

	if rl.ImpactDescription != "" {
		fmt.Fprintf(sb, "**Impact: %s (%s)**\n\n", rl.Impact, rl.ImpactDescription)
	} else {
		fmt.Fprintf(sb, "**Impact: %s**\n\n", rl.Impact)
	}

	if rl.Explanation != "" {
		sb.WriteString(rl.Explanation)
		sb.WriteString("\n\n")
	}

	for _, ex := range rl.Examples {
		writeExample(sb, ex)
	}

	if len(rl.References) > 0 {
		links := make([]string, 0, len(rl.References))
		for _, ref := range rl.References {
			links = append(links, link(ref))
		}
		sb.WriteString("Reference: ")
		sb.WriteString(strings.Join(links, ", "))
		sb.WriteString("\n\n")
	}
}

func writeExample(sb *strings.Builder, ex rule.Example) {
	if ex.Description != "" {
		fmt.Fprintf(sb, "**%s (%s):**\n\n", ex.Label, ex.Description)
	} else {
		fmt.Fprintf(sb, "**%s:**\n\n", ex.Label)
	}

	if ex.HasCode() {
		fence := codeFence(ex.Code)
		sb.WriteString(fence)
		sb.WriteString(ex.Language)
		sb.WriteString("\n")
		sb.WriteString(strings.TrimRight(ex.Code, "\n"))
		sb.WriteString("\n")
		sb.WriteString(fence)
		sb.WriteString("\n\n")
	}

	if ex.AdditionalText != "" {
		sb.WriteString(ex.AdditionalText)
		sb.WriteString("\n\n")
	}
}

// codeFence returns a backtick fence longer than any backtick run in code.
func codeFence(code string) string {
	longest, run := 0, 0
	for _, c := range code {
		if c == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return strings.Repeat("`", max(3, longest+1))
}

func sectionHeading(s rule.Section) string {
	return fmt.Sprintf("%d. %s", s.Number, s.Title)
}

func ruleHeading(rl rule.Rule) string {
	return fmt.Sprintf("%s %s", rl.ID, rl.Title)
}

func link(url string) string {
	return fmt.Sprintf("[%s](%s)", url, url)
}
