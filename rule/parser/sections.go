package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/c360studio/rulebook/rule"
)

var (
	// sectionHeadingRe anchors a metadata block: ## 1. Eliminating Waterfalls (async)
	sectionHeadingRe = regexp.MustCompile(`(?m)^##\s+(\d+)\.\s+(.+?)\s*$`)
	// sectionPrefixRe splits the filename prefix off a section title.
	sectionPrefixRe = regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)$`)
)

// ParseSections reads a section metadata document into a section index.
// Sections without an impact line default to MEDIUM; sections without a
// description get an empty introduction.
func ParseSections(content string) rule.SectionIndex {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	idx := make(rule.SectionIndex)

	locs := sectionHeadingRe.FindAllStringSubmatchIndex(content, -1)
	for i, loc := range locs {
		num, err := strconv.Atoi(content[loc[2]:loc[3]])
		if err != nil || num <= 0 {
			continue
		}

		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}

		meta := rule.SectionMeta{
			Title:  content[loc[4]:loc[5]],
			Impact: rule.ImpactMedium,
		}
		if m := sectionPrefixRe.FindStringSubmatch(meta.Title); m != nil && m[1] != "" {
			meta.Title = m[1]
			meta.Prefix = strings.TrimSpace(m[2])
		}

		parseSectionBlock(content[loc[1]:end], &meta)
		idx[num] = meta
	}

	return idx
}

// parseSectionBlock extracts the impact label and the introduction from the
// text under one section heading. An explicit description field wins over
// the first free paragraph.
func parseSectionBlock(block string, meta *rule.SectionMeta) {
	var (
		desc      []string
		para      []string
		inDesc    bool
		descFound bool
		paraDone  bool
	)

	for _, line := range strings.Split(block, "\n") {
		t := strings.TrimSpace(line)

		if v, ok := fieldValue(t, "impact"); ok {
			if v != "" {
				meta.Impact = rule.ParseImpact(v)
			}
			inDesc = false
			paraDone = paraDone || len(para) > 0
			continue
		}

		if v, ok := fieldValue(t, "description"); ok {
			inDesc, descFound = true, true
			desc = desc[:0]
			if v != "" {
				desc = append(desc, v)
			}
			continue
		}

		if t == "" {
			if inDesc && len(desc) > 0 {
				inDesc = false
			}
			paraDone = paraDone || len(para) > 0
			continue
		}

		switch {
		case inDesc:
			desc = append(desc, t)
		case !paraDone && !strings.HasPrefix(t, "#"):
			para = append(para, t)
		}
	}

	if descFound {
		meta.Introduction = strings.Join(desc, " ")
	} else {
		meta.Introduction = strings.Join(para, " ")
	}
}

// fieldValue matches a bold field line such as "**Impact:** HIGH" or
// "**Impact: HIGH**" and returns the value.
func fieldValue(line, name string) (string, bool) {
	s := strings.TrimLeft(line, "*_")
	if len(s) < len(name) || !strings.EqualFold(s[:len(name)], name) {
		return "", false
	}
	rest := strings.TrimLeft(s[len(name):], "*_ ")
	if !strings.HasPrefix(rest, ":") {
		return "", false
	}
	return strings.Trim(rest[1:], "*_ \t"), true
}
