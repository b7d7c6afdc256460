package compiler

import (
	"regexp"
	"strings"
)

var (
	anchorStripRe = regexp.MustCompile(`[^a-z0-9\s-]`)
	anchorSpaceRe = regexp.MustCompile(`\s+`)
)

// Anchor derives a heading anchor from visible text: lowercase, characters
// outside [a-z0-9 -] removed, whitespace runs replaced by a hyphen.
func Anchor(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = anchorStripRe.ReplaceAllString(s, "")
	return anchorSpaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
}
