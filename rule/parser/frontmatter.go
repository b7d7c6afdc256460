// Package parser turns rule documents and section metadata documents into
// structured rule records.
package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontmatter is the structural header block of a rule file.
type frontmatter struct {
	Title             string  `yaml:"title"`
	Impact            string  `yaml:"impact"`
	ImpactDescription string  `yaml:"impactDescription"`
	Tags              tagList `yaml:"tags"`
	Section           int     `yaml:"section"`
}

// tagList accepts either a comma separated string or a YAML sequence.
type tagList []string

func (t *tagList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*t = splitTags(raw)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		var out []string
		for _, tag := range raw {
			if tag = strings.TrimSpace(tag); tag != "" {
				out = append(out, tag)
			}
		}
		*t = out
		return nil
	default:
		return fmt.Errorf("tags: unsupported YAML kind %d", node.Kind)
	}
}

func splitTags(raw string) []string {
	var out []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// splitFrontmatter separates the YAML header from the markdown body.
// Returns the raw YAML text and the remaining body.
func splitFrontmatter(content string) (string, string, error) {
	const delimiter = "---"

	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return "", content, fmt.Errorf("%w: no opening delimiter", ErrMalformedFrontmatter)
	}

	// Skip the opening delimiter
	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	// The header closes at the first line that is exactly the delimiter.
	rest := content[start:]
	for offset := 0; offset <= len(rest); {
		end := strings.IndexByte(rest[offset:], '\n')
		line := rest[offset:]
		if end >= 0 {
			line = rest[offset : offset+end]
		}

		if strings.TrimSuffix(line, "\r") == delimiter {
			body := strings.TrimLeft(rest[offset+len(line):], "\r\n")
			return rest[:offset], body, nil
		}
		if end < 0 {
			break
		}
		offset += end + 1
	}

	return "", content, fmt.Errorf("%w: no closing delimiter", ErrMalformedFrontmatter)
}

// decodeFrontmatter parses the YAML header of a rule file.
func decodeFrontmatter(content string) (*frontmatter, string, error) {
	raw, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, content, err
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return nil, content, fmt.Errorf("%w: %v", ErrMalformedFrontmatter, err)
	}

	return &fm, body, nil
}

// ContentHash computes a SHA256 hash of the content.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}
