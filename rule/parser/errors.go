package parser

import (
	"errors"
	"fmt"
)

// Structural parse failures.
var (
	// ErrMalformedFrontmatter is returned when the frontmatter block is
	// missing, unterminated or not valid YAML.
	ErrMalformedFrontmatter = errors.New("malformed frontmatter")

	// ErrMissingField is returned when a mandatory field is absent after parsing.
	ErrMissingField = errors.New("missing required field")
)

// ParseError records a failure to parse one rule file.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
