package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// DefaultVersion is used when no metadata declares a version.
const DefaultVersion = "0.0.0"

// Metadata is the document-level front matter of a compiled document.
type Metadata struct {
	Title        string   `json:"title,omitempty"`
	Version      string   `json:"version,omitempty"`
	Organization string   `json:"organization,omitempty"`
	Date         string   `json:"date,omitempty"`
	Abstract     string   `json:"abstract,omitempty"`
	Variant      string   `json:"variant,omitempty"`
	References   []string `json:"references,omitempty"`
}

// LoadMetadata reads a metadata JSON file. An empty path or a missing file
// yields zero metadata.
func LoadMetadata(path string) (Metadata, error) {
	var meta Metadata
	if path == "" {
		return meta, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return meta, nil
	}
	if err != nil {
		return meta, fmt.Errorf("read metadata: %w", err)
	}

	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	return meta, nil
}

// Overlay returns m with every non-empty field of other applied on top.
func (m Metadata) Overlay(other Metadata) Metadata {
	if other.Title != "" {
		m.Title = other.Title
	}
	if other.Version != "" {
		m.Version = other.Version
	}
	if other.Organization != "" {
		m.Organization = other.Organization
	}
	if other.Date != "" {
		m.Date = other.Date
	}
	if other.Abstract != "" {
		m.Abstract = other.Abstract
	}
	if other.Variant != "" {
		m.Variant = other.Variant
	}
	if len(other.References) > 0 {
		m.References = other.References
	}
	return m
}

// WithDefaults fills the fields a document cannot render without.
func (m Metadata) WithDefaults(now time.Time) Metadata {
	if m.Version == "" {
		m.Version = DefaultVersion
	}
	if m.Date == "" {
		m.Date = now.Format("January 2006")
	}
	return m
}
