// Package config provides configuration loading and management for rulebook.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// SharedCorpus is the reserved name of the shared baseline corpus.
const SharedCorpus = "shared"

// Config represents the complete rulebook configuration
type Config struct {
	// Root is the project root. Every relative path below resolves against it.
	Root string `yaml:"root"`
	// Title names compiled documents that carry no title in their metadata
	Title string `yaml:"title"`
	// Language is the BCP 47 tag used to collate rule titles (default: en)
	Language string `yaml:"language"`

	Shared   CorpusConfig             `yaml:"shared"`
	Variants map[string]VariantConfig `yaml:"variants"`
	Output   OutputConfig             `yaml:"output"`
	Rules    RulesConfig              `yaml:"rules"`
	Metrics  MetricsConfig            `yaml:"metrics"`
	Watch    WatchConfig              `yaml:"watch"`
}

// CorpusConfig describes the on-disk layout of a corpus
type CorpusConfig struct {
	// Dir is the corpus directory, relative to Root
	Dir string `yaml:"dir"`
	// RulesDir holds the rule files, relative to Dir
	RulesDir string `yaml:"rules_dir"`
	// SectionsFile is the section metadata document, relative to RulesDir
	SectionsFile string `yaml:"sections_file"`
	// MetadataFile is the document metadata JSON, relative to Dir
	MetadataFile string `yaml:"metadata_file"`
}

// VariantConfig configures one variant. Variants share the shared corpus's
// file layout below their own directory.
type VariantConfig struct {
	// Dir is the variant corpus directory (default: variants/<name>)
	Dir string `yaml:"dir"`
	// Label is shown in the compiled document title
	Label string `yaml:"label"`
	// Output is the directory receiving the compiled document (default: Dir)
	Output string `yaml:"output"`
}

// OutputConfig configures output artifacts
type OutputConfig struct {
	// FileName is the compiled document name inside each output directory
	FileName string `yaml:"file_name"`
	// TestCases is the extracted test case JSON path, relative to Root
	TestCases string `yaml:"test_cases"`
}

// RulesConfig configures rule file discovery and parsing
type RulesConfig struct {
	// Include lists doublestar patterns selecting rule files
	Include []string `yaml:"include"`
	// Exclude lists doublestar patterns removed from the selection
	Exclude []string `yaml:"exclude"`
	// DefaultLanguage tags code blocks that declare no language
	DefaultLanguage string `yaml:"default_language"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	// Textfile is a Prometheus textfile path, relative to Root (empty = disabled)
	Textfile string `yaml:"textfile"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is how long changes accumulate before recompiling
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Root:     ".",
		Title:    "Best Practices",
		Language: "en",
		Shared: CorpusConfig{
			Dir:          ".",
			RulesDir:     "rules",
			SectionsFile: "_sections.md",
			MetadataFile: "metadata.json",
		},
		Variants: map[string]VariantConfig{},
		Output: OutputConfig{
			FileName:  "AGENTS.md",
			TestCases: "test-cases.json",
		},
		Rules: RulesConfig{
			Include:         []string{"*.md"},
			DefaultLanguage: "typescript",
		},
		Watch: WatchConfig{
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root is required")
	}
	if c.Shared.RulesDir == "" {
		return fmt.Errorf("shared.rules_dir is required")
	}
	if c.Output.FileName == "" {
		return fmt.Errorf("output.file_name is required")
	}
	if _, err := language.Parse(c.Language); err != nil {
		return fmt.Errorf("language %q: %w", c.Language, err)
	}
	for _, p := range append(append([]string{}, c.Rules.Include...), c.Rules.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("rules: invalid pattern %q", p)
		}
	}
	for name := range c.Variants {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("variants: empty variant name")
		}
		if name == SharedCorpus {
			return fmt.Errorf("variants: %q is reserved for the shared corpus", SharedCorpus)
		}
	}
	return nil
}

// LoadFromFile loads one configuration layer from a YAML file. Environment
// references such as ${VAR} or ${VAR:-default} are expanded first. A
// relative root resolves against the file's directory; a missing root
// makes that directory the root.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal([]byte(ExpandEnvWithDefaults(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	dir := filepath.Dir(path)
	switch {
	case config.Root == "":
		config.Root = dir
	case !filepath.IsAbs(config.Root):
		config.Root = filepath.Join(dir, config.Root)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Root != "" {
		c.Root = other.Root
	}
	if other.Title != "" {
		c.Title = other.Title
	}
	if other.Language != "" {
		c.Language = other.Language
	}

	// Shared corpus
	if other.Shared.Dir != "" {
		c.Shared.Dir = other.Shared.Dir
	}
	if other.Shared.RulesDir != "" {
		c.Shared.RulesDir = other.Shared.RulesDir
	}
	if other.Shared.SectionsFile != "" {
		c.Shared.SectionsFile = other.Shared.SectionsFile
	}
	if other.Shared.MetadataFile != "" {
		c.Shared.MetadataFile = other.Shared.MetadataFile
	}

	// Variants merge by key
	if len(other.Variants) > 0 && c.Variants == nil {
		c.Variants = make(map[string]VariantConfig, len(other.Variants))
	}
	for name, v := range other.Variants {
		c.Variants[name] = v
	}

	// Output
	if other.Output.FileName != "" {
		c.Output.FileName = other.Output.FileName
	}
	if other.Output.TestCases != "" {
		c.Output.TestCases = other.Output.TestCases
	}

	// Rules
	if len(other.Rules.Include) > 0 {
		c.Rules.Include = other.Rules.Include
	}
	if len(other.Rules.Exclude) > 0 {
		c.Rules.Exclude = other.Rules.Exclude
	}
	if other.Rules.DefaultLanguage != "" {
		c.Rules.DefaultLanguage = other.Rules.DefaultLanguage
	}

	if other.Metrics.Textfile != "" {
		c.Metrics.Textfile = other.Metrics.Textfile
	}
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}

// Path resolves a path against Root unless it is already absolute
func (c *Config) Path(elem ...string) string {
	p := filepath.Join(elem...)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// VariantNames returns the configured variant keys, sorted
func (c *Config) VariantNames() []string {
	names := make([]string, 0, len(c.Variants))
	for name := range c.Variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VariantDir returns the corpus directory of a variant, relative to Root
func (c *Config) VariantDir(name string) string {
	if v := c.Variants[name]; v.Dir != "" {
		return v.Dir
	}
	return filepath.Join("variants", name)
}

// VariantOutput returns the compiled document path of a variant
func (c *Config) VariantOutput(name string) string {
	dir := c.Variants[name].Output
	if dir == "" {
		dir = c.VariantDir(name)
	}
	return c.Path(dir, c.Output.FileName)
}

// CollationTag returns the parsed collation language, falling back to English
func (c *Config) CollationTag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// ExpandEnvWithDefaults expands ${VAR}, $VAR and ${VAR:-default} references
func ExpandEnvWithDefaults(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}
