package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/rulebook/rule"
	"github.com/c360studio/rulebook/rule/parser"
)

// DefaultInclude selects rule files inside a rules directory.
var DefaultInclude = []string{"*.md"}

// Options configures rule file discovery.
type Options struct {
	// Include lists doublestar patterns, relative to the rules directory.
	Include []string

	// Exclude lists doublestar patterns removed from the included set.
	Exclude []string

	// DefaultLanguage tags code blocks without a language.
	DefaultLanguage string
}

// Loader reads rule corpora from disk.
type Loader struct {
	parser  *parser.Parser
	include []string
	exclude []string
	logger  *slog.Logger
}

// NewLoader creates a corpus loader.
func NewLoader(opts Options, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	include := opts.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	return &Loader{
		parser:  parser.NewParser(opts.DefaultLanguage),
		include: include,
		exclude: opts.Exclude,
		logger:  logger,
	}
}

// Parser returns the rule parser used by the loader.
func (l *Loader) Parser() *parser.Parser {
	return l.parser
}

// Parsed is the outcome of parsing one rule file.
type Parsed struct {
	Path string
	Rule *rule.Rule
	Err  error
}

// Files lists the rule files in dir, sorted. A missing directory yields no
// files and no error.
func (l *Loader) Files(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("Rules directory not found", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat rules dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	fsys := os.DirFS(dir)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range l.include {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || !l.isRuleFile(m) {
				continue
			}
			seen[m] = true
			files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}

	sort.Strings(files)
	return files, nil
}

// isRuleFile filters out section metadata, readmes and excluded patterns.
func (l *Loader) isRuleFile(rel string) bool {
	base := filepath.Base(filepath.FromSlash(rel))
	if strings.HasPrefix(base, "_") || strings.HasPrefix(base, ".") {
		return false
	}
	if strings.EqualFold(base, "README.md") {
		return false
	}
	for _, pattern := range l.exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

// ParseAll parses every rule file in dir. Per-file failures are recorded
// on the result and never stop the walk.
func (l *Loader) ParseAll(dir string) ([]Parsed, error) {
	files, err := l.Files(dir)
	if err != nil {
		return nil, err
	}

	results := make([]Parsed, 0, len(files))
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			results = append(results, Parsed{
				Path: path,
				Err:  &parser.ParseError{File: filepath.Base(path), Err: err},
			})
			continue
		}

		r, err := l.parser.Parse(path, content)
		results = append(results, Parsed{Path: path, Rule: r, Err: err})
	}

	return results, nil
}

// LoadSections reads a section metadata document. An empty path or a
// missing file yields an empty index.
func (l *Loader) LoadSections(path string) (rule.SectionIndex, error) {
	if path == "" {
		return rule.SectionIndex{}, nil
	}
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Debug("Section metadata not found", "path", path)
		return rule.SectionIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read section metadata: %w", err)
	}
	return parser.ParseSections(string(content)), nil
}

// Load reads one corpus. Section prefixes not declared by the corpus itself
// are looked up in inherited, which lets a variant file use a section
// defined only by the shared corpus. An unreadable or malformed metadata
// file is logged and replaced by zero metadata.
func (l *Loader) Load(src Source, inherited rule.SectionIndex) (*Corpus, error) {
	sections, err := l.LoadSections(src.SectionsFile)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name, err)
	}

	meta, err := LoadMetadata(src.MetadataFile)
	if err != nil {
		l.logger.Warn("Ignoring metadata file", "corpus", src.Name, "path", src.MetadataFile, "error", err)
		meta = Metadata{}
	}

	parsed, err := l.ParseAll(src.RulesDir)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name, err)
	}

	c := &Corpus{
		Name:     src.Name,
		Sections: sections,
		Metadata: meta,
		Files:    len(parsed),
	}

	for _, p := range parsed {
		if p.Err != nil {
			l.logger.Warn("Skipping rule file", "corpus", src.Name, "file", filepath.Base(p.Path), "error", p.Err)
			c.Errors = append(c.Errors, p.Err)
			continue
		}

		p.Rule.Corpus = src.Name
		n, err := ResolveSection(p.Rule, sections, inherited)
		if err != nil {
			l.logger.Warn("Skipping rule file", "corpus", src.Name, "file", p.Rule.File, "error", err)
			c.Errors = append(c.Errors, &parser.ParseError{File: p.Rule.File, Err: err})
			continue
		}

		c.Entries = append(c.Entries, Entry{Section: n, Rule: p.Rule})
	}

	l.logger.Debug("Loaded corpus",
		"corpus", src.Name,
		"files", c.Files,
		"rules", len(c.Entries),
		"sections", len(sections),
		"errors", len(c.Errors))

	return c, nil
}

// ResolveSection picks the section for a rule: an explicit frontmatter
// number first, then the filename prefix before the first hyphen, looked up
// in own and then in inherited. It returns ErrNoSection when nothing matches.
func ResolveSection(r *rule.Rule, own, inherited rule.SectionIndex) (int, error) {
	if r.Section > 0 {
		return r.Section, nil
	}

	name := strings.TrimSuffix(r.File, filepath.Ext(r.File))
	prefix, _, _ := strings.Cut(name, "-")

	if n, ok := own.ByPrefix(prefix); ok {
		return n, nil
	}
	if n, ok := inherited.ByPrefix(prefix); ok {
		return n, nil
	}
	return 0, fmt.Errorf("%w for prefix %q", ErrNoSection, prefix)
}
