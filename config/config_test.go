package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Shared.RulesDir != "rules" {
		t.Errorf("expected default rules dir rules, got %s", cfg.Shared.RulesDir)
	}
	if cfg.Shared.SectionsFile != "_sections.md" {
		t.Errorf("expected default sections file _sections.md, got %s", cfg.Shared.SectionsFile)
	}
	if cfg.Output.FileName != "AGENTS.md" {
		t.Errorf("expected default output AGENTS.md, got %s", cfg.Output.FileName)
	}
	if cfg.Rules.DefaultLanguage != "typescript" {
		t.Errorf("expected default language typescript, got %s", cfg.Rules.DefaultLanguage)
	}
	if cfg.Watch.Debounce != 300*time.Millisecond {
		t.Errorf("expected debounce 300ms, got %v", cfg.Watch.Debounce)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing root",
			modify:  func(c *Config) { c.Root = "" },
			wantErr: true,
		},
		{
			name:    "missing rules dir",
			modify:  func(c *Config) { c.Shared.RulesDir = "" },
			wantErr: true,
		},
		{
			name:    "missing output file name",
			modify:  func(c *Config) { c.Output.FileName = "" },
			wantErr: true,
		},
		{
			name:    "bad language tag",
			modify:  func(c *Config) { c.Language = "not a tag!" },
			wantErr: true,
		},
		{
			name:    "bad include pattern",
			modify:  func(c *Config) { c.Rules.Include = []string{"[a-"} },
			wantErr: true,
		},
		{
			name:    "reserved variant name",
			modify:  func(c *Config) { c.Variants = map[string]VariantConfig{"shared": {}} },
			wantErr: true,
		},
		{
			name:    "variant configured",
			modify:  func(c *Config) { c.Variants = map[string]VariantConfig{"next": {Label: "Next.js"}} },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	base.Variants["react"] = VariantConfig{Label: "React"}

	other := &Config{
		Title: "Guide",
		Shared: CorpusConfig{
			RulesDir: "docs/rules",
		},
		Variants: map[string]VariantConfig{
			"next": {Label: "Next.js", Output: "out/next"},
		},
		Rules: RulesConfig{
			Exclude: []string{"draft-*.md"},
		},
		Watch: WatchConfig{
			Debounce: time.Second,
		},
	}

	base.Merge(other)

	if base.Title != "Guide" {
		t.Errorf("expected title Guide, got %s", base.Title)
	}
	if base.Shared.RulesDir != "docs/rules" {
		t.Errorf("expected rules dir docs/rules, got %s", base.Shared.RulesDir)
	}
	// Zero values do not override
	if base.Shared.SectionsFile != "_sections.md" {
		t.Errorf("sections file should be preserved, got %s", base.Shared.SectionsFile)
	}
	if len(base.Variants) != 2 {
		t.Errorf("expected variants merged by key, got %v", base.VariantNames())
	}
	if base.Variants["next"].Label != "Next.js" {
		t.Errorf("expected next label Next.js, got %s", base.Variants["next"].Label)
	}
	if len(base.Rules.Include) != 1 || base.Rules.Exclude[0] != "draft-*.md" {
		t.Errorf("unexpected rules config %+v", base.Rules)
	}
	if base.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", base.Watch.Debounce)
	}

	base.Merge(nil)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rulebook.yaml")

	t.Setenv("RULEBOOK_TEST_OUT", "dist")

	content := `
title: React Best Practices
root: project
shared:
  rules_dir: guidance
variants:
  next:
    label: Next.js
    output: ${RULEBOOK_TEST_OUT}/next
  remix:
    label: ${RULEBOOK_TEST_MISSING:-Remix}
watch:
  debounce: 2s
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.Root != filepath.Join(dir, "project") {
		t.Errorf("expected root resolved against config dir, got %s", cfg.Root)
	}
	if cfg.Shared.RulesDir != "guidance" {
		t.Errorf("expected rules dir guidance, got %s", cfg.Shared.RulesDir)
	}
	if cfg.Variants["next"].Output != "dist/next" {
		t.Errorf("expected env expansion, got %s", cfg.Variants["next"].Output)
	}
	if cfg.Variants["remix"].Label != "Remix" {
		t.Errorf("expected default expansion, got %s", cfg.Variants["remix"].Label)
	}
	if cfg.Watch.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadFromFileMissingRoot(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rulebook.yaml")
	if err := os.WriteFile(configPath, []byte("title: x\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Root != dir {
		t.Errorf("expected config dir as root, got %s", cfg.Root)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "rulebook.yaml")
	if err := os.WriteFile(configPath, []byte("variants: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(configPath); err == nil {
		t.Error("expected parse error")
	}
	if _, err := LoadFromFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "subdir", "config.yaml")

	original := DefaultConfig()
	original.Root = dir
	original.Title = "Saved"
	original.Variants["next"] = VariantConfig{Label: "Next.js"}

	if err := original.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loaded.Title != original.Title {
		t.Errorf("title mismatch: got %s, want %s", loaded.Title, original.Title)
	}
	if loaded.Root != dir {
		t.Errorf("root mismatch: got %s, want %s", loaded.Root, dir)
	}
	if loaded.Variants["next"].Label != "Next.js" {
		t.Errorf("variant mismatch: got %+v", loaded.Variants)
	}
}

func TestPathHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/repo"
	cfg.Variants = map[string]VariantConfig{
		"next":  {},
		"react": {Dir: "stacks/react", Output: "dist/react"},
	}

	if got := cfg.Path("rules"); got != filepath.Join("/repo", "rules") {
		t.Errorf("Path(rules) = %s", got)
	}
	if got := cfg.Path("/abs/x"); got != "/abs/x" {
		t.Errorf("Path(/abs/x) = %s", got)
	}
	if got := cfg.VariantDir("next"); got != filepath.Join("variants", "next") {
		t.Errorf("VariantDir(next) = %s", got)
	}
	if got := cfg.VariantOutput("next"); got != filepath.Join("/repo", "variants", "next", "AGENTS.md") {
		t.Errorf("VariantOutput(next) = %s", got)
	}
	if got := cfg.VariantOutput("react"); got != filepath.Join("/repo", "dist", "react", "AGENTS.md") {
		t.Errorf("VariantOutput(react) = %s", got)
	}
	names := cfg.VariantNames()
	if len(names) != 2 || names[0] != "next" || names[1] != "react" {
		t.Errorf("VariantNames() = %v", names)
	}
}

func TestExpandEnvWithDefaults(t *testing.T) {
	t.Setenv("RULEBOOK_SET", "value")
	t.Setenv("RULEBOOK_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"${RULEBOOK_SET}", "value"},
		{"$RULEBOOK_SET/x", "value/x"},
		{"${RULEBOOK_UNSET:-fallback}", "fallback"},
		{"${RULEBOOK_EMPTY:-fallback}", "fallback"},
		{"${RULEBOOK_UNSET}", ""},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		if got := ExpandEnvWithDefaults(tt.in); got != tt.want {
			t.Errorf("ExpandEnvWithDefaults(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
