package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/beanwork/pkg/ordering"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.Backend != BackendFiles {
		t.Errorf("expected backend %q, got %q", BackendFiles, cfg.Store.Backend)
	}
	if cfg.SortMode() != ordering.DefaultMode {
		t.Errorf("expected default sort mode, got %q", cfg.SortMode())
	}
	if len(cfg.Panes()) != 4 {
		t.Errorf("expected 4 panes, got %d", len(cfg.Panes()))
	}
	if time.Duration(cfg.Watch.Debounce) != 200*time.Millisecond {
		t.Errorf("expected 200ms debounce, got %v", time.Duration(cfg.Watch.Debounce))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Store.Path != ".beans" {
		t.Errorf("expected default config, got path %q", cfg.Store.Path)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
store:
  backend: sqlite
  path: ~/beans/work.db
ui:
  sort_mode: updated
  panes: [active, completed]
watch:
  debounce: 750ms
  force_poll: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "beans/work.db"); cfg.Store.Path != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Store.Path)
	}
	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Store.Binary != "beans" {
		t.Errorf("binary = %q, want default", cfg.Store.Binary)
	}
	if cfg.SortMode() != ordering.ModeUpdated {
		t.Errorf("sort mode = %q", cfg.SortMode())
	}
	panes := cfg.Panes()
	if len(panes) != 2 || panes[0].Name != "active" || panes[1].Name != "completed" {
		t.Errorf("panes = %+v", panes)
	}
	if time.Duration(cfg.Watch.Debounce) != 750*time.Millisecond || !cfg.Watch.ForcePoll {
		t.Errorf("watch = %+v", cfg.Watch)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFrom_InvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("watch:\n  debounce: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFrom(path)
	if err == nil || !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_ProjectOverrideAndEnv(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv(EnvStore, "")
	t.Setenv(EnvBeansPath, "")

	user := "store:\n  backend: cli\n  binary: /opt/beans\nui:\n  sort_mode: id\n"
	if err := os.MkdirAll(filepath.Join(xdg, "beanwork"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(xdg, "beanwork", "config.yaml"), []byte(user), 0o644); err != nil {
		t.Fatal(err)
	}

	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ProjectFile), []byte("ui:\n  sort_mode: created\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(project)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendCLI || cfg.Store.Binary != "/opt/beans" {
		t.Errorf("user config not applied: %+v", cfg.Store)
	}
	if cfg.SortMode() != ordering.ModeCreated {
		t.Errorf("project override not applied: %q", cfg.SortMode())
	}

	t.Setenv(EnvStore, "SQLite")
	t.Setenv(EnvBeansPath, "/tmp/beans.db")
	cfg, err = Load(project)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Backend != BackendSQLite || cfg.Store.Path != "/tmp/beans.db" {
		t.Errorf("env overrides not applied: %+v", cfg.Store)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"backend", func(c *Config) { c.Store.Backend = "postgres" }, "unknown store backend"},
		{"sort", func(c *Config) { c.UI.SortMode = "random" }, "unknown sort mode"},
		{"pane", func(c *Config) { c.UI.Panes = []string{"active", "inbox"} }, "unknown pane"},
		{"debounce", func(c *Config) { c.Watch.Debounce = Duration(-time.Second) }, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.Store.Backend = BackendCLI
	cfg.UI.Panes = []string{"drafts"}
	cfg.Watch.Debounce = Duration(time.Second)

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "debounce: 1s") {
		t.Errorf("duration not written as a string:\n%s", data)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.Store.Backend != BackendCLI || len(loaded.UI.Panes) != 1 || loaded.Watch.Debounce != cfg.Watch.Debounce {
		t.Errorf("round trip = %+v", loaded)
	}
}

func TestConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := ConfigPath(), "/custom/config/beanwork/config.yaml"; got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()
	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := expandHome(tc.input); got != tc.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
