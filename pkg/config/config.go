// Package config handles loading and saving beanwork configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - User:    ~/.config/beanwork/config.yaml
//   - Project: .beanwork.yaml in the project root, merged over the user file
//
// BEANWORK_STORE and BEANS_PATH override the store backend and path.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/beanwork/pkg/dragdrop"
	"github.com/vanderheijden86/beanwork/pkg/ordering"
)

// Environment overrides.
const (
	EnvStore     = "BEANWORK_STORE"
	EnvBeansPath = "BEANS_PATH"
)

// ProjectFile is the per-project override file name.
const ProjectFile = ".beanwork.yaml"

// Store backends.
const (
	BackendFiles  = "files"
	BackendCLI    = "cli"
	BackendSQLite = "sqlite"
)

// StoreConfig selects and locates the bean store.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // files, cli, sqlite
	Path    string `yaml:"path,omitempty"`    // .beans directory or database file
	Binary  string `yaml:"binary,omitempty"`  // beans executable for the cli backend
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	SortMode string   `yaml:"sort_mode,omitempty"`
	Panes    []string `yaml:"panes,omitempty"`
}

// WatchConfig tunes change detection.
type WatchConfig struct {
	Debounce  Duration `yaml:"debounce,omitempty"`
	ForcePoll bool     `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Store StoreConfig `yaml:"store,omitempty"`
	UI    UIConfig    `yaml:"ui,omitempty"`
	Watch WatchConfig `yaml:"watch,omitempty"`
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendFiles,
			Path:    ".beans",
			Binary:  "beans",
		},
		UI: UIConfig{
			SortMode: string(ordering.DefaultMode),
			Panes:    []string{"active", "drafts", "completed", "scrapped"},
		},
		Watch: WatchConfig{
			Debounce: Duration(200 * time.Millisecond),
		},
	}
}

// ConfigDir returns the XDG config directory for beanwork.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "beanwork")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "beanwork")
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the user config, merges the project file found in projectDir
// (skipped when empty) and applies environment overrides.
func Load(projectDir string) (Config, error) {
	cfg := DefaultConfig()
	if path := ConfigPath(); path != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	if projectDir != "" {
		if err := mergeFile(&cfg, filepath.Join(projectDir, ProjectFile)); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Store.Binary = expandHome(cfg.Store.Binary)
	return cfg, cfg.Validate()
}

// LoadFrom reads config from a specific path without project or environment
// overrides. Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()
	if err := mergeFile(&cfg, path); err != nil {
		return cfg, err
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	cfg.Store.Binary = expandHome(cfg.Store.Binary)
	return cfg, nil
}

// mergeFile decodes path over cfg. Keys missing from the file keep their value.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvStore)); v != "" {
		cfg.Store.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvBeansPath)); v != "" {
		cfg.Store.Path = v
	}
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendFiles, BackendCLI, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q (want %s, %s or %s)", c.Store.Backend, BackendFiles, BackendCLI, BackendSQLite)
	}
	if c.UI.SortMode != "" {
		if _, ok := ordering.ParseMode(c.UI.SortMode); !ok {
			return fmt.Errorf("unknown sort mode %q", c.UI.SortMode)
		}
	}
	for _, name := range c.UI.Panes {
		if _, ok := dragdrop.PaneByName(name); !ok {
			return fmt.Errorf("unknown pane %q", name)
		}
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("negative watch debounce %s", time.Duration(c.Watch.Debounce))
	}
	return nil
}

// Panes resolves UI.Panes, falling back to every predefined pane.
func (c Config) Panes() []dragdrop.Pane {
	if len(c.UI.Panes) == 0 {
		return dragdrop.Panes()
	}
	out := make([]dragdrop.Pane, 0, len(c.UI.Panes))
	for _, name := range c.UI.Panes {
		if p, ok := dragdrop.PaneByName(name); ok {
			out = append(out, p)
		}
	}
	return out
}

// SortMode returns the configured mode, unvalidated.
func (c Config) SortMode() ordering.Mode {
	if c.UI.SortMode == "" {
		return ordering.DefaultMode
	}
	return ordering.Mode(c.UI.SortMode)
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
