// Package config handles loading and persisting docdex configuration.
//
// Configuration lives at $XDG_CONFIG_HOME/docdex/config.yaml. Every field has
// a default, so a missing config file is not an error: first run works with
// the built-in repository set and the default docs directory. The docs
// directory can be overridden with the DOCDEX_DOCS_PATH environment variable,
// which takes precedence over the config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docdex/internal/logging"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const AppName = "docdex" // application name used for config and data directories

// Default limits, mirrored in tool descriptions.
const (
	DefaultMaxFileChars     = 10000
	DefaultSnippetLength    = 200
	DefaultMaxSearchResults = 7
)

// RepoConfig describes one remote documentation repository to sync.
type RepoConfig struct {
	Name       string `yaml:"name"`                  // subdirectory under the docs dir
	URL        string `yaml:"url"`                   // git remote (HTTPS)
	SparsePath string `yaml:"sparse_path,omitempty"` // subtree to check out, empty for full checkout
	Branch     string `yaml:"branch,omitempty"`      // empty means the remote's default branch
}

// Config holds user configuration for docdex.
type Config struct {
	// DocsDir is the root directory containing the documentation corpus.
	DocsDir string `yaml:"docs_dir"`

	// Search and read limits.
	MaxFileChars     int `yaml:"max_file_chars"`
	SnippetLength    int `yaml:"snippet_length"`
	MaxSearchResults int `yaml:"max_search_results"`

	// Extensions lists the file extensions treated as documentation.
	Extensions []string `yaml:"extensions"`

	// Repositories to clone/pull into subdirectories of DocsDir.
	Repositories []RepoConfig `yaml:"repositories"`

	// Git operation timeouts in seconds.
	CloneTimeoutSecs int `yaml:"clone_timeout_secs"`
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs"`
}

// CloneTimeout returns the clone timeout as a duration.
func (c *Config) CloneTimeout() time.Duration {
	return time.Duration(c.CloneTimeoutSecs) * time.Second
}

// FetchTimeout returns the fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}

// DefaultDocsDir returns the default docs directory in the user's data directory.
func DefaultDocsDir() string {
	return filepath.Join(xdg.DataHome, AppName, "docs")
}

// DefaultConfig returns a Config with sensible defaults: the Klipper and
// Moonraker documentation trees, fetched sparsely.
func DefaultConfig() *Config {
	return &Config{
		DocsDir:          DefaultDocsDir(),
		MaxFileChars:     DefaultMaxFileChars,
		SnippetLength:    DefaultSnippetLength,
		MaxSearchResults: DefaultMaxSearchResults,
		Extensions:       []string{".md", ".txt"},
		Repositories: []RepoConfig{
			{
				Name:       "klipper",
				URL:        "https://github.com/Klipper3d/klipper.git",
				SparsePath: "docs",
			},
			{
				Name:       "moonraker",
				URL:        "https://github.com/Arksine/moonraker.git",
				SparsePath: "docs",
			},
		},
		CloneTimeoutSecs: 300,
		FetchTimeoutSecs: 60,
	}
}

// ConfigPath returns the standard config file path for the current platform.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load loads the config from the standard location, applying defaults for any
// missing fields. A missing file yields the default configuration.
func Load() (*Config, error) {
	path := ConfigPath()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.Debug("No config file, using defaults", "path", path)
			cfg := DefaultConfig()
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("cannot access config file: %w", err)
	}

	return LoadFrom(path)
}

// LoadFrom loads config from a specific path.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyDefaults fills in zero-valued limits after decoding a partial file.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}
	if c.MaxFileChars <= 0 {
		c.MaxFileChars = def.MaxFileChars
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = def.SnippetLength
	}
	if c.MaxSearchResults <= 0 {
		c.MaxSearchResults = def.MaxSearchResults
	}
	if len(c.Extensions) == 0 {
		c.Extensions = def.Extensions
	}
	if c.CloneTimeoutSecs <= 0 {
		c.CloneTimeoutSecs = def.CloneTimeoutSecs
	}
	if c.FetchTimeoutSecs <= 0 {
		c.FetchTimeoutSecs = def.FetchTimeoutSecs
	}
}

// applyEnvOverrides applies environment variable overrides. The docs dir is
// resolved to an absolute path so containment checks have a stable base.
func (c *Config) applyEnvOverrides() {
	if env := os.Getenv("DOCDEX_DOCS_PATH"); env != "" {
		c.DocsDir = env
	}
	if abs, err := filepath.Abs(c.DocsDir); err == nil {
		c.DocsDir = abs
	}
}

// Save writes the config to the standard location.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
