package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config captures every knob shared by the CLI, the LSP server and the HTTP
// API.
type Config struct {
	Workspace    string `yaml:"workspace"`
	LogLevel     string `yaml:"log_level"`
	KeywordsPath string `yaml:"keywords_path,omitempty"`
	// Templates are added to the default completion templates.
	Templates       map[string]string `yaml:"templates,omitempty"`
	IndexPath       string            `yaml:"index_path"`
	IgnorePatterns  []string          `yaml:"ignore_patterns"`
	ParallelWorkers int               `yaml:"parallel_workers"`
	ServerAddr      string            `yaml:"server_addr"`
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".scriptsense", "config.yaml")
}

// DefaultIgnorePatterns skip virtualenvs, caches and VCS metadata.
func DefaultIgnorePatterns() []string {
	return []string{
		"**/.git/**",
		"**/.venv/**",
		"**/venv/**",
		"**/__pycache__/**",
		"**/node_modules/**",
		"**/vendor/**",
		"**/.scriptsense/**",
	}
}

// DefaultConfig infers defaults from the current working directory. Errors
// from os.Getwd are ignored so callers can override manually.
func DefaultConfig() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Workspace:       cwd,
		LogLevel:        "info",
		IndexPath:       filepath.Join(cwd, ".scriptsense", "index.db"),
		IgnorePatterns:  DefaultIgnorePatterns(),
		ParallelWorkers: 4,
		ServerAddr:      ":8765",
	}
}

// Normalize makes paths absolute and fills missing defaults.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	absWorkspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = absWorkspace
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.IndexPath == "" {
		c.IndexPath = filepath.Join(c.Workspace, ".scriptsense", "index.db")
	}
	if !filepath.IsAbs(c.IndexPath) {
		c.IndexPath = filepath.Join(c.Workspace, c.IndexPath)
	}
	if c.KeywordsPath != "" && !filepath.IsAbs(c.KeywordsPath) {
		c.KeywordsPath = filepath.Join(c.Workspace, c.KeywordsPath)
	}
	if c.IgnorePatterns == nil {
		c.IgnorePatterns = DefaultIgnorePatterns()
	}
	if c.ParallelWorkers <= 0 {
		c.ParallelWorkers = 1
	}
	if c.ServerAddr == "" {
		c.ServerAddr = ":8765"
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Load reads a YAML config on top of DefaultConfig and normalizes it. A
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultPath(cfg.Workspace)
	}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save persists cfg for future sessions.
func Save(path string, cfg Config) error {
	if path == "" {
		return fmt.Errorf("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
