// Package config loads dupehound configuration from TOML, YAML, or JSON
// files, with defaults and load-time validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dupehound/dupehound/internal/violation"
)

// Config holds all configuration options for dupehound.
type Config struct {
	Duplicate DuplicateConfig `koanf:"duplicate"`
	Exclude   ExcludeConfig   `koanf:"exclude"`
	Index     IndexConfig     `koanf:"index"`
	Output    OutputConfig    `koanf:"output"`
}

// DuplicateConfig controls the duplicate-code rule.
type DuplicateConfig struct {
	// MinLines is the sliding window size: the minimum duplicate length in
	// normalized lines.
	MinLines int `koanf:"min_lines"`
	// MinOccurrences is how many places a block must appear to be reported.
	MinOccurrences int `koanf:"min_occurrences"`
	// MaxFileSize skips files larger than this many bytes (0 = no limit).
	MaxFileSize int64             `koanf:"max_file_size"`
	Filters     violation.Filters `koanf:"filters"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns   []string `koanf:"patterns"`
	Extensions []string `koanf:"extensions"`
	Dirs       []string `koanf:"dirs"`
	Gitignore  bool     `koanf:"gitignore"`
}

// IndexConfig controls the persistent cross-file index.
type IndexConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Duplicate: DuplicateConfig{
			MinLines:       3,
			MinOccurrences: 2,
			Filters:        violation.DefaultFilters(),
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				"*.min.js",
				"*.min.css",
			},
			Extensions: []string{
				".lock",
				".sum",
			},
			Dirs: []string{
				"vendor",
				"node_modules",
				".git",
				".dupehound",
				"dist",
				"build",
				"__pycache__",
			},
			Gitignore: true,
		},
		Index: IndexConfig{
			Enabled: true,
			Path:    filepath.Join(".dupehound", "index.db"),
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
	}
}

// Validate rejects configurations that cannot produce meaningful results.
// Called before any file is processed; failures here are fatal.
func (c *Config) Validate() error {
	if c.Duplicate.MinLines <= 0 {
		return fmt.Errorf("duplicate.min_lines must be positive, got %d", c.Duplicate.MinLines)
	}
	if c.Duplicate.MinOccurrences < 2 {
		return fmt.Errorf("duplicate.min_occurrences must be at least 2, got %d", c.Duplicate.MinOccurrences)
	}
	return nil
}

// Load loads and validates configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault tries standard config locations, falling back to defaults.
func LoadOrDefault() *Config {
	names := []string{
		"dupehound.toml",
		"dupehound.yaml",
		"dupehound.yml",
		"dupehound.json",
		".dupehound.toml",
		".dupehound.yaml",
		".dupehound.yml",
		".dupehound.json",
	}

	for _, dir := range []string{".", ".dupehound"} {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				if cfg, err := Load(path); err == nil {
					return cfg
				}
			}
		}
	}
	return DefaultConfig()
}
