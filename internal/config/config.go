// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for threadstore.
//
// Supports both TOML and JSON formats, with sensible defaults and
// environment variable overrides.
//
// Configuration file locations (in order of precedence):
//   - ~/.threadstore/config.toml
//   - ~/.threadstore/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/threadstore/internal/model"
	"github.com/jeranaias/threadstore/internal/storage"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete threadstore configuration.
type Config struct {
	// DataDir is the directory holding per-thread JSON files.
	DataDir string `toml:"data_dir" json:"data_dir"`

	// TitlePlaceholder is the title threads carry until one is derived.
	TitlePlaceholder string `toml:"title_placeholder" json:"title_placeholder"`

	// TitleBudget is the display width derived titles are truncated to.
	TitleBudget int `toml:"title_budget" json:"title_budget"`

	// InvalidateSummaryOnAppend clears cached summaries when messages
	// are appended (stale-on-write). Set false to keep a summary until
	// it is explicitly regenerated.
	InvalidateSummaryOnAppend bool `toml:"invalidate_summary_on_append" json:"invalidate_summary_on_append"`

	// MaxThreads limits stored threads; 0 means unlimited.
	MaxThreads int `toml:"max_threads" json:"max_threads"`

	// Index configures the optional search index.
	Index IndexConfig `toml:"index" json:"index"`
}

// IndexConfig configures the SQLite search index. The index is a cache;
// disabling it never affects stored threads.
type IndexConfig struct {
	// Enabled turns the index on.
	Enabled bool `toml:"enabled" json:"enabled"`

	// Path is the SQLite database path (empty = <config dir>/index.db).
	Path string `toml:"path" json:"path"`

	// Watch re-indexes thread files changed by other processes.
	Watch bool `toml:"watch" json:"watch"`

	// DebounceMs is the watcher debounce in milliseconds.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:                   "", // resolved lazily against the home dir
		TitlePlaceholder:          model.DefaultTitlePlaceholder,
		TitleBudget:               model.DefaultTitleBudget,
		InvalidateSummaryOnAppend: true,
		MaxThreads:                0,
		Index: IndexConfig{
			Enabled:    true,
			Watch:      false,
			DebounceMs: 500,
		},
	}
}

// ConfigDir returns the threadstore configuration directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadstore"), nil
}

// ResolvedDataDir returns DataDir, defaulting to <config dir>/threads.
func (c *Config) ResolvedDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "threads"), nil
}

// ResolvedIndexPath returns Index.Path, defaulting to <config dir>/index.db.
func (c *Config) ResolvedIndexPath() (string, error) {
	if c.Index.Path != "" {
		return c.Index.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "index.db"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default locations, applies
// environment overrides, and validates. Missing files are not an error;
// defaults are used.
func Load() (*Config, error) {
	cfg := Default()

	dir, err := ConfigDir()
	if err == nil {
		tomlPath := filepath.Join(dir, "config.toml")
		jsonPath := filepath.Join(dir, "config.json")
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := loadTOML(cfg, tomlPath); err != nil {
				return nil, err
			}
		} else if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := loadJSON(cfg, jsonPath); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads configuration from an explicit file, chosen by
// extension (.toml or .json), applies env overrides, and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch filepath.Ext(path) {
	case ".toml":
		err = loadTOML(cfg, path)
	case ".json":
		err = loadJSON(cfg, path)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies THREADSTORE_* environment variables on top
// of whatever was loaded from file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("THREADSTORE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("THREADSTORE_TITLE_PLACEHOLDER"); v != "" {
		c.TitlePlaceholder = v
	}
	if v := os.Getenv("THREADSTORE_TITLE_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TitleBudget = n
		}
	}
	if v := os.Getenv("THREADSTORE_MAX_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxThreads = n
		}
	}
	if v := os.Getenv("THREADSTORE_INVALIDATE_SUMMARY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InvalidateSummaryOnAppend = b
		}
	}
	if v := os.Getenv("THREADSTORE_INDEX_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Index.Enabled = b
		}
	}
	if v := os.Getenv("THREADSTORE_INDEX_PATH"); v != "" {
		c.Index.Path = v
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks field ranges. The first problem found is returned.
func (c *Config) Validate() error {
	if c.TitleBudget <= 0 {
		return ValidationError{Field: "title_budget", Message: "must be positive"}
	}
	if c.MaxThreads < 0 {
		return ValidationError{Field: "max_threads", Message: "must not be negative"}
	}
	if c.Index.DebounceMs < 0 {
		return ValidationError{Field: "index.debounce_ms", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration as TOML to the default location.
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return SaveTOML(cfg, filepath.Join(dir, "config.toml"))
}

// SaveTOML writes the configuration as TOML to an explicit path.
func SaveTOML(cfg *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// STORE WIRING
// =============================================================================

// StoreOptions maps the configuration onto storage options.
func (c *Config) StoreOptions() storage.Options {
	return storage.Options{
		TitlePlaceholder:          c.TitlePlaceholder,
		TitleBudget:               c.TitleBudget,
		InvalidateSummaryOnAppend: c.InvalidateSummaryOnAppend,
		MaxThreads:                c.MaxThreads,
	}
}
