/*
PURPOSE:
  Defines the tool settings structure and loading logic for GitML.
  Settings tune how artifacts are written and how the CLI behaves; the
  project identity (name, author) lives in .gitml.json, see internal/project.

REQUIREMENTS:
  User-specified:
  - Pluggable model serializer.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (GITML_...).
  - Artifacts can get large; compression is opt-in per project.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, pkg/gitml
  - Dependencies: gopkg.in/yaml.v3

ERROR HANDLING:
  - Returns explicit error if a config file is invalid.
  - A missing config file falls back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults must work for a project that has never seen a config file.

USAGE:
  cfg, err := config.Load("", projectRoot)

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct, DefaultConfig() and Validate().

RELATED FILES:
  - internal/cli/root.go
  - internal/archive/serializer.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/daryltucker/gitml/internal/archive"
	"github.com/daryltucker/gitml/internal/project"
)

// Config represents the tool settings for one project.
type Config struct {
	// Serializer is the model codec: "cbor" or "json".
	Serializer string `yaml:"serializer"`
	// Compression for model artifacts: "none", "zstd" or "lz4".
	Compression string `yaml:"compression"`
	// LogFormat is "auto" (text on a terminal, JSON otherwise), "text" or "json".
	LogFormat string `yaml:"log_format"`
	LogLevel  string `yaml:"log_level"`
	// ExtraIgnores are excluded from code snapshots on top of .gitignore.
	ExtraIgnores []string `yaml:"extra_ignores"`
	// AssumeYes answers every confirmation prompt with yes.
	AssumeYes bool   `yaml:"assume_yes"`
	GitBinary string `yaml:"git_binary"`
	// Lock takes an advisory lock on the project for mutating commands.
	Lock bool `yaml:"lock"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Serializer:  "cbor",
		Compression: "none",
		LogFormat:   "auto",
		LogLevel:    "info",
		GitBinary:   "git",
		Lock:        true,
	}
}

// DefaultFiles are searched, relative to the project root, when no
// explicit config path is given.
var DefaultFiles = []string{project.SettingsFileName, filepath.Join(project.DirName, "config.yaml")}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches DefaultFiles under root in order.
// If no file found, returns default config.
// Environment overrides are applied last.
func Load(path, root string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if root != "" {
		for _, name := range DefaultFiles {
			candidate := filepath.Join(root, name)
			data, err = os.ReadFile(candidate)
			if err == nil {
				path = candidate
				break
			}
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", candidate, err)
			}
		}
	}

	if path != "" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GITML_SERIALIZER"); v != "" {
		c.Serializer = v
	}
	if v := os.Getenv("GITML_COMPRESSION"); v != "" {
		c.Compression = v
	}
	if v := os.Getenv("GITML_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("GITML_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("GITML_ASSUME_YES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AssumeYes = b
		}
	}
}

// Validate checks enumerated fields.
func (c *Config) Validate() error {
	if _, err := archive.ParseCompression(c.Compression); err != nil {
		return err
	}
	switch c.Serializer {
	case "", "cbor", "json":
	default:
		return fmt.Errorf("unknown serializer: %q", c.Serializer)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("unknown log format: %q", c.LogFormat)
	}
	return nil
}

// ArtifactOptions builds the serializer and compression the config names.
func (c *Config) ArtifactOptions() (archive.ArtifactOptions, error) {
	serializer, err := archive.SerializerByName(c.Serializer)
	if err != nil {
		return archive.ArtifactOptions{}, err
	}
	compression, err := archive.ParseCompression(c.Compression)
	if err != nil {
		return archive.ArtifactOptions{}, err
	}
	return archive.ArtifactOptions{Serializer: serializer, Compression: compression}, nil
}
