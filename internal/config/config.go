// Package config loads tspack.config.yaml: file-level defaults for the CLI
// flags, overridden by any flag the user actually passes.
//
// Grounded on the teacher's cmd/uispec/config.go (ProjectConfig,
// loadProjectConfig's "missing file is not an error" convention), widened
// from a single catalog-path override to the full set of CLI defaults this
// project's flags need.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tspack/tspack/internal/obslog"
)

// FileName is the config file tspack looks for in the working directory.
const FileName = "tspack.config.yaml"

// Config is the parsed contents of tspack.config.yaml. Every field is
// optional; an absent field leaves the corresponding built-in default (or
// CLI-flag default) untouched.
type Config struct {
	EntryPoint   string `yaml:"entry_point"`
	ImportMap    string `yaml:"import_map"`
	OutJS        string `yaml:"out_js"`
	OutDts       string `yaml:"out_dts"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	WatchDebounceMs int `yaml:"watch_debounce_ms"`
}

// Load reads path (FileName if empty). A missing file is not an error: it
// returns a zero Config, matching the teacher's "project config is
// optional" convention.
func Load(path string) (Config, error) {
	if path == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LogConfig turns the file config's logging fields into an obslog.Config,
// applying built-in defaults for anything unset.
func (c Config) LogConfig(output *os.File) obslog.Config {
	cfg := obslog.Default()
	if output != nil {
		cfg.Output = output
	}
	switch c.LogLevel {
	case "debug":
		cfg.Level = obslog.LevelDebug
	case "warn":
		cfg.Level = obslog.LevelWarn
	case "error":
		cfg.Level = obslog.LevelError
	case "info":
		cfg.Level = obslog.LevelInfo
	}
	switch c.LogFormat {
	case "text":
		cfg.Format = obslog.FormatText
	case "json":
		cfg.Format = obslog.FormatJSON
	}
	return cfg
}

// StringOr returns override if non-empty, else fallback.
func StringOr(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
