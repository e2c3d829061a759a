// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/planweave/planweave/internal/timeline"
)

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault  ConfigSource = "default"
	SourceUserFile ConfigSource = "user file"
	SourceProjFile ConfigSource = "project file"
	SourceEnv      ConfigSource = "environment"
	SourceFlag     ConfigSource = "flag"
)

// Default values.
const (
	DefaultPlanFile   = "plan.json"
	DefaultSchemaFile = "plan.schema.json"
	DefaultLogDir     = "~/.planweave"
	DefaultZoom       = string(timeline.ZoomMedium)
)

// Config holds the full configuration for planweave.
type Config struct {
	// Paths
	PlanFile   string `toml:"plan_file"`
	SchemaFile string `toml:"schema_file"`
	LogDir     string `toml:"log_dir"`

	// Timeline
	Zoom string `toml:"zoom"`

	// Project root (computed)
	ProjectRoot string `toml:"-"`
}

// ConfigWithSources holds configuration along with source information
// for each field.
type ConfigWithSources struct {
	Config  *Config
	Sources map[string]ConfigSource
}

// Load loads configuration from multiple sources in priority order:
// 1. Defaults
// 2. User config file (~/.planweave/config.toml)
// 3. Project config file (planweave.toml or .planweave.toml in current directory)
// 4. Environment variables (PLANWEAVE_*)
// 5. CLI flags
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cws, err := LoadWithSources(fs, args)
	if err != nil {
		return nil, err
	}
	return cws.Config, nil
}

// LoadWithSources loads configuration and tracks the source of each value.
func LoadWithSources(fs *flag.FlagSet, args []string) (*ConfigWithSources, error) {
	cfg := &Config{}
	sources := make(map[string]ConfigSource)

	setDefaults(cfg)
	for _, field := range configFields() {
		sources[field] = SourceDefault
	}

	if path := findUserConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, sources, SourceUserFile); err != nil {
			return nil, fmt.Errorf("loading user config file %s: %w", path, err)
		}
	}

	if path := findProjectConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path, sources, SourceProjFile); err != nil {
			return nil, fmt.Errorf("loading project config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg, sources)

	if err := parseFlags(cfg, fs, args, sources); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	if err := finalize(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}

	return &ConfigWithSources{Config: cfg, Sources: sources}, nil
}

// configFields returns the configurable field names for source tracking.
func configFields() []string {
	return []string{
		"plan_file",
		"schema_file",
		"log_dir",
		"zoom",
	}
}

func setDefaults(cfg *Config) {
	cfg.PlanFile = DefaultPlanFile
	cfg.SchemaFile = DefaultSchemaFile
	cfg.LogDir = DefaultLogDir
	cfg.Zoom = DefaultZoom
}

func findUserConfigFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".planweave", "config.toml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func findProjectConfigFile() string {
	for _, name := range []string{"planweave.toml", ".planweave.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func loadConfigFile(cfg *Config, path string, sources map[string]ConfigSource, source ConfigSource) error {
	// Decode into a fresh struct so only keys present in the file
	// override earlier layers.
	var fileCfg Config
	meta, err := toml.DecodeFile(path, &fileCfg)
	if err != nil {
		return err
	}

	for _, key := range meta.Keys() {
		switch key.String() {
		case "plan_file":
			cfg.PlanFile = fileCfg.PlanFile
			sources["plan_file"] = source
		case "schema_file":
			cfg.SchemaFile = fileCfg.SchemaFile
			sources["schema_file"] = source
		case "log_dir":
			cfg.LogDir = fileCfg.LogDir
			sources["log_dir"] = source
		case "zoom":
			cfg.Zoom = fileCfg.Zoom
			sources["zoom"] = source
		}
	}
	return nil
}

func loadFromEnv(cfg *Config, sources map[string]ConfigSource) {
	if v := os.Getenv("PLANWEAVE_PLAN_FILE"); v != "" {
		cfg.PlanFile = v
		sources["plan_file"] = SourceEnv
	}
	if v := os.Getenv("PLANWEAVE_SCHEMA_FILE"); v != "" {
		cfg.SchemaFile = v
		sources["schema_file"] = SourceEnv
	}
	if v := os.Getenv("PLANWEAVE_LOG_DIR"); v != "" {
		cfg.LogDir = v
		sources["log_dir"] = SourceEnv
	}
	if v := os.Getenv("PLANWEAVE_ZOOM"); v != "" {
		cfg.Zoom = v
		sources["zoom"] = SourceEnv
	}
}

func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	planFile := fs.String("plan", "", "Plan file path")
	schemaFile := fs.String("schema", "", "Plan schema file path")
	logDir := fs.String("log-dir", "", "Log directory")
	zoom := fs.String("zoom", "", "Zoom level (coarse|medium|fine)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *planFile != "" {
		cfg.PlanFile = *planFile
		sources["plan_file"] = SourceFlag
	}
	if *schemaFile != "" {
		cfg.SchemaFile = *schemaFile
		sources["schema_file"] = SourceFlag
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
		sources["log_dir"] = SourceFlag
	}
	if *zoom != "" {
		cfg.Zoom = *zoom
		sources["zoom"] = SourceFlag
	}
	return nil
}

func finalize(cfg *Config) error {
	if _, err := timeline.ParseZoom(cfg.Zoom); err != nil {
		return err
	}

	cfg.LogDir = expandHome(cfg.LogDir)

	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	cfg.ProjectRoot = root
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}

// ZoomLevel returns the validated zoom preset.
func (c *Config) ZoomLevel() timeline.Zoom {
	z, err := timeline.ParseZoom(c.Zoom)
	if err != nil {
		return timeline.ZoomMedium
	}
	return z
}

// PlanPath returns the plan file path resolved against the project root.
func (c *Config) PlanPath() string {
	if filepath.IsAbs(c.PlanFile) {
		return c.PlanFile
	}
	return filepath.Join(c.ProjectRoot, c.PlanFile)
}

// SchemaPath returns the schema file path resolved against the project
// root, or "" when unset.
func (c *Config) SchemaPath() string {
	if c.SchemaFile == "" {
		return ""
	}
	if filepath.IsAbs(c.SchemaFile) {
		return c.SchemaFile
	}
	return filepath.Join(c.ProjectRoot, c.SchemaFile)
}
