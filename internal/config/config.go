// Package config provides configuration for the groundc compiler.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = "groundc.yaml"

// Config holds compiler configuration.
type Config struct {
	// Grounder is the grounder binary. Empty disables grounding-directed
	// instantiation.
	Grounder string `yaml:"grounder"`
	// GrounderArgs are passed to the grounder before the program file.
	GrounderArgs []string `yaml:"grounder_args"`
	// WorkDir holds grounder scratch files. Empty uses a temporary directory.
	WorkDir string `yaml:"work_dir"`
	// CacheDir holds the grounder result cache.
	CacheDir string `yaml:"cache_dir"`
	// Cache enables the grounder result cache.
	Cache bool `yaml:"cache"`
	// Compress writes static side files zstd-compressed.
	Compress bool `yaml:"compress"`
	// OutDir is where task documents are written.
	OutDir string `yaml:"out_dir"`
	// Indent pretty-prints task documents.
	Indent bool `yaml:"indent"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GrounderArgs: []string{"--text"},
		CacheDir:     ".groundc",
		OutDir:       "./out",
		Indent:       true,
		LogLevel:     "info",
	}
}

// LoadFile overlays a YAML file onto cfg. A missing file is not an error.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from defaults, the optional file at path, and the
// environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		return nil, err
	}
	applyEnv(cfg)
	return cfg, nil
}

// FromEnv creates a Config from defaults and environment variables.
func FromEnv() *Config {
	cfg := Default()
	applyEnv(cfg)
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Grounder = getEnv("GROUNDC_GROUNDER", cfg.Grounder)
	cfg.GrounderArgs = getEnvList("GROUNDC_GROUNDER_ARGS", cfg.GrounderArgs)
	cfg.WorkDir = getEnv("GROUNDC_WORK_DIR", cfg.WorkDir)
	cfg.CacheDir = getEnv("GROUNDC_CACHE_DIR", cfg.CacheDir)
	cfg.Cache = getEnvBool("GROUNDC_CACHE", cfg.Cache)
	cfg.Compress = getEnvBool("GROUNDC_COMPRESS", cfg.Compress)
	cfg.OutDir = getEnv("GROUNDC_OUT", cfg.OutDir)
	cfg.Indent = getEnvBool("GROUNDC_INDENT", cfg.Indent)
	cfg.LogLevel = getEnv("GROUNDC_LOG_LEVEL", cfg.LogLevel)
}

// FromArgs overrides cfg with explicit values. Empty values keep the
// configured setting.
func (c *Config) FromArgs(grounder, outDir, logLevel string) *Config {
	if grounder != "" {
		c.Grounder = grounder
	}
	if outDir != "" {
		c.OutDir = outDir
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	return c
}

// Level parses LogLevel. Unknown levels fall back to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IndentString is the JSON indent for task documents.
func (c *Config) IndentString() string {
	if c.Indent {
		return "  "
	}
	return ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.Fields(val)
	}
	return defaultVal
}
