// Package config loads buildergen.yaml.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/buildergen/builder"
)

// DefaultFile is read when no --config flag is given. Its absence is not an
// error.
const DefaultFile = "buildergen.yaml"

// Config is the buildergen.yaml document.
type Config struct {
	Target      string            `yaml:"target"`
	Output      string            `yaml:"output"`
	Generator   string            `yaml:"generator"`
	Descriptors DescriptorsConfig `yaml:"descriptors"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Watch       WatchConfig       `yaml:"watch"`

	// Path is the file the config was read from; empty for built-in defaults.
	Path string `yaml:"-"`
}

// DescriptorsConfig selects descriptor files relative to the config directory.
type DescriptorsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// LoggingConfig controls the CLI log handler.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug|info|warn|error
	JSON  bool   `yaml:"json"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	File string `yaml:"file"`
}

// WatchConfig tunes change coalescing in watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	MaxWait  time.Duration `yaml:"max_wait"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	applyDefaults(c)
	return c
}

// Load reads path, or DefaultFile when path is empty. A .env file next to the
// config is loaded first without overriding the process environment, then
// ${VAR} references in the document are expanded.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	if err := loadEnvFile(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var c Config
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}
	c.Path = path

	applyDefaults(&c)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &c, nil
}

func loadEnvFile(envPath string) error {
	info, err := os.Stat(envPath)
	if err != nil {
		return nil
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("env file path '%s' is not a regular file", envPath)
	}
	if err := godotenv.Load(envPath); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envPath, err)
	}
	return nil
}

func applyDefaults(c *Config) {
	if c.Target == "" {
		c.Target = "java"
	}
	if c.Output == "" {
		c.Output = "."
	}
	if c.Generator == "" {
		c.Generator = builder.DefaultGeneratorName
	}
	if len(c.Descriptors.Include) == 0 {
		c.Descriptors.Include = []string{"**/*.builder.yaml", "**/*.builder.yml", "**/*.builder.json"}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 200 * time.Millisecond
	}
	if c.Watch.MaxWait == 0 {
		c.Watch.MaxWait = 2 * time.Second
	}
}

// Validate checks enumerations and bounds.
func (c *Config) Validate() error {
	if !slices.Contains(builder.NewTargetRegistry().Names(), c.Target) {
		return fmt.Errorf("unknown target %q", c.Target)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q (want debug|info|warn|error)", c.Logging.Level)
	}
	if c.Watch.Debounce < 0 || c.Watch.MaxWait < 0 {
		return errors.New("watch durations must not be negative")
	}
	if c.Watch.MaxWait < c.Watch.Debounce {
		return fmt.Errorf("watch.max_wait (%s) must not be shorter than watch.debounce (%s)", c.Watch.MaxWait, c.Watch.Debounce)
	}
	return nil
}

// BaseDir is the directory descriptor globs and the output path resolve
// against.
func (c *Config) BaseDir() string {
	if c.Path == "" {
		return "."
	}
	return filepath.Dir(c.Path)
}

// OutputDir resolves Output against BaseDir unless it is absolute.
func (c *Config) OutputDir() string {
	if filepath.IsAbs(c.Output) {
		return c.Output
	}
	return filepath.Join(c.BaseDir(), c.Output)
}

// MetricsPath resolves Metrics.File like OutputDir; empty disables the export.
func (c *Config) MetricsPath() string {
	if c.Metrics.File == "" || filepath.IsAbs(c.Metrics.File) {
		return c.Metrics.File
	}
	return filepath.Join(c.BaseDir(), c.Metrics.File)
}
