// Package config loads the optional .modelcritic.yml file and environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when --config is not given.
const DefaultFile = ".modelcritic.yml"

// Environment variables that override file settings.
const (
	EnvLogLevel     = "MODELCRITIC_LOG_LEVEL"
	EnvExportFormat = "MODELCRITIC_EXPORT_FORMAT"
	EnvExportPath   = "MODELCRITIC_EXPORT_PATH"
	EnvMetricsFile  = "MODELCRITIC_METRICS_FILE"
)

// Config is the whole configuration document.
type Config struct {
	Logger  Logger  `yaml:"logger"`
	Sources Sources `yaml:"sources"`
	Audit   Audit   `yaml:"audit"`
	Export  Export  `yaml:"export"`
	Metrics Metrics `yaml:"metrics"`
	Watch   Watch   `yaml:"watch"`

	// Path is the file the configuration was read from; empty for defaults.
	Path string `yaml:"-"`
}

// Logger configures hclog output.
type Logger struct {
	Level       string `yaml:"level"`
	JSONFormat  bool   `yaml:"json"`
	DisableTime bool   `yaml:"disable_time"`
}

// Sources lists where descriptors come from.
type Sources struct {
	// Builtin toggles the Go models compiled into the binary (default on).
	Builtin   *bool          `yaml:"builtin"`
	Python    []PythonSource `yaml:"python"`
	Manifests []string       `yaml:"manifests"`
}

// PythonSource is one Django project tree.
type PythonSource struct {
	Root    string   `yaml:"root"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// Audit holds defaults for audit flags.
type Audit struct {
	ExcludeNamespaces []string `yaml:"exclude_namespaces"`
	Verbose           bool     `yaml:"verbose"`
	ShowOK            bool     `yaml:"show_ok"`
	SeverityThreshold string   `yaml:"severity_threshold"`
}

// Export holds the default export target.
type Export struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Metrics configures the Prometheus textfile.
type Metrics struct {
	File string `yaml:"file"`
}

// Watch configures the watch command.
type Watch struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Logger: Logger{Level: "info", DisableTime: true},
		Watch:  Watch{Debounce: 300 * time.Millisecond},
	}
}

// BuiltinEnabled reports whether the compiled-in Go models are audited.
func (c *Config) BuiltinEnabled() bool {
	return c.Sources.Builtin == nil || *c.Sources.Builtin
}

// Load reads path (or DefaultFile when path is empty and that file exists),
// applies .env and environment overrides, and validates the result. A
// missing DefaultFile is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("YAML config %s: %w", path, err)
		}
		cfg.Path = path
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("reading config: %w", err)
	}

	applyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv(EnvExportFormat); v != "" {
		cfg.Export.Format = v
	}
	if v := os.Getenv(EnvExportPath); v != "" {
		cfg.Export.Path = v
	}
	if v := os.Getenv(EnvMetricsFile); v != "" {
		cfg.Metrics.File = v
	}
}

// LogLevels lists the accepted logger.level values.
var LogLevels = []string{"trace", "debug", "info", "warn", "warning", "error", "off"}

// ExportFormats lists the accepted export.format values.
var ExportFormats = []string{"json", "yaml", "sarif", "md"}

// SeverityThresholds lists the accepted audit.severity_threshold values.
var SeverityThresholds = []string{"info", "warn", "critical"}

// Validate checks every directive and names the first invalid one.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML config: configuration object is nil")
	}
	if err := validateLogger(&cfg.Logger); err != nil {
		return fmt.Errorf("YAML config: logger directive is invalid: %w", err)
	}
	if err := validateSources(&cfg.Sources); err != nil {
		return fmt.Errorf("YAML config: sources directive is invalid: %w", err)
	}
	if t := cfg.Audit.SeverityThreshold; t != "" && !contains(SeverityThresholds, t) {
		return fmt.Errorf("YAML config: audit directive is invalid: unknown severity_threshold %q (must be one of %s)",
			t, strings.Join(SeverityThresholds, ", "))
	}
	if err := validateExport(&cfg.Export); err != nil {
		return fmt.Errorf("YAML config: export directive is invalid: %w", err)
	}
	if err := validateDuration(cfg.Watch.Debounce, "debounce", time.Minute); err != nil {
		return fmt.Errorf("YAML config: watch directive is invalid: %w", err)
	}
	return nil
}

func validateLogger(l *Logger) error {
	if l.Level == "" {
		return nil
	}
	if !contains(LogLevels, strings.ToLower(l.Level)) {
		return fmt.Errorf("unknown level %q (must be one of %s)", l.Level, strings.Join(LogLevels, ", "))
	}
	return nil
}

func validateSources(s *Sources) error {
	for i, p := range s.Python {
		if strings.TrimSpace(p.Root) == "" {
			return fmt.Errorf("python[%d]: root is required", i)
		}
	}
	for i, m := range s.Manifests {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("manifests[%d]: empty pattern", i)
		}
	}
	return nil
}

func validateExport(e *Export) error {
	if e.Format != "" && !contains(ExportFormats, e.Format) {
		return fmt.Errorf("unknown format %q (must be one of %s)", e.Format, strings.Join(ExportFormats, ", "))
	}
	return nil
}

// validateDuration checks that d is non-negative and at most max.
func validateDuration(d time.Duration, name string, max time.Duration) error {
	if d < 0 {
		return fmt.Errorf("invalid duration for %s: %v cannot be negative", name, d)
	}
	if d > max {
		return fmt.Errorf("%s duration is too long: %v exceeds maximum of %v", name, d, max)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
