package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/dshills/modelcritic/internal/config"
)

// New creates an hclog.Logger writing to out. Commands pass stderr so that
// findings on stdout stay machine-readable.
func New(cfg *config.Config, name string, out io.Writer) hclog.Logger {
	if cfg == nil {
		cfg = config.Default()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:        name,
		DisableTime: cfg.Logger.DisableTime,
		JSONFormat:  cfg.Logger.JSONFormat,
		Output:      out,
		Level:       determineLogLevel(cfg, out),
	})
}

// determineLogLevel prefers MODELCRITIC_LOG_LEVEL over the configured level.
// With neither set the level is INFO.
func determineLogLevel(cfg *config.Config, out io.Writer) hclog.Level {
	if env := os.Getenv(config.EnvLogLevel); env != "" {
		return parseLogLevel(strings.ToUpper(env), out)
	}
	return parseLogLevel(strings.ToUpper(cfg.Logger.Level), out)
}

// parseLogLevel converts a string level to hclog.Level.
func parseLogLevel(levelStr string, out io.Writer) hclog.Level {
	switch levelStr {
	case "", "INFO":
		return hclog.Info
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "WARN", "WARNING":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	case "OFF":
		return hclog.Off
	default:
		hclog.New(&hclog.LoggerOptions{
			Level:       hclog.Warn,
			DisableTime: true,
			Output:      out,
		}).Warn("unrecognized log level, defaulting to INFO", "provided_level", levelStr)
		return hclog.Info
	}
}
