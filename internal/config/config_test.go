package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelcritic.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
sources:
  builtin: false
  python:
    - root: ./backend
      exclude: ["**/migrations/**"]
  manifests: ["kinds/*.yaml"]
audit:
  exclude_namespaces: [legacy]
  show_ok: true
export:
  path: out/audit.json
watch:
  debounce: 500ms
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSONFormat)
	assert.True(t, cfg.Logger.DisableTime, "defaults survive partial documents")
	assert.False(t, cfg.BuiltinEnabled())
	require.Len(t, cfg.Sources.Python, 1)
	assert.Equal(t, "./backend", cfg.Sources.Python[0].Root)
	assert.Equal(t, []string{"kinds/*.yaml"}, cfg.Sources.Manifests)
	assert.Equal(t, []string{"legacy"}, cfg.Audit.ExcludeNamespaces)
	assert.True(t, cfg.Audit.ShowOK)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_MissingDefaultIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Path)
	assert.True(t, cfg.BuiltinEnabled())
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
}

func TestLoad_MissingExplicitFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	_, err := Load(writeConfig(t, "logger:\n  colour: true\n"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvExportFormat, "sarif")
	t.Setenv(EnvMetricsFile, "/tmp/mc.prom")

	cfg, err := Load(writeConfig(t, "logger:\n  level: debug\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "sarif", cfg.Export.Format)
	assert.Equal(t, "/tmp/mc.prom", cfg.Metrics.File)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvExportPath+"=from-dotenv.json\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(EnvExportPath) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.json", cfg.Export.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad level", func(c *Config) { c.Logger.Level = "loud" }, "logger directive"},
		{"python without root", func(c *Config) { c.Sources.Python = []PythonSource{{}} }, "sources directive"},
		{"empty manifest", func(c *Config) { c.Sources.Manifests = []string{" "} }, "manifests[0]"},
		{"bad format", func(c *Config) { c.Export.Format = "xml" }, "export directive"},
		{"bad threshold", func(c *Config) { c.Audit.SeverityThreshold = "warning" }, "audit directive"},
		{"critical threshold", func(c *Config) { c.Audit.SeverityThreshold = "critical" }, ""},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "cannot be negative"},
		{"long debounce", func(c *Config) { c.Watch.Debounce = time.Hour }, "too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.Error(t, Validate(nil))
}
