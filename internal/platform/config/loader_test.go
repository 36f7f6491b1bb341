package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainimage "image-resizer-go/internal/domain/image"
	"image-resizer-go/internal/platform/errors"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", `
server:
  ip: "127.0.0.1"
  port: 9090
  shutdown_timeout: 3s
log:
  log_level: "DEBUG"
  log_dir: "/tmp/logs"
limits:
  max_files: 5
  allowed_extensions: [".PNG", "jpg", "png"]
resize:
  jpeg_quality: 75
`)

	res, err := NewLoader().WithDotEnv(false).WithEnv(envMap(nil)).WithPath(path).Load()
	require.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "127.0.0.1", cfg.Server.IP)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Limits.MaxFiles)
	assert.Equal(t, []string{"png", "jpg"}, cfg.Limits.AllowedExtensions)
	assert.Equal(t, 75, cfg.Resize.JPEGQuality)

	// untouched keys keep their defaults
	assert.Equal(t, int64(16*1024*1024), cfg.Limits.MaxUploadBytes)
	assert.Equal(t, 800, cfg.Resize.DefaultWidth)
	assert.Equal(t, "resizer.log", cfg.Log.File)
}

func TestLoader_DefaultsWithoutFile(t *testing.T) {
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(oldWd)

	res, err := NewLoader().WithDotEnv(false).WithEnv(envMap(nil)).Load()
	require.NoError(t, err)
	assert.Empty(t, res.Path)
	assert.Equal(t, 20, res.Config.Limits.MaxFiles)
	assert.Equal(t, domainimage.DefaultAllowedExtensions, res.Config.Limits.AllowedExtensions)
}

func TestLoader_CandidatePath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, ".config.yaml", "server:\n  port: 8181\n")

	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldWd)

	res, err := NewLoader().WithDotEnv(false).WithEnv(envMap(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, ".config.yaml", res.Path)
	assert.Equal(t, 8181, res.Config.Server.Port)
}

func TestLoader_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "resizer.yaml", "server:\n  port: 8181\n")

	res, err := NewLoader().WithDotEnv(false).WithEnv(envMap(map[string]string{
		"RESIZER_CONFIG":           path,
		"RESIZER_PORT":             "9191",
		"RESIZER_MAX_FILES":        "3",
		"RESIZER_MAX_UPLOAD_BYTES": "1024",
		"RESIZER_LOG_LEVEL":        "WARN",
		"RESIZER_WORKERS":          "2",
	})).Load()
	require.NoError(t, err)

	cfg := res.Config
	assert.Equal(t, path, res.Path)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Limits.MaxFiles)
	assert.Equal(t, int64(1024), cfg.Limits.MaxUploadBytes)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Resize.Workers)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := writeConfig(t, dir, "bad.yaml", "server: [not, a, map")

	tests := []struct {
		name   string
		loader *Loader
	}{
		{"missing explicit file", NewLoader().WithPath(filepath.Join(dir, "nope.yaml"))},
		{"malformed yaml", NewLoader().WithPath(bad)},
		{"bad env integer", NewLoader().WithEnv(envMap(map[string]string{"RESIZER_PORT": "eighty"}))},
		{"invalid env value", NewLoader().WithEnv(envMap(map[string]string{"RESIZER_MAX_FILES": "0"}))},
	}

	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(oldWd)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.loader.WithDotEnv(false).Load()
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindConfig), "got %v", err)
		})
	}
}

func TestLoader_Validate(t *testing.T) {
	loader := NewLoader()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"invalid server port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero max files", func(c *Config) { c.Limits.MaxFiles = 0 }, true},
		{"zero upload bytes", func(c *Config) { c.Limits.MaxUploadBytes = 0 }, true},
		{"empty allow list", func(c *Config) { c.Limits.AllowedExtensions = nil }, true},
		{"bad default width", func(c *Config) { c.Resize.DefaultWidth = -1 }, true},
		{"bad jpeg quality", func(c *Config) { c.Resize.JPEGQuality = 101 }, true},
		{"bad compression level", func(c *Config) { c.Resize.CompressionLevel = 12 }, true},
		{"no compression", func(c *Config) { c.Resize.CompressionLevel = 0 }, false},
		{"negative workers", func(c *Config) { c.Resize.Workers = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := loader.validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
