package config

import (
	"compress/flate"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"image-resizer-go/internal/platform/errors"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "RESIZER_"

// candidatePaths are tried in order when no explicit path is configured.
var candidatePaths = []string{"config.yaml", ".config.yaml"}

// Loader reads a yaml file on top of DefaultConfig and applies RESIZER_* overrides.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that reads .env, the config file and the environment.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the config file; an empty path keeps the default lookup.
func (l *Loader) WithPath(path string) *Loader {
	l.path = strings.TrimSpace(path)
	return l
}

// WithEnv overrides how environment variables are read (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
// Path is empty when only defaults and the environment were used.
type Result struct {
	Config *Config
	Path   string
}

// Load resolves, parses and validates the configuration.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()

	path, err := l.resolvePath()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.read", "failed to read config file", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.parse", "failed to parse config file "+path, err)
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) resolvePath() (string, error) {
	if l.path != "" {
		if _, err := os.Stat(l.path); err != nil {
			return "", errors.Wrap(errors.KindConfig, "config.resolve", "config file not found", err)
		}
		return l.path, nil
	}
	if p, ok := l.lookupEnv(EnvPrefix + "CONFIG"); ok && strings.TrimSpace(p) != "" {
		p = strings.TrimSpace(p)
		if _, err := os.Stat(p); err != nil {
			return "", errors.Wrap(errors.KindConfig, "config.resolve", "config file not found", err)
		}
		return p, nil
	}
	for _, candidate := range candidatePaths {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := l.lookupEnv(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := l.lookupEnv(EnvPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", fmt.Sprintf("invalid %s%s", EnvPrefix, key), err)
		}
		*dst = n
		return nil
	}

	str("IP", &cfg.Server.IP)
	str("STATIC_DIR", &cfg.Server.StaticDir)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_DIR", &cfg.Log.Dir)

	if err := integer("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := integer("MAX_FILES", &cfg.Limits.MaxFiles); err != nil {
		return err
	}
	if err := integer("WORKERS", &cfg.Resize.Workers); err != nil {
		return err
	}
	if err := integer("JPEG_QUALITY", &cfg.Resize.JPEGQuality); err != nil {
		return err
	}

	if v, ok := l.lookupEnv(EnvPrefix + "MAX_UPLOAD_BYTES"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return errors.Wrap(errors.KindConfig, "config.env", "invalid "+EnvPrefix+"MAX_UPLOAD_BYTES", err)
		}
		cfg.Limits.MaxUploadBytes = n
	}
	return nil
}

func normalize(cfg *Config) {
	exts := make([]string, 0, len(cfg.Limits.AllowedExtensions))
	seen := make(map[string]struct{}, len(cfg.Limits.AllowedExtensions))
	for _, ext := range cfg.Limits.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	cfg.Limits.AllowedExtensions = exts
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultConfig().Server.ShutdownTimeout
	}
}

func (l *Loader) validate(cfg *Config) error {
	const op = "config.validate"
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, op, fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if cfg.Limits.MaxFiles <= 0 {
		return errors.New(errors.KindConfig, op, "limits.max_files must be positive")
	}
	if cfg.Limits.MaxUploadBytes <= 0 {
		return errors.New(errors.KindConfig, op, "limits.max_upload_bytes must be positive")
	}
	if len(cfg.Limits.AllowedExtensions) == 0 {
		return errors.New(errors.KindConfig, op, "limits.allowed_extensions must not be empty")
	}
	if cfg.Resize.DefaultWidth <= 0 || cfg.Resize.DefaultHeight <= 0 {
		return errors.New(errors.KindConfig, op, "resize default dimensions must be positive")
	}
	if cfg.Resize.JPEGQuality < 1 || cfg.Resize.JPEGQuality > 100 {
		return errors.New(errors.KindConfig, op, "resize.jpeg_quality must be within 1..100")
	}
	if cfg.Resize.CompressionLevel < flate.HuffmanOnly || cfg.Resize.CompressionLevel > flate.BestCompression {
		return errors.New(errors.KindConfig, op, "resize.compression_level must be within -2..9")
	}
	if cfg.Resize.Workers < 0 {
		return errors.New(errors.KindConfig, op, "resize.workers must not be negative")
	}
	return nil
}
