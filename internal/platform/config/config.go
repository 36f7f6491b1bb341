package config

import (
	"time"
)

type Config struct {
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Limits        LimitsConfig        `yaml:"limits" mapstructure:"limits"`
	Resize        ResizeConfig        `yaml:"resize" mapstructure:"resize"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
}

type ServerConfig struct {
	IP              string        `yaml:"ip" mapstructure:"ip"`
	Port            int           `yaml:"port" mapstructure:"port"`
	StaticDir       string        `yaml:"static_dir" mapstructure:"static_dir"`
	AllowOrigins    []string      `yaml:"allow_origins" mapstructure:"allow_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `yaml:"log_level" mapstructure:"log_level"`
	Dir   string `yaml:"log_dir" mapstructure:"log_dir"`
	File  string `yaml:"log_file" mapstructure:"log_file"`
}

// LimitsConfig bounds the work a single batch may request.
type LimitsConfig struct {
	MaxFiles          int      `yaml:"max_files" mapstructure:"max_files"`
	MaxUploadBytes    int64    `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	AllowedExtensions []string `yaml:"allowed_extensions" mapstructure:"allowed_extensions"`
}

type ResizeConfig struct {
	DefaultWidth     int `yaml:"default_width" mapstructure:"default_width"`
	DefaultHeight    int `yaml:"default_height" mapstructure:"default_height"`
	JPEGQuality      int `yaml:"jpeg_quality" mapstructure:"jpeg_quality"`
	CompressionLevel int `yaml:"compression_level" mapstructure:"compression_level"`
	// Workers caps the per batch worker pool; 0 means GOMAXPROCS.
	Workers int `yaml:"workers" mapstructure:"workers"`
}

type ObservabilityConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}
