package config

import (
	"time"

	domainimage "image-resizer-go/internal/domain/image"
)

// DefaultConfig returns the reference policy: 20 files, 16 MiB per request.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:              "0.0.0.0",
			Port:            8080,
			StaticDir:       "./web",
			AllowOrigins:    []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "resizer.log",
		},
		Limits: LimitsConfig{
			MaxFiles:          domainimage.DefaultMaxItems,
			MaxUploadBytes:    domainimage.DefaultMaxTotalBytes,
			AllowedExtensions: append([]string(nil), domainimage.DefaultAllowedExtensions...),
		},
		Resize: ResizeConfig{
			DefaultWidth:     800,
			DefaultHeight:    600,
			JPEGQuality:      domainimage.DefaultJPEGQuality,
			CompressionLevel: domainimage.DefaultCompressionLevel,
			Workers:          0,
		},
		Observability: ObservabilityConfig{
			Enabled: true,
		},
	}
}
