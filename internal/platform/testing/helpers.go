package testing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"image-resizer-go/internal/platform/config"
	"image-resizer-go/internal/platform/logging"
)

// SetupTestConfig returns the default configuration with logging kept
// off disk and the static UI disabled.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.StaticDir = ""
	cfg.Log.Level = "debug"
	cfg.Log.Dir = ""
	cfg.Observability.Enabled = false
	return cfg
}

// SetupTestLogger returns a console-only logger writing to w, or to
// io.Discard when w is nil.
func SetupTestLogger(t *testing.T, w io.Writer) *logging.Logger {
	t.Helper()

	if w == nil {
		w = io.Discard
	}
	noColor := false
	logger, err := logging.New(logging.Config{
		Level:   "debug",
		Console: w,
		Color:   &noColor,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// PNG encodes a w x h gradient as PNG.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w x h gradient as JPEG.
func JPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 9), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	return img
}
