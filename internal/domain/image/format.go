package image

import (
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Format is an output encoding.
type Format int

const (
	FormatNone Format = iota
	FormatJPEG
	FormatPNG
	FormatGIF
	FormatBMP
	FormatTIFF
	FormatWEBP
)

// FallbackFormat is used when neither the request nor the source names a format.
const FallbackFormat = FormatJPEG

// SupportedFormats lists every format a caller may request.
var SupportedFormats = []Format{FormatJPEG, FormatPNG, FormatGIF, FormatBMP, FormatTIFF, FormatWEBP}

var formatNames = map[Format]string{
	FormatJPEG: "JPEG",
	FormatPNG:  "PNG",
	FormatGIF:  "GIF",
	FormatBMP:  "BMP",
	FormatTIFF: "TIFF",
	FormatWEBP: "WEBP",
}

var formatAliases = map[string]Format{
	"jpeg": FormatJPEG,
	"jpg":  FormatJPEG,
	"png":  FormatPNG,
	"gif":  FormatGIF,
	"bmp":  FormatBMP,
	"tiff": FormatTIFF,
	"tif":  FormatTIFF,
	"webp": FormatWEBP,
}

// ParseFormat accepts a format name or extension in any case. An empty
// string yields FormatNone.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if s == "" {
		return FormatNone, nil
	}
	if f, ok := formatAliases[s]; ok {
		return f, nil
	}
	return FormatNone, withCause(ErrUnsupportedFormat, "image.parse_format", fmt.Errorf("format %q", s))
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "NONE"
}

// Extension is the file extension written for this format.
func (f Format) Extension() string {
	return strings.ToLower(f.String())
}

// MIMEType returns the media type of the encoded payload.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatWEBP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// SupportsAlpha reports whether the encoding can keep transparency.
func (f Format) SupportsAlpha() bool {
	switch f {
	case FormatPNG, FormatGIF, FormatWEBP, FormatTIFF:
		return true
	default:
		return false
	}
}

func (f Format) imagingFormat() (imaging.Format, bool) {
	switch f {
	case FormatJPEG:
		return imaging.JPEG, true
	case FormatPNG:
		return imaging.PNG, true
	case FormatBMP:
		return imaging.BMP, true
	case FormatTIFF:
		return imaging.TIFF, true
	default:
		return 0, false
	}
}

// formatFromDecoder maps the name returned by image.Decode.
func formatFromDecoder(name string) Format {
	if f, ok := formatAliases[strings.ToLower(name)]; ok {
		return f
	}
	return FormatNone
}

// resolveFormat applies: explicit request, then native format, then fallback.
func resolveFormat(requested, native Format) Format {
	if requested != FormatNone {
		return requested
	}
	if native != FormatNone {
		return native
	}
	return FallbackFormat
}
