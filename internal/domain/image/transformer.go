package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is used when TransformerOptions.JPEGQuality is unset.
const DefaultJPEGQuality = 90

// TransformerOptions tunes the encoders.
type TransformerOptions struct {
	JPEGQuality int
}

// Transformer turns one SourceImage into one Outcome. It holds no mutable
// state and is safe for concurrent use.
type Transformer struct {
	jpegQuality int
}

// NewTransformer constructs a transformer.
func NewTransformer(opts TransformerOptions) *Transformer {
	q := opts.JPEGQuality
	if q <= 0 || q > 100 {
		q = DefaultJPEGQuality
	}
	return &Transformer{jpegQuality: q}
}

// OutputName is the archive entry name of a transformed image.
func OutputName(baseName string, width, height int, ext string) string {
	return fmt.Sprintf("resized_%s_%dx%d.%s", baseName, width, height, ext)
}

// outputExtension keeps the uploaded extension when the source format was
// kept and the extension already names it, so photo.jpg stays .jpg.
func outputExtension(src SourceImage, requested, resolved Format) string {
	if requested == FormatNone {
		if f, ok := formatAliases[src.Extension]; ok && f == resolved {
			return src.Extension
		}
	}
	return resolved.Extension()
}

// Transform decodes, normalises, resamples and re-encodes src. Every failure,
// including a panicking codec, comes back as a failure outcome.
func (t *Transformer) Transform(ctx context.Context, src SourceImage, spec ResizeSpec) (outcome Outcome) {
	reason := ReasonDecode
	defer func() {
		if r := recover(); r != nil {
			outcome = failed(src, reason, fmt.Errorf("panic: %v", r))
		}
	}()

	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return failed(src, ReasonCanceled, err)
		}
	}

	img, decoderName, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return failed(src, ReasonDecode, err)
	}
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return failed(src, ReasonUnsupported, fmt.Errorf("empty raster %dx%d", bounds.Dx(), bounds.Dy()))
	}

	reason = ReasonUnsupported
	format := resolveFormat(spec.Format, formatFromDecoder(decoderName))
	if !format.SupportsAlpha() && hasAlphaOrPalette(img) {
		img = flattenOnWhite(img)
	}

	resized := imaging.Resize(img, spec.Width, spec.Height, imaging.Lanczos)

	reason = ReasonEncode
	data, err := t.encode(resized, format)
	if err != nil {
		return failed(src, ReasonEncode, err)
	}

	return Outcome{
		SourceName: src.Name,
		Success: &Success{
			Data:       data,
			Format:     format,
			OutputName: OutputName(src.BaseName, spec.Width, spec.Height, outputExtension(src, spec.Format, format)),
			Width:      resized.Bounds().Dx(),
			Height:     resized.Bounds().Dy(),
		},
	}
}

func (t *Transformer) encode(img image.Image, format Format) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 64*1024))

	switch format {
	case FormatWEBP:
		if err := nativewebp.Encode(buf, img, nil); err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return buf.Bytes(), nil
	case FormatGIF:
		if err := encodeGIF(buf, img); err != nil {
			return nil, fmt.Errorf("encode gif: %w", err)
		}
		return buf.Bytes(), nil
	}

	target, ok := format.imagingFormat()
	if !ok {
		return nil, fmt.Errorf("no encoder for format %s", format)
	}
	if err := imaging.Encode(buf, img, target, imaging.JPEGQuality(t.jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// gifPalette is Plan9 with its last slot given to full transparency.
var gifPalette = append(append(color.Palette{}, palette.Plan9[:255]...), color.Transparent)

const gifTransparentIndex = 255

// encodeGIF dithers the opaque colours onto gifPalette and maps every pixel
// with alpha below one half to the transparent slot.
func encodeGIF(w io.Writer, img image.Image) error {
	b := img.Bounds()
	opaque := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			opaque.SetNRGBA(x, y, c)
		}
	}

	dst := image.NewPaletted(b, gifPalette)
	draw.FloydSteinberg.Draw(dst, b, opaque, b.Min)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0x8000 {
				dst.SetColorIndex(x, y, gifTransparentIndex)
			}
		}
	}
	return gif.Encode(w, dst, &gif.Options{NumColors: len(gifPalette)})
}

// hasAlphaOrPalette reports whether the raster model carries an alpha or a
// palette channel, regardless of whether any pixel is actually transparent.
func hasAlphaOrPalette(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64,
		*image.Alpha, *image.Alpha16, *image.Paletted, *image.NYCbCrA:
		return true
	default:
		return false
	}
}

// flattenOnWhite composites img over an opaque white canvas. Alpha acts as
// the blend mask; opaque pixels are pasted unchanged.
func flattenOnWhite(img image.Image) *image.NRGBA {
	b := img.Bounds()
	canvas := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}

func failed(src SourceImage, reason FailureReason, err error) Outcome {
	return Outcome{
		SourceName: src.Name,
		Failure: &Failure{
			SourceName: src.Name,
			Reason:     reason,
			Err:        err,
		},
	}
}
