package image

import (
	"fmt"
	"strings"

	"image-resizer-go/internal/platform/logging"
)

// DefaultAllowedExtensions is the reference allow-list.
var DefaultAllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff", "webp"}

// Default limits of the reference policy.
const (
	DefaultMaxItems      = 20
	DefaultMaxTotalBytes = 16 * 1024 * 1024
)

// DefaultLimits returns the reference policy.
func DefaultLimits() Limits {
	return Limits{
		MaxItems:          DefaultMaxItems,
		MaxTotalBytes:     DefaultMaxTotalBytes,
		AllowedExtensions: append([]string(nil), DefaultAllowedExtensions...),
	}
}

// withDefaults fills zero fields from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxItems <= 0 {
		l.MaxItems = d.MaxItems
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = d.MaxTotalBytes
	}
	if len(l.AllowedExtensions) == 0 {
		l.AllowedExtensions = d.AllowedExtensions
	}
	return l
}

// Validator performs the whole batch admission pass before any decoding.
type Validator struct {
	limits  Limits
	allowed map[string]struct{}
	logger  *logging.Logger
}

// NewValidator constructs a validator for the given limits.
func NewValidator(limits Limits, logger *logging.Logger) *Validator {
	limits = limits.withDefaults()
	allowed := make(map[string]struct{}, len(limits.AllowedExtensions))
	for _, ext := range limits.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Validator{limits: limits, allowed: allowed, logger: logger}
}

// Limits returns the effective limits.
func (v *Validator) Limits() Limits {
	return v.limits
}

// Admit filters items down to the admissible set. Items without a usable
// name or with a disallowed extension are dropped silently. An empty result,
// too many items or too many bytes reject the whole batch.
func (v *Validator) Admit(items []RawItem) ([]SourceImage, error) {
	admitted := make([]SourceImage, 0, len(items))
	var total int64

	for _, item := range items {
		name := SanitizeFilename(item.Name)
		if name == "" {
			continue
		}
		base, ext := splitName(name)
		if base == "" || !v.isExtensionAllowed(ext) {
			v.logger.DebugTag("RESIZE", "skipping %q: extension not allowed", item.Name)
			continue
		}
		total += int64(len(item.Data))
		admitted = append(admitted, SourceImage{
			Name:      name,
			BaseName:  base,
			Extension: ext,
			Data:      item.Data,
		})
	}

	if len(admitted) == 0 {
		return nil, withCause(ErrNoValidImages, "image.admit",
			fmt.Errorf("%d uploaded, 0 with an allowed extension", len(items)))
	}
	if len(admitted) > v.limits.MaxItems {
		return nil, withCause(ErrTooManyFiles, "image.admit",
			fmt.Errorf("%d files, maximum is %d", len(admitted), v.limits.MaxItems))
	}
	if total > v.limits.MaxTotalBytes {
		v.logger.WarnTag("RESIZE", "rejecting batch: size=%d max_size=%d", total, v.limits.MaxTotalBytes)
		return nil, withCause(ErrPayloadTooLarge, "image.admit",
			fmt.Errorf("%d bytes, maximum is %d", total, v.limits.MaxTotalBytes))
	}

	return admitted, nil
}

func (v *Validator) isExtensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	_, ok := v.allowed[strings.ToLower(ext)]
	return ok
}

// Admit runs a one-off Validator over items.
func Admit(items []RawItem, limits Limits) ([]SourceImage, error) {
	return NewValidator(limits, nil).Admit(items)
}

// Validate rejects non-positive dimensions.
func (s ResizeSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return withCause(ErrInvalidSpec, "image.spec", fmt.Errorf("got %dx%d", s.Width, s.Height))
	}
	if s.Format != FormatNone {
		if _, ok := formatNames[s.Format]; !ok {
			return withCause(ErrUnsupportedFormat, "image.spec", fmt.Errorf("format %d", int(s.Format)))
		}
	}
	return nil
}
