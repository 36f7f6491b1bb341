package image

import "image-resizer-go/internal/platform/errors"

// Whole batch failures. Compare with errors.Is; wrapped variants carry the
// same kind and message with extra detail in Cause.
var (
	ErrInvalidSpec       = errors.New(errors.KindAdmission, "image.spec", "width and height must be positive")
	ErrUnsupportedFormat = errors.New(errors.KindAdmission, "image.spec", "unsupported output format")
	ErrNoValidImages     = errors.New(errors.KindAdmission, "image.admit", "no valid images")
	ErrTooManyFiles      = errors.New(errors.KindAdmission, "image.admit", "too many files")
	ErrPayloadTooLarge   = errors.New(errors.KindAdmission, "image.admit", "payload too large")
	ErrNoSuccess         = errors.New(errors.KindBatch, "image.report", "no images were processed successfully")
	ErrArchive           = errors.New(errors.KindArchive, "image.archive", "could not produce archive")
)

func withCause(sentinel *errors.Error, op string, cause error) *errors.Error {
	return &errors.Error{
		Kind:    sentinel.Kind,
		Op:      op,
		Message: sentinel.Message,
		Cause:   cause,
	}
}
