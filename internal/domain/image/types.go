package image

// RawItem is one uploaded file as received from a front end.
type RawItem struct {
	Name string
	Data []byte
}

// SourceImage is an admitted upload. It is never mutated after admission.
type SourceImage struct {
	// Name is the sanitised file name, e.g. "holiday_photo.PNG".
	Name string
	// BaseName is Name without its extension.
	BaseName string
	// Extension is the lower-case extension without the dot.
	Extension string
	Data      []byte
}

// ResizeSpec is shared read-only by every transform of a batch.
type ResizeSpec struct {
	Width  int
	Height int
	// Format is FormatNone when the caller did not ask for a conversion.
	Format Format
}

// Limits are the process wide admission controls.
type Limits struct {
	MaxItems          int
	MaxTotalBytes     int64
	AllowedExtensions []string
}

// FailureReason classifies a per-item failure.
type FailureReason string

const (
	ReasonDecode      FailureReason = "decode error"
	ReasonEncode      FailureReason = "encode error"
	ReasonUnsupported FailureReason = "unsupported mode"
	ReasonCanceled    FailureReason = "canceled"
)

// Success is the payload of a transformed image.
type Success struct {
	Data       []byte
	Format     Format
	OutputName string
	Width      int
	Height     int
}

// Failure records why an image was left out of the archive.
type Failure struct {
	SourceName string
	Reason     FailureReason
	Err        error
}

// Outcome is either a Success or a Failure, never both.
type Outcome struct {
	Index      int
	SourceName string
	Success    *Success
	Failure    *Failure
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Success != nil
}

// BatchSummary holds one outcome per admitted image, in input order.
type BatchSummary struct {
	Spec         ResizeSpec
	Outcomes     []Outcome
	SuccessCount int
	FailureCount int
}

// Successes returns the successful outcomes in input order.
func (s *BatchSummary) Successes() []Success {
	out := make([]Success, 0, s.SuccessCount)
	for _, o := range s.Outcomes {
		if o.Success != nil {
			out = append(out, *o.Success)
		}
	}
	return out
}

// Failures returns the failed outcomes in input order.
func (s *BatchSummary) Failures() []Failure {
	out := make([]Failure, 0, s.FailureCount)
	for _, o := range s.Outcomes {
		if o.Failure != nil {
			out = append(out, *o.Failure)
		}
	}
	return out
}

// ArchiveEntry describes one file inside an Archive.
type ArchiveEntry struct {
	Name string
	Size int
}

// Archive is the zip produced from the successes of a batch.
type Archive struct {
	Entries []ArchiveEntry
	Data    []byte
}
