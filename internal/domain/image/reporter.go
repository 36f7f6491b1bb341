package image

import "fmt"

// FailureDetail is the externally visible form of a per-item failure.
type FailureDetail struct {
	SourceName string `json:"source_name"`
	Reason     string `json:"reason"`
	Message    string `json:"message,omitempty"`
}

// Report is what a front end needs to answer a batch.
type Report struct {
	ArchiveBytes      []byte          `json:"-"`
	SuggestedFileName string          `json:"file_name"`
	SuccessCount      int             `json:"processed"`
	FailureCount      int             `json:"failed"`
	Entries           []ArchiveEntry  `json:"entries"`
	Failures          []FailureDetail `json:"failures,omitempty"`
}

// SuggestedArchiveName is the download name for a batch resized to spec.
func SuggestedArchiveName(spec ResizeSpec) string {
	return fmt.Sprintf("resized_images_%dx%d.zip", spec.Width, spec.Height)
}

// Describe assembles the report of a finished batch.
func Describe(summary *BatchSummary, archive *Archive) (*Report, error) {
	if summary == nil || summary.SuccessCount == 0 {
		return nil, ErrNoSuccess
	}
	if archive == nil {
		return nil, withCause(ErrArchive, "image.report", fmt.Errorf("missing archive"))
	}

	report := &Report{
		ArchiveBytes:      archive.Data,
		SuggestedFileName: SuggestedArchiveName(summary.Spec),
		SuccessCount:      summary.SuccessCount,
		FailureCount:      summary.FailureCount,
		Entries:           archive.Entries,
	}
	for _, f := range summary.Failures() {
		report.Failures = append(report.Failures, FailureDetail{
			SourceName: f.SourceName,
			Reason:     string(f.Reason),
			Message:    errString(f.Err),
		})
	}
	return report, nil
}
