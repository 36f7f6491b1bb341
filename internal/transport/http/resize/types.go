package resize

// ResizeInfo is the body of GET /api/resize/info.
type ResizeInfo struct {
	MaxFiles          int      `json:"max_files"`
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	MaxUploadHuman    string   `json:"max_upload_human"`
	AllowedExtensions []string `json:"allowed_extensions"`
	SupportedFormats  []string `json:"supported_formats"`
	// MediaTypes maps every supported format to the content type of its output.
	MediaTypes    map[string]string `json:"media_types"`
	DefaultWidth  int               `json:"default_width"`
	DefaultHeight int               `json:"default_height"`
}

// ResizeFailure is attached to error responses of a batch that ran.
type ResizeFailure struct {
	BatchID  string          `json:"batch_id,omitempty"`
	Failures []FailureDetail `json:"failures,omitempty"`
}

type FailureDetail struct {
	SourceName string `json:"source_name"`
	Reason     string `json:"reason"`
}
