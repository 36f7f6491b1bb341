package eventbus

import "time"

// Batch lifecycle topics.
const (
	EventBatchStarted   = "batch:started"
	EventBatchCompleted = "batch:completed"
	EventImageFailed    = "image:failed"
)

type BatchStartedData struct {
	BatchID string `json:"batch_id"`
	Items   int    `json:"items"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format,omitempty"`
}

type BatchCompletedData struct {
	BatchID   string        `json:"batch_id"`
	Items     int           `json:"items"`
	Successes int           `json:"successes"`
	Failures  int           `json:"failures"`
	Duration  time.Duration `json:"duration"`
	Canceled  bool          `json:"canceled,omitempty"`
}

type ImageFailedData struct {
	BatchID    string `json:"batch_id"`
	SourceName string `json:"source_name"`
	Reason     string `json:"reason"`
	Error      string `json:"error,omitempty"`
}
