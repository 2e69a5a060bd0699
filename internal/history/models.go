package history

import "time"

// Status represents the lifecycle of a conversion run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	// StatusRejected marks runs stopped by invalid input (manifest, versification
	// lookups, configuration) rather than by an I/O failure.
	StatusRejected Status = "rejected"
)

// InterruptedReason is the error message set on runs that never finished.
const InterruptedReason = "run interrupted before completion"

var allStatuses = []Status{
	StatusRunning,
	StatusCompleted,
	StatusFailed,
	StatusRejected,
}

// ParseStatus converts a raw string into a Status when it names a known value.
func ParseStatus(value string) (Status, bool) {
	for _, status := range allStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// Run is a single conversion attempt.
type Run struct {
	ID           string
	InputPath    string
	OutputDir    string
	OutputPath   string
	Language     string
	Book         string
	Mode         string
	Status       Status
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Duration reports how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ChapterRecord captures the outcome of one chapter within a run.
type ChapterRecord struct {
	RunID          string
	Chapter        int
	SelectedTakes  int
	Frames         int64
	VerseFiles     int
	RequiredVerses int
	Retained       bool
	Reason         string
	RecordedAt     time.Time
}
