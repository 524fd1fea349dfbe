package domain

import "time"

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// NormalizeRun is the ledger entry written by the worker for each request it serves.
type NormalizeRun struct {
	ID           string        `json:"id"`
	Source       string        `json:"source"`
	Format       FormatKind    `json:"format,omitempty"`
	Chars        int           `json:"chars"`
	Truncated    bool          `json:"truncated"`
	Status       RunStatus     `json:"status"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Resource is a retrieved remote body.
type Resource struct {
	URL         string
	ContentType string
	StatusCode  int
	Body        []byte
}
