package resilience

import (
	"time"

	"github.com/plx30080-ctrl/LeadGen/internal/model"
)

// DLQEntry represents a failed ingestion candidate that can be retried later.
type DLQEntry struct {
	ID           string          `json:"id"`
	Candidate    model.Candidate `json:"candidate"`
	Error        string          `json:"error"`
	ErrorType    string          `json:"error_type"` // "transient" or "permanent"
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	NextRetryAt  time.Time       `json:"next_retry_at"`
	CreatedAt    time.Time       `json:"created_at"`
	LastFailedAt time.Time       `json:"last_failed_at"`
}

// DLQFilter narrows a dead-letter query. An empty ErrorType matches all.
type DLQFilter struct {
	ErrorType string `json:"error_type,omitempty"` // "transient" or "permanent"
	Limit     int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry has retry attempts left.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError labels an error "transient" or "permanent" for DLQ routing.
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
