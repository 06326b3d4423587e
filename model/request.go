package model

import (
	"time"
)

// ProcessingRequest tracks one analysis request from intake to its terminal
// outcome. Result and ErrorMsg are mutually exclusive: Result is set only on
// completion, ErrorMsg only on failure.
type ProcessingRequest struct {
	ID          string     `json:"request_id"`
	Tenant      string     `json:"tenant"`
	Prompt      string     `json:"prompt"`
	FileIDs     []string   `json:"file_ids"`
	Intent      string     `json:"intent,omitempty"`
	Status      string     `json:"status"`
	Result      any        `json:"result,omitempty"`
	ErrorMsg    string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"-"`
}

// Request status constants
const (
	StatusAnalyzing = "analyzing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Intent constants
const (
	IntentCompliance = "compliance"
	IntentQuery      = "query"
)

// Terminal reports whether the request reached a final state. Terminal
// records are immutable.
func (r *ProcessingRequest) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}
