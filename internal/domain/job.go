package domain

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates the lifecycle of a server-tracked long-running job.
// Completed and failed are terminal; processing is transient.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the read-side view of a long-running generation unit (business
// profile creation, campaign generation). The external collaborator owns and
// mutates it; the poller only reads.
type Job struct {
	ID           string          `json:"id"`
	Status       JobStatus       `json:"status"`
	RequestData  json.RawMessage `json:"request_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	BusinessID   string          `json:"business_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// PollingPhase is the UI-visible sub-state of a business-profile creation
// job, beyond the raw job status.
type PollingPhase string

const (
	PhaseAnalyzing  PollingPhase = "analyzing"
	PhaseScreenshot PollingPhase = "screenshot"
	PhaseDone       PollingPhase = "done"
	PhaseFailed     PollingPhase = "failed"
)
