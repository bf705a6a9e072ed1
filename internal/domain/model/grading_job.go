package model

import (
	"errors"
	"strings"
	"time"
)

// GradingJob pairs a submission with one dispatch attempt to the grading
// backend. At most one live job may reference a submission; the data layer
// enforces this with a unique constraint.
type GradingJob struct {
	ID           string    `json:"id"            db:"id"`
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	DispatchedAt time.Time `json:"dispatched_at" db:"dispatched_at"`
	RetryCount   int       `json:"retry_count"   db:"retry_count"`
}

// Validate checks the job fields before insertion.
func (j *GradingJob) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("job id is required")
	}
	if strings.TrimSpace(j.SubmissionID) == "" {
		return errors.New("submission id is required")
	}
	if j.RetryCount < 0 {
		return errors.New("retry count must be >= 0")
	}
	return nil
}

// BackendStatus is the terminal outcome reported by the grading backend.
type BackendStatus string

const (
	// BackendStatusDone indicates the backend produced a grade.
	BackendStatusDone BackendStatus = "done"
	// BackendStatusCrashed indicates the sandbox failed or timed out.
	BackendStatusCrashed BackendStatus = "crashed"
)

// Valid returns true if the BackendStatus is a known terminal state.
func (s BackendStatus) Valid() bool {
	return s == BackendStatusDone || s == BackendStatusCrashed
}

// BackendResult is a completion notice from the grading backend. Completion
// notices are delivered at least once; consumers must be idempotent on JobID.
type BackendResult struct {
	JobID    string        `json:"job_id"`
	Status   BackendStatus `json:"status"`
	Grade    float64       `json:"grade"`
	Feedback string        `json:"feedback,omitempty"`
}

// Validate checks a completion notice before it enters the pipeline.
func (r *BackendResult) Validate() error {
	if strings.TrimSpace(r.JobID) == "" {
		return errors.New("job id is required")
	}
	if !r.Status.Valid() {
		return errors.New("invalid backend status")
	}
	if r.Status == BackendStatusDone && (r.Grade < 0 || r.Grade > 100) {
		return errors.New("grade must be between 0 and 100")
	}
	return nil
}
