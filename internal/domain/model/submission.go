// Package model defines the core data types used throughout the gradeflow grading system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus represents the lifecycle state of a submission.
type SubmissionStatus string

const (
	// SubmissionStatusQueued indicates a submission is stored but not yet dispatched.
	SubmissionStatusQueued SubmissionStatus = "queued"
	// SubmissionStatusRunning indicates a grading job is in flight for the submission.
	SubmissionStatusRunning SubmissionStatus = "running"
	// SubmissionStatusDone indicates grading finished and the grade field is meaningful.
	SubmissionStatusDone SubmissionStatus = "done"
	// SubmissionStatusCrashed indicates grading terminated without a result.
	SubmissionStatusCrashed SubmissionStatus = "crashed"
)

// Valid returns true if the SubmissionStatus is one of the known states.
func (s SubmissionStatus) Valid() bool {
	return s == SubmissionStatusQueued || s == SubmissionStatusRunning ||
		s == SubmissionStatusDone || s == SubmissionStatusCrashed
}

// Terminal returns true when no further status transition is expected
// without an explicit resubmission.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusDone || s == SubmissionStatusCrashed
}

// LTIBinding links a submission to an external LMS gradebook entry.
// Submissions created outside an LMS launch carry no binding.
type LTIBinding struct {
	// OutcomeServiceURL is the LMS endpoint accepting grade reports.
	OutcomeServiceURL string `json:"outcome_service_url" db:"outcome_service_url"`
	// Sourcedid is the opaque result identifier assigned by the LMS.
	Sourcedid string `json:"sourcedid" db:"sourcedid"`
}

// Submission represents one graded attempt at a task.
// Group submissions list every member in Usernames; the first entry is the
// submitter and owns the retention slot.
type Submission struct {
	ID          string           `json:"id"                    db:"id"`
	Usernames   []string         `json:"usernames"             db:"usernames"`
	CourseID    string           `json:"course_id"             db:"course_id"`
	TaskID      string           `json:"task_id"               db:"task_id"`
	InputRef    string           `json:"input_ref"             db:"input_ref"`
	Status      SubmissionStatus `json:"status"                db:"status"`
	Grade       float64          `json:"grade"                 db:"grade"`
	Feedback    *string          `json:"feedback,omitempty"    db:"feedback"`
	LTI         *LTIBinding      `json:"lti,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"          db:"submitted_at"`
	GradedAt    *time.Time       `json:"graded_at,omitempty"   db:"graded_at"`
	UpdatedAt   time.Time        `json:"updated_at"            db:"updated_at"`
}

// Submitter returns the username owning the submission for retention purposes.
func (s *Submission) Submitter() string {
	if len(s.Usernames) == 0 {
		return ""
	}
	return s.Usernames[0]
}

// CreateSubmissionRequest represents a request to persist a new submission.
type CreateSubmissionRequest struct {
	Usernames []string    `json:"usernames"`
	CourseID  string      `json:"course_id"`
	TaskID    string      `json:"task_id"`
	InputRef  string      `json:"input_ref"`
	InputSize int64       `json:"input_size"`
	LTI       *LTIBinding `json:"lti,omitempty"`
}

// Validate checks structural requirements. Payload size/extension policy is
// enforced separately by the configured submission validator.
func (r *CreateSubmissionRequest) Validate() error {
	if len(r.Usernames) == 0 {
		return &ValidationError{Field: "usernames", Reason: "at least one username is required"}
	}
	for _, u := range r.Usernames {
		if strings.TrimSpace(u) == "" {
			return &ValidationError{Field: "usernames", Reason: "usernames must be non-empty"}
		}
	}
	if strings.TrimSpace(r.CourseID) == "" {
		return &ValidationError{Field: "course_id", Reason: "course id is required"}
	}
	if strings.TrimSpace(r.TaskID) == "" {
		return &ValidationError{Field: "task_id", Reason: "task id is required"}
	}
	if strings.TrimSpace(r.InputRef) == "" {
		return &ValidationError{Field: "input_ref", Reason: "input reference is required"}
	}
	if r.InputSize < 0 {
		return &ValidationError{Field: "input_size", Reason: "input size must be >= 0"}
	}
	if r.LTI != nil {
		if strings.TrimSpace(r.LTI.OutcomeServiceURL) == "" {
			return &ValidationError{Field: "lti.outcome_service_url", Reason: "outcome service url is required for LTI submissions"}
		}
		if strings.TrimSpace(r.LTI.Sourcedid) == "" {
			return &ValidationError{Field: "lti.sourcedid", Reason: "sourcedid is required for LTI submissions"}
		}
	}
	return nil
}

// SubmissionListOptions filters ListRecent queries.
type SubmissionListOptions struct {
	Username string
	CourseID string
	TaskID   string
	Limit    int
}

// allowedTransitions encodes the submission status state machine.
var allowedTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionStatusQueued:  {SubmissionStatusRunning, SubmissionStatusCrashed},
	SubmissionStatusRunning: {SubmissionStatusDone, SubmissionStatusCrashed},
	// Terminal submissions transition back to queued only through an
	// explicit resubmission, which creates a new row instead.
	SubmissionStatusDone:    {},
	SubmissionStatusCrashed: {},
}

// CanTransition reports whether moving from to next is a legal status change.
func CanTransition(from, to SubmissionStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a status change violates the state machine.
var ErrInvalidTransition = errors.New("invalid submission status transition")

// TransitionError decorates ErrInvalidTransition with the attempted states.
func TransitionError(from, to SubmissionStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
