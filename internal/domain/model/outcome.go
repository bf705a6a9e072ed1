package model

import (
	"errors"
	"strings"
	"time"
)

// OutcomeStatus represents the delivery state of a grade report.
type OutcomeStatus string

const (
	// OutcomeStatusPending indicates the report still awaits delivery.
	OutcomeStatusPending OutcomeStatus = "pending"
	// OutcomeStatusDelivered indicates the LMS acknowledged the report.
	OutcomeStatusDelivered OutcomeStatus = "delivered"
	// OutcomeStatusAbandoned indicates the retry budget is exhausted.
	OutcomeStatusAbandoned OutcomeStatus = "abandoned"
)

// Valid returns true if the OutcomeStatus is a known state.
func (s OutcomeStatus) Valid() bool {
	return s == OutcomeStatusPending || s == OutcomeStatusDelivered || s == OutcomeStatusAbandoned
}

// OutcomeDelivery is one durable grade report to an LMS gradebook entry.
// At most one pending row exists per sourcedid: enqueueing a newer score
// while an older report is pending replaces it (coalescing), so a stale
// retry never overtakes a fresher grade.
type OutcomeDelivery struct {
	ID            string        `json:"id"              db:"id"`
	Sourcedid     string        `json:"sourcedid"       db:"sourcedid"`
	ServiceURL    string        `json:"service_url"     db:"service_url"`
	// Score is kept on the internal 0-100 scale; normalization to the LMS
	// 0-1 scale happens at delivery time.
	Score         float64       `json:"score"           db:"score"`
	SubmissionID  string        `json:"submission_id"   db:"submission_id"`
	Status        OutcomeStatus `json:"status"          db:"status"`
	Attempts      int           `json:"attempts"        db:"attempts"`
	NextAttemptAt time.Time     `json:"next_attempt_at" db:"next_attempt_at"`
	LastError     *string       `json:"last_error,omitempty" db:"last_error"`
	CreatedAt     time.Time     `json:"created_at"      db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"      db:"updated_at"`
}

// NormalizedScore maps the internal 0-100 grade onto the LMS 0-1 scale.
func (d *OutcomeDelivery) NormalizedScore() float64 {
	score := d.Score / 100.0
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// EnqueueOutcomeRequest creates or coalesces a pending delivery.
type EnqueueOutcomeRequest struct {
	Sourcedid    string
	ServiceURL   string
	Score        float64
	SubmissionID string
}

// Validate checks the enqueue request fields.
func (r *EnqueueOutcomeRequest) Validate() error {
	if strings.TrimSpace(r.Sourcedid) == "" {
		return errors.New("sourcedid is required")
	}
	if strings.TrimSpace(r.ServiceURL) == "" {
		return errors.New("service url is required")
	}
	if r.Score < 0 || r.Score > 100 {
		return errors.New("score must be between 0 and 100")
	}
	if strings.TrimSpace(r.SubmissionID) == "" {
		return errors.New("submission id is required")
	}
	return nil
}

// OutcomeStats summarizes delivery queue health for operators.
type OutcomeStats struct {
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
	Abandoned int `json:"abandoned"`
}

// ErrNoDeliveriesDue is returned when no pending delivery is ready for an attempt.
var ErrNoDeliveriesDue = errors.New("no outcome deliveries due")
