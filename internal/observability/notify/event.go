package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Failure kinds carried in GradingFailurePayload.Kind.
const (
	FailureKindSubmissionCrashed = "submission_crashed"
	FailureKindDeliveryAbandoned = "delivery_abandoned"
)

// GradingFailurePayload captures the canonical data emitted to the operator
// channel when grading or outcome delivery goes permanently wrong: a crashed
// submission, or an outcome delivery that exhausted its retry budget.
type GradingFailurePayload struct {
	Kind         string // "submission_crashed" or "delivery_abandoned"
	SubmissionID string
	CourseID     string
	TaskID       string
	Sourcedid    string
	Attempts     int
	Error        string
	Severity     string
	OccurredAt   time.Time
	Metadata     map[string]string
}

// Sink describes a destination capable of consuming grading failure notifications.
type Sink interface {
	SendGradingFailure(ctx context.Context, payload GradingFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload GradingFailurePayload) error

// SendGradingFailure implements the Sink interface.
func (f SinkFunc) SendGradingFailure(ctx context.Context, payload GradingFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
