package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a submission payload rejected before persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrAlreadyInFlight is returned when a grading job already exists for a submission.
// Re-submission is rejected, never silently duplicated.
var ErrAlreadyInFlight = errors.New("a grading job is already in flight for this submission")

// ErrBackendJobUnknown is returned by backend queries for jobs the backend has lost.
var ErrBackendJobUnknown = errors.New("grading backend does not know this job")

// ErrIntakeClosed is returned when submissions are rejected because startup
// recovery has not finished yet.
var ErrIntakeClosed = errors.New("submission intake is closed until pending job recovery completes")

// ErrDeliveryAbandoned marks an outcome delivery that exhausted its retry budget.
var ErrDeliveryAbandoned = errors.New("outcome delivery abandoned after exhausting retries")

// DispatchError wraps a transport failure while handing a job to the grading
// backend. The job row is removed and the submission is marked crashed with a
// failure notice; the student resubmits.
type DispatchError struct {
	JobID string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch job %s: %v", e.JobID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// RecoveryTimeoutError is returned when the startup recovery sweep could not
// reach the grading backend within its configured budget.
type RecoveryTimeoutError struct {
	Attempts int
	Err      error
}

func (e *RecoveryTimeoutError) Error() string {
	return fmt.Sprintf("pending job recovery timed out after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RecoveryTimeoutError) Unwrap() error { return e.Err }
