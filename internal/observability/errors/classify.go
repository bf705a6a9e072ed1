// Package errors derives low-cardinality class names from pipeline errors
// for metric and log tagging.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/opencampus/gradeflow/internal/domain/model"
)

// Classify maps err to a stable class name. The pipeline's own error types
// get fixed names so dashboards can filter on them; anything else falls back
// to the innermost concrete type, snake_cased.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.Canceled):
		return "context_canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case goerrors.Is(err, model.ErrAlreadyInFlight):
		return "already_in_flight"
	case goerrors.Is(err, model.ErrIntakeClosed):
		return "intake_closed"
	case goerrors.Is(err, model.ErrBackendJobUnknown):
		return "backend_job_unknown"
	}

	var dispatchErr *model.DispatchError
	if goerrors.As(err, &dispatchErr) {
		return "dispatch_error"
	}
	var recoveryErr *model.RecoveryTimeoutError
	if goerrors.As(err, &recoveryErr) {
		return "recovery_timeout"
	}
	var validationErr *model.ValidationError
	if goerrors.As(err, &validationErr) {
		return "validation_error"
	}

	return innermostTypeName(err)
}

func innermostTypeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
