// Package metrics defines standardised metric emission helpers for the
// grading pipeline.
package metrics

import (
	"time"

	obserrors "github.com/opencampus/gradeflow/internal/observability/errors"
	"github.com/opencampus/gradeflow/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// GradingMetric captures details about a grading lifecycle event for metric emission.
type GradingMetric struct {
	Stage    string // "dispatch", "completion", "recovery", "outcome"
	Result   string
	Duration time.Duration
	Err      error
}

// EmitGradingLifecycle emits standardised grading lifecycle metrics.
func EmitGradingLifecycle(sink statsd.Sink, in GradingMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"stage":  in.Stage,
		"result": in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("grading.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("grading.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
