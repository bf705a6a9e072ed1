// Package gradebackend provides the Redis transport to the external sandbox
// grading workers.
//
// The protocol uses three structures per queue namespace:
//   - a dispatch list the core LPUSHes job envelopes onto
//   - an active set holding the IDs of jobs a worker has accepted
//   - per-job result keys written when grading finishes, alongside an LPUSH
//     onto the completion list consumed by the completion runner.
package gradebackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// jobEnvelope is the wire format pushed onto the dispatch list.
type jobEnvelope struct {
	JobID        string `json:"job_id"`
	SubmissionID string `json:"submission_id"`
	CourseID     string `json:"course_id"`
	TaskID       string `json:"task_id"`
	InputRef     string `json:"input_ref"`
}

// Backend implements core.GradingBackend over Redis lists.
type Backend struct {
	client redis.UniversalClient
	config config.GradingConfig
}

// New constructs a Redis grading backend.
func New(client redis.UniversalClient, cfg config.GradingConfig) *Backend {
	return &Backend{client: client, config: cfg}
}

// Dispatch pushes the job envelope onto the dispatch list and registers the
// job in the active set. Workers take jobs from the other end of the list, so
// this returns as soon as Redis accepts the push.
func (b *Backend) Dispatch(ctx context.Context, req core.DispatchRequest) error {
	payload, err := json.Marshal(jobEnvelope{
		JobID:        req.JobID,
		SubmissionID: req.SubmissionID,
		CourseID:     req.CourseID,
		TaskID:       req.TaskID,
		InputRef:     req.InputRef,
	})
	if err != nil {
		return fmt.Errorf("marshal job envelope: %w", err)
	}

	// Registering in the active set first keeps Query from declaring a job
	// unknown in the window between the push and the worker's accept.
	if err := b.client.SAdd(ctx, b.config.ActiveSetKey, req.JobID).Err(); err != nil {
		return fmt.Errorf("register active job: %w", err)
	}
	if err := b.client.LPush(ctx, b.config.DispatchQueue, payload).Err(); err != nil {
		return fmt.Errorf("push job to dispatch queue: %w", err)
	}

	return nil
}

// Query returns the terminal result for a job if one is recorded, (nil, nil)
// while the job is still queued or grading, and model.ErrBackendJobUnknown
// when the backend has no trace of it.
func (b *Backend) Query(ctx context.Context, jobID string) (*model.BackendResult, error) {
	raw, err := b.client.Get(ctx, b.resultKey(jobID)).Bytes()
	switch {
	case err == nil:
		var result model.BackendResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode result for job %s: %w", jobID, err)
		}
		return &result, nil
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get result for job %s: %w", jobID, err)
	}

	active, err := b.client.SIsMember(ctx, b.config.ActiveSetKey, jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("check active set for job %s: %w", jobID, err)
	}
	if active {
		return nil, nil
	}

	return nil, model.ErrBackendJobUnknown
}

// PopCompletion blocks up to timeout for the next completion notice. Returns
// (nil, nil) when the timeout elapses with an empty completion list.
func (b *Backend) PopCompletion(ctx context.Context, timeout time.Duration) (*model.BackendResult, error) {
	values, err := b.client.BRPop(ctx, timeout, b.config.CompletionQueue).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("pop completion: %w", err)
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("malformed BRPOP reply: %d values", len(values))
	}

	var result model.BackendResult
	if err := json.Unmarshal([]byte(values[1]), &result); err != nil {
		return nil, fmt.Errorf("decode completion notice: %w", err)
	}
	return &result, nil
}

// PushCompletion records a terminal result the way a grading worker does:
// write the result key, clear the active set entry, and push the completion
// notice. Used by tests and by the local development worker.
func (b *Backend) PushCompletion(ctx context.Context, result *model.BackendResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := b.client.Set(ctx, b.resultKey(result.JobID), payload, b.config.ResultTTL).Err(); err != nil {
		return fmt.Errorf("store result for job %s: %w", result.JobID, err)
	}
	if err := b.client.SRem(ctx, b.config.ActiveSetKey, result.JobID).Err(); err != nil {
		return fmt.Errorf("clear active job %s: %w", result.JobID, err)
	}
	if err := b.client.LPush(ctx, b.config.CompletionQueue, payload).Err(); err != nil {
		return fmt.Errorf("push completion notice: %w", err)
	}

	return nil
}

func (b *Backend) resultKey(jobID string) string {
	return b.config.ResultKeyPrefix + jobID
}
