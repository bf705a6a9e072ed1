package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/events"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/observability/metrics"
	"github.com/opencampus/gradeflow/internal/observability/notify"
	"github.com/opencampus/gradeflow/internal/observability/statsd"
	"github.com/opencampus/gradeflow/internal/service/failurenotifier"
)

// ResultHandler consumes the graded submission after a successful completion.
// AggregatorService implements it; the indirection keeps the dispatcher free
// of aggregation concerns.
type ResultHandler interface {
	HandleResult(ctx context.Context, submission *model.Submission) error
}

// DispatcherServiceOptions groups dependencies for DispatcherService.
type DispatcherServiceOptions struct {
	Submissions     core.SubmissionRepository // Required: submission repository
	Jobs            core.GradingJobRepository // Required: in-flight job repository
	Backend         core.GradingBackend       // Required: grading backend transport
	Results         ResultHandler             // Optional: grade aggregation hook
	Bus             *events.Bus               // Optional: event bus for status changes
	Logger          *slog.Logger              // Optional: structured logger
	Metrics         statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	FailureNotifier *failurenotifier.Service  // Optional: failure notification fan-out
}

// DispatcherService hands submissions to the grading backend and resolves
// their completion notices.
//
// This service manages:
// - The intake gate, closed until startup recovery finishes
// - One live grading job per submission, enforced through the job table
// - Idempotent handling of at-least-once completion notices.
type DispatcherService struct {
	submissions     core.SubmissionRepository
	jobs            core.GradingJobRepository
	backend         core.GradingBackend
	results         ResultHandler
	bus             *events.Bus
	logger          *slog.Logger
	metrics         statsd.Sink
	failureNotifier *failurenotifier.Service

	intakeOpen atomic.Bool
}

// NewDispatcherService constructs a new DispatcherService. The intake gate
// starts closed; call OpenIntake once recovery has reconciled stale jobs.
func NewDispatcherService(opts DispatcherServiceOptions) (*DispatcherService, error) {
	if opts.Submissions == nil {
		return nil, errors.New("SubmissionRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("GradingJobRepository is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("GradingBackend is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "dispatcher_service")
	}

	return &DispatcherService{
		submissions:     opts.Submissions,
		jobs:            opts.Jobs,
		backend:         opts.Backend,
		results:         opts.Results,
		bus:             opts.Bus,
		logger:          logger,
		metrics:         opts.Metrics,
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// MustNewDispatcherService constructs a new DispatcherService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewDispatcherService(opts DispatcherServiceOptions) *DispatcherService {
	svc, err := NewDispatcherService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create DispatcherService: %v", err))
	}
	return svc
}

// OpenIntake opens the intake gate. Called once startup recovery completes.
func (s *DispatcherService) OpenIntake() {
	if s.intakeOpen.CompareAndSwap(false, true) && s.logger != nil {
		s.logger.Info("submission intake opened")
	}
}

// IntakeOpen reports whether submissions are currently accepted for dispatch.
func (s *DispatcherService) IntakeOpen() bool {
	return s.intakeOpen.Load()
}

// Submit registers a grading job for a queued submission and hands it to the
// backend. Returns model.ErrIntakeClosed before recovery has finished,
// model.ErrAlreadyInFlight when a live job already covers the submission, and
// a *model.DispatchError when the backend enqueue fails. On dispatch failure
// the job row is removed and the submission is marked crashed so the caller
// can surface the failure and allow a resubmission.
func (s *DispatcherService) Submit(ctx context.Context, submissionID string) (*model.GradingJob, error) {
	if !s.intakeOpen.Load() {
		return nil, model.ErrIntakeClosed
	}

	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", submissionID, err)
	}
	if submission.Status != model.SubmissionStatusQueued {
		return nil, model.TransitionError(submission.Status, model.SubmissionStatusRunning)
	}

	job := &model.GradingJob{
		ID:           uuid.NewString(),
		SubmissionID: submission.ID,
		DispatchedAt: time.Now(),
	}
	if err := s.jobs.Insert(ctx, job); err != nil {
		// ErrAlreadyInFlight passes through untouched so callers can
		// distinguish the duplicate from an infrastructure failure.
		if errors.Is(err, model.ErrAlreadyInFlight) {
			return nil, err
		}
		return nil, fmt.Errorf("insert grading job: %w", err)
	}

	if err := s.markRunning(ctx, submission); err != nil {
		s.compensate(ctx, job)
		return nil, err
	}

	start := time.Now()
	if err := s.backend.Dispatch(ctx, core.DispatchRequest{
		JobID:        job.ID,
		SubmissionID: submission.ID,
		CourseID:     submission.CourseID,
		TaskID:       submission.TaskID,
		InputRef:     submission.InputRef,
	}); err != nil {
		s.compensate(ctx, job)
		s.crashSubmission(ctx, submission, fmt.Sprintf("dispatch failed: %v", err))
		s.emitStage("dispatch", metrics.ResultError, time.Since(start), err)
		return nil, &model.DispatchError{JobID: job.ID, Err: err}
	}
	s.emitStage("dispatch", metrics.ResultSuccess, time.Since(start), nil)

	if s.logger != nil {
		s.logger.DebugContext(ctx, "submission dispatched",
			"submission_id", submission.ID,
			"job_id", job.ID,
		)
	}

	return job, nil
}

// markRunning flips the submission to running and publishes the transition.
func (s *DispatcherService) markRunning(ctx context.Context, submission *model.Submission) error {
	moved, err := s.submissions.SetStatus(ctx, core.SetSubmissionStatusParams{
		ID:   submission.ID,
		From: model.SubmissionStatusQueued,
		To:   model.SubmissionStatusRunning,
	})
	if err != nil {
		return fmt.Errorf("mark submission %s running: %w", submission.ID, err)
	}
	if !moved {
		return model.TransitionError(submission.Status, model.SubmissionStatusRunning)
	}
	s.publishStatus(ctx, submission.ID, model.SubmissionStatusRunning)
	return nil
}

// compensate removes a job row after a failed dispatch so the submission can
// be retried later.
func (s *DispatcherService) compensate(ctx context.Context, job *model.GradingJob) {
	if _, err := s.jobs.Delete(ctx, job.ID); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to remove job after dispatch failure",
			"job_id", job.ID,
			"error", err,
		)
	}
}

// HandleCompletion resolves one completion notice from the grading backend.
// Notices arrive at least once; a notice whose job row no longer exists is a
// duplicate and is dropped without error.
func (s *DispatcherService) HandleCompletion(ctx context.Context, result *model.BackendResult) error {
	if err := result.Validate(); err != nil {
		return fmt.Errorf("invalid completion notice: %w", err)
	}

	job, err := s.jobs.GetByID(ctx, result.JobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			if s.logger != nil {
				s.logger.DebugContext(ctx, "dropping stale completion notice", "job_id", result.JobID)
			}
			s.emitStage("completion", metrics.ResultNoop, 0, nil)
			return nil
		}
		return fmt.Errorf("get grading job %s: %w", result.JobID, err)
	}

	start := time.Now()
	if err := s.resolve(ctx, job, result); err != nil {
		s.emitStage("completion", metrics.ResultError, time.Since(start), err)
		return err
	}
	s.emitStage("completion", metrics.ResultSuccess, time.Since(start), nil)
	return nil
}

// resolve applies the terminal status, removes the job row, and forwards done
// results to the aggregator.
func (s *DispatcherService) resolve(ctx context.Context, job *model.GradingJob, result *model.BackendResult) error {
	target := model.SubmissionStatusDone
	if result.Status == model.BackendStatusCrashed {
		target = model.SubmissionStatusCrashed
	}

	params := core.SetSubmissionStatusParams{
		ID:   job.SubmissionID,
		From: model.SubmissionStatusRunning,
		To:   target,
	}
	if target == model.SubmissionStatusDone {
		params.Grade = &result.Grade
	}
	if result.Feedback != "" {
		params.Feedback = &result.Feedback
	}

	moved, err := s.submissions.SetStatus(ctx, params)
	if err != nil {
		return fmt.Errorf("mark submission %s %s: %w", job.SubmissionID, target, err)
	}

	// The job row goes away regardless of whether this notice won the status
	// race; a duplicate that lost still refers to a resolved job.
	if _, err := s.jobs.Delete(ctx, job.ID); err != nil {
		return fmt.Errorf("delete grading job %s: %w", job.ID, err)
	}

	if !moved {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "completion notice lost the status race",
				"submission_id", job.SubmissionID,
				"job_id", job.ID,
			)
		}
		return nil
	}

	s.publishStatus(ctx, job.SubmissionID, target)

	submission, err := s.submissions.GetByID(ctx, job.SubmissionID)
	if err != nil {
		return fmt.Errorf("reload submission %s: %w", job.SubmissionID, err)
	}

	if target == model.SubmissionStatusCrashed {
		s.notifyCrash(ctx, submission, result)
		return nil
	}

	if s.results != nil {
		if err := s.results.HandleResult(ctx, submission); err != nil {
			return fmt.Errorf("aggregate submission %s: %w", submission.ID, err)
		}
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "submission graded",
			"submission_id", submission.ID,
			"grade", submission.Grade,
		)
	}

	return nil
}

func (s *DispatcherService) crashSubmission(ctx context.Context, submission *model.Submission, reason string) {
	moved, err := s.submissions.SetStatus(ctx, core.SetSubmissionStatusParams{
		ID:       submission.ID,
		From:     model.SubmissionStatusRunning,
		To:       model.SubmissionStatusCrashed,
		Feedback: &reason,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to mark submission crashed",
				"submission_id", submission.ID,
				"error", err,
			)
		}
		return
	}
	if moved {
		s.publishStatus(ctx, submission.ID, model.SubmissionStatusCrashed)
		s.notifyCrash(ctx, submission, nil)
	}
}

func (s *DispatcherService) notifyCrash(ctx context.Context, submission *model.Submission, result *model.BackendResult) {
	if s.failureNotifier == nil {
		return
	}

	errMsg := "grading crashed"
	if result != nil && result.Feedback != "" {
		errMsg = result.Feedback
	} else if submission.Feedback != nil {
		errMsg = *submission.Feedback
	}

	s.failureNotifier.NotifyGradingFailure(ctx, notify.GradingFailurePayload{
		Kind:         notify.FailureKindSubmissionCrashed,
		SubmissionID: submission.ID,
		CourseID:     submission.CourseID,
		TaskID:       submission.TaskID,
		Error:        errMsg,
		Severity:     notify.SeverityWarning,
		OccurredAt:   time.Now(),
	})
}

func (s *DispatcherService) publishStatus(ctx context.Context, submissionID string, status model.SubmissionStatus) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.JobStatusChanged{
		SubmissionID: submissionID,
		Status:       status,
		OccurredAt:   time.Now(),
	})
}

func (s *DispatcherService) emitStage(stage, result string, elapsed time.Duration, err error) {
	metrics.EmitGradingLifecycle(s.metrics, metrics.GradingMetric{
		Stage:    stage,
		Result:   result,
		Duration: elapsed,
		Err:      err,
	})
}
