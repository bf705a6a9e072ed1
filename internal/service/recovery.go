package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/observability/metrics"
	"github.com/opencampus/gradeflow/internal/observability/statsd"
)

// RecoveryServiceOptions groups dependencies for RecoveryService.
type RecoveryServiceOptions struct {
	Submissions core.SubmissionRepository // Required: submission repository
	Jobs        core.GradingJobRepository // Required: in-flight job repository
	Backend     core.GradingBackend       // Required: grading backend transport
	Dispatcher  *DispatcherService        // Required: completion resolution and intake gate
	Config      config.RecoveryConfig     // Required: retry budget
	Logger      *slog.Logger              // Optional: structured logger
	Metrics     statsd.Sink               // Optional: metrics sink (StatsD-compatible)
}

// RecoveryService reconciles grading jobs left in flight by a previous
// process before submission intake opens.
//
// This service manages:
// - Querying the backend for every job found in the in-flight table
// - Resolving jobs whose result arrived while the process was down
// - Marking submissions crashed when the backend lost their job
// - Opening the intake gate exactly once the sweep succeeds.
type RecoveryService struct {
	submissions core.SubmissionRepository
	jobs        core.GradingJobRepository
	backend     core.GradingBackend
	dispatcher  *DispatcherService
	config      config.RecoveryConfig
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewRecoveryService constructs a new RecoveryService.
func NewRecoveryService(opts RecoveryServiceOptions) (*RecoveryService, error) {
	if opts.Submissions == nil {
		return nil, errors.New("SubmissionRepository is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("GradingJobRepository is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("GradingBackend is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("DispatcherService is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "recovery_service")
	}

	return &RecoveryService{
		submissions: opts.Submissions,
		jobs:        opts.Jobs,
		backend:     opts.Backend,
		dispatcher:  opts.Dispatcher,
		config:      opts.Config,
		logger:      logger,
		metrics:     opts.Metrics,
	}, nil
}

// MustNewRecoveryService constructs a new RecoveryService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewRecoveryService(opts RecoveryServiceOptions) *RecoveryService {
	svc, err := NewRecoveryService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create RecoveryService: %v", err))
	}
	return svc
}

// Run performs the startup sweep, retrying with exponential backoff up to the
// configured attempt budget, then opens the intake gate. When the budget is
// exhausted it returns a *model.RecoveryTimeoutError and intake stays closed.
func (s *RecoveryService) Run(ctx context.Context) error {
	var lastErr error
	backoff := s.config.InitialBackoff

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		start := time.Now()
		err := s.sweep(ctx)
		if err == nil {
			s.emitSweep(metrics.ResultSuccess, time.Since(start), nil)
			s.dispatcher.OpenIntake()
			return nil
		}
		if isContextCancellation(err) {
			return err
		}
		s.emitSweep(metrics.ResultError, time.Since(start), err)

		lastErr = err
		if s.logger != nil {
			s.logger.WarnContext(ctx, "recovery sweep failed",
				"attempt", attempt,
				"max_attempts", s.config.MaxAttempts,
				"backoff", backoff,
				"error", err,
			)
		}

		if attempt == s.config.MaxAttempts {
			break
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
		if backoff > s.config.MaxBackoff {
			backoff = s.config.MaxBackoff
		}
	}

	return &model.RecoveryTimeoutError{Attempts: s.config.MaxAttempts, Err: lastErr}
}

// sweep reconciles every in-flight job against the backend, then fails
// running submissions that lost their job row. Each step is idempotent, so a
// sweep interrupted halfway is safe to repeat.
func (s *RecoveryService) sweep(ctx context.Context) error {
	jobs, err := s.jobs.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active jobs: %w", err)
	}

	for _, job := range jobs {
		if err := s.reconcileJob(ctx, job); err != nil {
			return err
		}
	}

	if err := s.failOrphanedRunning(ctx); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "recovery sweep complete", "jobs_checked", len(jobs))
	}

	return nil
}

// reconcileJob resolves one in-flight job against the backend's view of it.
func (s *RecoveryService) reconcileJob(ctx context.Context, job *model.GradingJob) error {
	result, err := s.backend.Query(ctx, job.ID)
	switch {
	case errors.Is(err, model.ErrBackendJobUnknown):
		// The backend lost the job, typically because it restarted too.
		// The submission cannot finish; fail it and let the user resubmit.
		return s.crashLostJob(ctx, job)
	case err != nil:
		return fmt.Errorf("query backend for job %s: %w", job.ID, err)
	case result == nil:
		// Still grading; leave the job alone.
		return nil
	default:
		if err := s.dispatcher.HandleCompletion(ctx, result); err != nil {
			return fmt.Errorf("resolve recovered job %s: %w", job.ID, err)
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "resolved job completed while offline",
				"job_id", job.ID,
				"submission_id", job.SubmissionID,
			)
		}
		return nil
	}
}

func (s *RecoveryService) crashLostJob(ctx context.Context, job *model.GradingJob) error {
	reason := "grading backend lost the job during a restart"
	if _, err := s.submissions.SetStatus(ctx, core.SetSubmissionStatusParams{
		ID:       job.SubmissionID,
		From:     model.SubmissionStatusRunning,
		To:       model.SubmissionStatusCrashed,
		Feedback: &reason,
	}); err != nil {
		return fmt.Errorf("crash submission %s: %w", job.SubmissionID, err)
	}

	if _, err := s.jobs.Delete(ctx, job.ID); err != nil {
		return fmt.Errorf("delete lost job %s: %w", job.ID, err)
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "failed submission whose job the backend lost",
			"job_id", job.ID,
			"submission_id", job.SubmissionID,
		)
	}

	return nil
}

// failOrphanedRunning fails running submissions with no in-flight job row.
// A crash between the status flip and the job insert leaves this shape
// behind; no completion notice will ever arrive for it.
func (s *RecoveryService) failOrphanedRunning(ctx context.Context) error {
	running, err := s.submissions.ListByStatus(ctx, model.SubmissionStatusRunning, 0)
	if err != nil {
		return fmt.Errorf("list running submissions: %w", err)
	}

	for _, submission := range running {
		_, err := s.jobs.GetBySubmissionID(ctx, submission.ID)
		if err == nil {
			continue
		}
		if !isJobNotFound(err) {
			return fmt.Errorf("check job for submission %s: %w", submission.ID, err)
		}

		reason := "interrupted before the grading job was registered"
		if _, err := s.submissions.SetStatus(ctx, core.SetSubmissionStatusParams{
			ID:       submission.ID,
			From:     model.SubmissionStatusRunning,
			To:       model.SubmissionStatusCrashed,
			Feedback: &reason,
		}); err != nil {
			return fmt.Errorf("crash orphaned submission %s: %w", submission.ID, err)
		}

		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed orphaned running submission", "submission_id", submission.ID)
		}
	}

	return nil
}

func isJobNotFound(err error) bool {
	return errors.Is(err, data.ErrJobNotFound)
}

func (s *RecoveryService) emitSweep(result string, elapsed time.Duration, err error) {
	metrics.EmitGradingLifecycle(s.metrics, metrics.GradingMetric{
		Stage:    "recovery",
		Result:   result,
		Duration: elapsed,
		Err:      err,
	})
}
