// Package completionrunner consumes completion notices from the grading
// backend and resolves them through the dispatcher.
package completionrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opencampus/gradeflow/internal/adapters/gradebackend"
	"github.com/opencampus/gradeflow/internal/service"
)

const popTimeout = 5 * time.Second

// RunnerOptions configures the completion runner.
type RunnerOptions struct {
	Backend    *gradebackend.Backend      // Required: completion queue source
	Dispatcher *service.DispatcherService // Required: completion resolution
	Logger     *slog.Logger

	// Concurrency is the number of consumer goroutines; defaults to 1.
	Concurrency int
}

// Runner pulls completion notices and hands them to the dispatcher.
type Runner struct {
	backend    *gradebackend.Backend
	dispatcher *service.DispatcherService
	logger     *slog.Logger
	workers    int
}

// NewRunner constructs a completion runner.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Backend == nil {
		return nil, errors.New("grading backend is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("dispatcher service is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}

	return &Runner{
		backend:    opts.Backend,
		dispatcher: opts.Dispatcher,
		logger:     logger.With("component", "completion_runner"),
		workers:    workers,
	}, nil
}

// Run starts consumer goroutines and processes notices until the context is
// cancelled. The first fatal error cancels all workers.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting completion runner", "workers", r.workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.consumerLoop(ctx); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return ctx.Err()
	}
}

func (r *Runner) consumerLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		result, err := r.backend.PopCompletion(ctx, popTimeout)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return fmt.Errorf("pop completion: %w", err)
		case result == nil:
			continue
		}

		// A list pop cannot leave the notice unacked, so a resolution
		// failure is logged and dropped here. The recovery sweep picks the
		// job up again through its still-present result key.
		if err := r.dispatcher.HandleCompletion(ctx, result); err != nil {
			r.logger.ErrorContext(ctx, "failed to resolve completion notice",
				"job_id", result.JobID,
				"error", err,
			)
		}
	}
	return nil
}
