// Package reaper provides the adapter that wires and runs the cleanup loop.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/observability/statsd"
	"github.com/opencampus/gradeflow/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo    core.ReaperRepository
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{
		reaper: reaper,
		logger: opts.Logger,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("either DB or Repo must be provided")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireReaperService wires up all dependencies for the reaper service.
func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	repo := opts.Repo
	if repo == nil {
		// The cleanup operations live on two repositories; combine them
		// behind the reaper port.
		repo = &reaperRepoAdapter{
			outcomes: data.NewOutcomeRepo(opts.DB, data.RepoConfig{Logger: opts.Logger}),
			jobs:     data.NewGradingJobRepo(opts.DB, data.RepoConfig{Logger: opts.Logger}),
		}
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		Repo:    repo,
		Config:  opts.Config,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
}

// reaperRepoAdapter satisfies core.ReaperRepository with the outcome and
// grading job repositories.
type reaperRepoAdapter struct {
	outcomes *data.OutcomeRepo
	jobs     *data.GradingJobRepo
}

func (a *reaperRepoAdapter) DeleteDeliveredOutcomes(
	ctx context.Context,
	params core.DeleteDeliveredOutcomesParams,
) (int64, error) {
	return a.outcomes.DeleteDeliveredOutcomes(ctx, params)
}

func (a *reaperRepoAdapter) DeleteOrphanedJobs(ctx context.Context, batchSize int) (int64, error) {
	return a.jobs.DeleteOrphanedJobs(ctx, batchSize)
}

// Run starts the reaper loop and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	return r.reaper.Run(ctx)
}

// Service exposes the wired reaper service for admin commands.
func (r *Runner) Service() *service.ReaperService {
	return r.reaper
}
