// Package outcomerunner provides the adapter that wires and runs the outcome
// delivery workers.
package outcomerunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/adapters/lms"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/observability/statsd"
	"github.com/opencampus/gradeflow/internal/service"
	"github.com/opencampus/gradeflow/internal/service/failurenotifier"
)

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.OutcomesConfig
	Logger *slog.Logger

	// Optional dependency injection for testing/decoupling
	Repo            core.OutcomeRepository
	Client          core.LMSOutcomeClient
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// Runner wires the outcome repository, the LMS client, and the sync service
// and runs the delivery loop.
type Runner struct {
	outcomes *service.OutcomeSyncService
	logger   *slog.Logger
}

// NewRunner creates a new outcome runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	outcomes, err := wireOutcomeSyncService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire outcome sync service: %w", err)
	}

	return &Runner{
		outcomes: outcomes,
		logger:   opts.Logger,
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

// wireOutcomeSyncService wires up all dependencies for the sync service.
func wireOutcomeSyncService(opts RunnerOptions) (*service.OutcomeSyncService, error) {
	repo := opts.Repo
	if repo == nil {
		repo = data.NewOutcomeRepo(opts.DB, data.RepoConfig{Logger: opts.Logger})
	}

	client := opts.Client
	if client == nil {
		var err error
		client, err = lms.NewClient(lms.Config{
			ConsumerKey:    opts.Config.ConsumerKey,
			ConsumerSecret: opts.Config.ConsumerSecret,
			Timeout:        opts.Config.RequestTimeout,
		}, opts.Logger)
		if err != nil {
			return nil, fmt.Errorf("create lms client: %w", err)
		}
	}

	return service.NewOutcomeSyncService(service.OutcomeSyncServiceOptions{
		Repo:            repo,
		Client:          client,
		Config:          opts.Config,
		Logger:          opts.Logger,
		Metrics:         opts.Metrics,
		FailureNotifier: opts.FailureNotifier,
	})
}

// Run starts the delivery workers and blocks until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	return r.outcomes.Run(ctx)
}

// Service exposes the wired sync service for admin commands.
func (r *Runner) Service() *service.OutcomeSyncService {
	return r.outcomes
}
