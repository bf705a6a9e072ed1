package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/observability/metrics"
	"github.com/opencampus/gradeflow/internal/observability/notify"
	"github.com/opencampus/gradeflow/internal/observability/statsd"
	"github.com/opencampus/gradeflow/internal/service/failurenotifier"
)

// OutcomeSyncServiceOptions groups dependencies for OutcomeSyncService.
type OutcomeSyncServiceOptions struct {
	Repo            core.OutcomeRepository   // Required: outcome delivery queue
	Client          core.LMSOutcomeClient    // Required: LMS outcome transport
	Config          config.OutcomesConfig    // Required: worker and retry configuration
	Logger          *slog.Logger             // Optional: structured logger
	Metrics         statsd.Sink              // Optional: metrics sink (StatsD-compatible)
	FailureNotifier *failurenotifier.Service // Optional: failure notification fan-out
}

// OutcomeSyncService drains the outcome delivery queue to the LMS.
//
// This service manages:
// - A worker pool leasing due deliveries with short leases
// - Exponential retry backoff with a configurable cap
// - Abandoning deliveries that exhaust the attempt budget, with operator
//   notification.
type OutcomeSyncService struct {
	repo            core.OutcomeRepository
	client          core.LMSOutcomeClient
	config          config.OutcomesConfig
	logger          *slog.Logger
	metrics         statsd.Sink
	failureNotifier *failurenotifier.Service
}

// NewOutcomeSyncService constructs a new OutcomeSyncService.
func NewOutcomeSyncService(opts OutcomeSyncServiceOptions) (*OutcomeSyncService, error) {
	if opts.Repo == nil {
		return nil, errors.New("OutcomeRepository is required")
	}
	if opts.Client == nil {
		return nil, errors.New("LMSOutcomeClient is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "outcome_sync_service")
		logger.Debug("OutcomeSyncService initialized",
			"concurrency", opts.Config.Concurrency,
			"max_attempts", opts.Config.MaxAttempts,
			"backoff_base", opts.Config.BackoffBase,
			"backoff_cap", opts.Config.BackoffCap,
		)
	}

	return &OutcomeSyncService{
		repo:            opts.Repo,
		client:          opts.Client,
		config:          opts.Config,
		logger:          logger,
		metrics:         opts.Metrics,
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// MustNewOutcomeSyncService constructs a new OutcomeSyncService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewOutcomeSyncService(opts OutcomeSyncServiceOptions) *OutcomeSyncService {
	svc, err := NewOutcomeSyncService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create OutcomeSyncService: %v", err))
	}
	return svc
}

// Run starts the delivery worker pool and blocks until the context is
// cancelled. Returns nil on graceful shutdown.
func (s *OutcomeSyncService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting outcome sync service",
			"concurrency", s.config.Concurrency,
		)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.config.Concurrency; i++ {
		g.Go(func() error {
			return s.workerLoop(ctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// workerLoop leases and processes deliveries until the context ends.
func (s *OutcomeSyncService) workerLoop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delivery, err := s.repo.ReserveDue(ctx, time.Now(), int(s.config.Lease.Seconds()))
		switch {
		case errors.Is(err, model.ErrNoDeliveriesDue):
			if !s.sleep(ctx, s.config.PollInterval) {
				return ctx.Err()
			}
			continue
		case isContextCancellation(err):
			return err
		case err != nil:
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to reserve outcome delivery", "error", err)
			}
			if !s.sleep(ctx, s.config.PollInterval) {
				return ctx.Err()
			}
			continue
		}

		s.ProcessDelivery(ctx, delivery)
	}
}

// ProcessDelivery attempts one delivery and records the result. Exported for
// tests and for the admin drain command.
func (s *OutcomeSyncService) ProcessDelivery(ctx context.Context, delivery *model.OutcomeDelivery) {
	start := time.Now()
	err := s.attempt(ctx, delivery)
	if err == nil {
		s.markDelivered(ctx, delivery)
		s.emitDelivery(metrics.ResultSuccess, time.Since(start), nil)
		return
	}
	if isContextCancellation(err) {
		// The lease expires on its own; another worker will retry.
		return
	}

	s.emitDelivery(metrics.ResultError, time.Since(start), err)

	attempts := delivery.Attempts + 1
	if attempts >= s.config.MaxAttempts {
		s.abandon(ctx, delivery, err)
		return
	}
	s.reschedule(ctx, delivery, attempts, err)
}

// attempt performs the LMS call under the configured request timeout.
func (s *OutcomeSyncService) attempt(ctx context.Context, delivery *model.OutcomeDelivery) error {
	callCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	return s.client.ReplaceResult(callCtx, core.ReplaceResultRequest{
		ServiceURL: delivery.ServiceURL,
		Sourcedid:  delivery.Sourcedid,
		Score:      delivery.NormalizedScore(),
	})
}

func (s *OutcomeSyncService) markDelivered(ctx context.Context, delivery *model.OutcomeDelivery) {
	acked, err := s.repo.MarkDelivered(ctx, core.MarkDeliveredParams{
		ID:    delivery.ID,
		Score: delivery.Score,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to mark outcome delivered",
				"delivery_id", delivery.ID,
				"error", err,
			)
		}
		return
	}
	if !acked {
		// The row was coalesced to a newer score while this attempt was in
		// flight. The score we sent is stale; release the lease so the newer
		// score goes out right away.
		_, rErr := s.repo.Reschedule(ctx, core.RescheduleOutcomeParams{
			ID:            delivery.ID,
			NextAttemptAt: time.Now(),
			LastError:     "superseded by a newer score mid-flight",
		})
		if rErr != nil && s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to reschedule superseded outcome delivery",
				"delivery_id", delivery.ID,
				"error", rErr,
			)
		}
		if s.logger != nil {
			s.logger.InfoContext(ctx, "outcome delivery superseded mid-flight",
				"delivery_id", delivery.ID,
				"sourcedid", delivery.Sourcedid,
				"stale_score", delivery.Score,
			)
		}
		return
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "outcome delivered",
			"delivery_id", delivery.ID,
			"sourcedid", delivery.Sourcedid,
			"score", delivery.Score,
			"attempts", delivery.Attempts+1,
		)
	}
}

func (s *OutcomeSyncService) reschedule(ctx context.Context, delivery *model.OutcomeDelivery, attempts int, cause error) {
	delay := s.backoffDelay(attempts)
	_, err := s.repo.Reschedule(ctx, core.RescheduleOutcomeParams{
		ID:            delivery.ID,
		NextAttemptAt: time.Now().Add(delay),
		LastError:     cause.Error(),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to reschedule outcome delivery",
				"delivery_id", delivery.ID,
				"error", err,
			)
		}
		return
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "outcome delivery attempt failed",
			"delivery_id", delivery.ID,
			"sourcedid", delivery.Sourcedid,
			"attempts", attempts,
			"retry_in", delay,
			"error", cause,
		)
	}
}

func (s *OutcomeSyncService) abandon(ctx context.Context, delivery *model.OutcomeDelivery, cause error) {
	_, err := s.repo.Abandon(ctx, core.AbandonOutcomeParams{
		ID:        delivery.ID,
		LastError: cause.Error(),
	})
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to abandon outcome delivery",
				"delivery_id", delivery.ID,
				"error", err,
			)
		}
		return
	}

	if s.logger != nil {
		s.logger.ErrorContext(ctx, "outcome delivery abandoned",
			"delivery_id", delivery.ID,
			"sourcedid", delivery.Sourcedid,
			"attempts", delivery.Attempts+1,
			"error", cause,
		)
	}

	if s.failureNotifier != nil {
		s.failureNotifier.NotifyGradingFailure(ctx, notify.GradingFailurePayload{
			Kind:         notify.FailureKindDeliveryAbandoned,
			SubmissionID: delivery.SubmissionID,
			Sourcedid:    delivery.Sourcedid,
			Attempts:     delivery.Attempts + 1,
			Error:        cause.Error(),
			Severity:     notify.SeverityCritical,
			OccurredAt:   time.Now(),
		})
	}
}

// backoffDelay computes the retry delay for the given attempt count:
// base doubled per attempt, bounded by the configured cap.
func (s *OutcomeSyncService) backoffDelay(attempts int) time.Duration {
	delay := s.config.BackoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= s.config.BackoffCap {
			return s.config.BackoffCap
		}
	}
	if delay > s.config.BackoffCap {
		return s.config.BackoffCap
	}
	return delay
}

// Requeue resets an abandoned delivery for another retry round. Returns
// false when the delivery is not abandoned or a newer pending delivery for
// the same sourcedid superseded it.
func (s *OutcomeSyncService) Requeue(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, errors.New("delivery id is required")
	}
	requeued, err := s.repo.Requeue(ctx, id)
	if err != nil {
		return false, fmt.Errorf("requeue delivery %s: %w", id, err)
	}
	if requeued && s.logger != nil {
		s.logger.InfoContext(ctx, "abandoned delivery requeued", "delivery_id", id)
	}
	return requeued, nil
}

// ListAbandoned returns abandoned deliveries for operator review.
func (s *OutcomeSyncService) ListAbandoned(ctx context.Context, limit int) ([]*model.OutcomeDelivery, error) {
	deliveries, err := s.repo.ListAbandoned(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list abandoned deliveries: %w", err)
	}
	return deliveries, nil
}

// Stats returns delivery queue statistics.
func (s *OutcomeSyncService) Stats(ctx context.Context) (*model.OutcomeStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get outcome stats: %w", err)
	}
	return stats, nil
}

func (s *OutcomeSyncService) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *OutcomeSyncService) emitDelivery(result string, elapsed time.Duration, err error) {
	metrics.EmitGradingLifecycle(s.metrics, metrics.GradingMetric{
		Stage:    "outcome",
		Result:   result,
		Duration: elapsed,
		Err:      err,
	})
}
