package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/mocks"
)

// newOutcomeSyncService creates mock collaborators and a service for testing.
func newOutcomeSyncService(t *testing.T) (*mocks.MockOutcomeRepository, *mocks.MockLMSOutcomeClient, *OutcomeSyncService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockOutcomeRepository(ctrl)
	client := mocks.NewMockLMSOutcomeClient(ctrl)

	service := MustNewOutcomeSyncService(OutcomeSyncServiceOptions{
		Repo:   repo,
		Client: client,
		Config: config.OutcomesConfig{
			Concurrency:    1,
			Lease:          time.Minute,
			PollInterval:   time.Millisecond,
			BackoffBase:    10 * time.Second,
			BackoffCap:     60 * time.Second,
			MaxAttempts:    3,
			RequestTimeout: time.Second,
		},
	})

	return repo, client, service
}

func pendingDelivery(attempts int) *model.OutcomeDelivery {
	return &model.OutcomeDelivery{
		ID:           "del-1",
		Sourcedid:    "sourced-1",
		ServiceURL:   "https://lms.example.edu/outcomes",
		Score:        85,
		SubmissionID: "sub-1",
		Status:       model.OutcomeStatusPending,
		Attempts:     attempts,
	}
}

func TestOutcomeSyncService_ProcessDelivery_Success(t *testing.T) {
	t.Parallel()
	repo, client, service := newOutcomeSyncService(t)

	ctx := context.Background()
	delivery := pendingDelivery(0)

	client.EXPECT().
		ReplaceResult(gomock.Any(), core.ReplaceResultRequest{
			ServiceURL: "https://lms.example.edu/outcomes",
			Sourcedid:  "sourced-1",
			// The internal 0-100 score reaches the LMS on its 0-1 scale.
			Score: 0.85,
		}).
		Return(nil).
		Times(1)
	repo.EXPECT().
		MarkDelivered(ctx, core.MarkDeliveredParams{ID: "del-1", Score: 85}).
		Return(true, nil).
		Times(1)

	service.ProcessDelivery(ctx, delivery)
}

func TestOutcomeSyncService_ProcessDelivery_SupersededMidFlightRetries(t *testing.T) {
	t.Parallel()
	repo, client, service := newOutcomeSyncService(t)

	ctx := context.Background()
	delivery := pendingDelivery(0)

	// The LMS call succeeds, but the row was meanwhile coalesced to a newer
	// score, so MarkDelivered misses its score guard.
	client.EXPECT().
		ReplaceResult(gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1)
	repo.EXPECT().
		MarkDelivered(ctx, core.MarkDeliveredParams{ID: "del-1", Score: 85}).
		Return(false, nil).
		Times(1)

	// The stale attempt must not close the row; it releases the lease so the
	// newer score goes out immediately.
	before := time.Now()
	repo.EXPECT().
		Reschedule(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.RescheduleOutcomeParams) (bool, error) {
			assert.Equal(t, "del-1", params.ID)
			assert.Contains(t, params.LastError, "superseded")
			assert.WithinDuration(t, before, params.NextAttemptAt, 2*time.Second)
			return true, nil
		}).
		Times(1)

	service.ProcessDelivery(ctx, delivery)
}

func TestOutcomeSyncService_ProcessDelivery_FailureReschedules(t *testing.T) {
	t.Parallel()
	repo, client, service := newOutcomeSyncService(t)

	ctx := context.Background()
	delivery := pendingDelivery(0)

	client.EXPECT().
		ReplaceResult(gomock.Any(), gomock.Any()).
		Return(errors.New("lms returned 503")).
		Times(1)

	before := time.Now()
	repo.EXPECT().
		Reschedule(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.RescheduleOutcomeParams) (bool, error) {
			assert.Equal(t, "del-1", params.ID)
			assert.Contains(t, params.LastError, "503")
			// First retry after the base delay.
			assert.WithinDuration(t, before.Add(10*time.Second), params.NextAttemptAt, 2*time.Second)
			return true, nil
		}).
		Times(1)

	service.ProcessDelivery(ctx, delivery)
}

func TestOutcomeSyncService_ProcessDelivery_ExhaustedBudgetAbandons(t *testing.T) {
	t.Parallel()
	repo, client, service := newOutcomeSyncService(t)

	ctx := context.Background()
	// This attempt is the third and last; MaxAttempts is 3.
	delivery := pendingDelivery(2)

	client.EXPECT().
		ReplaceResult(gomock.Any(), gomock.Any()).
		Return(errors.New("lms rejected sourcedid")).
		Times(1)
	repo.EXPECT().
		Abandon(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.AbandonOutcomeParams) (bool, error) {
			assert.Equal(t, "del-1", params.ID)
			assert.Contains(t, params.LastError, "rejected")
			return true, nil
		}).
		Times(1)

	service.ProcessDelivery(ctx, delivery)
}

func TestOutcomeSyncService_ProcessDelivery_CancelledContextLeavesLease(t *testing.T) {
	t.Parallel()
	_, client, service := newOutcomeSyncService(t)

	ctx := context.Background()
	client.EXPECT().
		ReplaceResult(gomock.Any(), gomock.Any()).
		Return(context.Canceled).
		Times(1)

	// Neither rescheduled nor abandoned; the lease expires on its own.
	service.ProcessDelivery(ctx, pendingDelivery(0))
}

func TestOutcomeSyncService_BackoffDelay(t *testing.T) {
	t.Parallel()
	_, _, service := newOutcomeSyncService(t)

	assert.Equal(t, 10*time.Second, service.backoffDelay(1))
	assert.Equal(t, 20*time.Second, service.backoffDelay(2))
	assert.Equal(t, 40*time.Second, service.backoffDelay(3))
	// Doubling stops at the cap.
	assert.Equal(t, 60*time.Second, service.backoffDelay(4))
	assert.Equal(t, 60*time.Second, service.backoffDelay(10))
}

func TestOutcomeSyncService_Requeue(t *testing.T) {
	t.Parallel()
	repo, _, service := newOutcomeSyncService(t)

	ctx := context.Background()

	t.Run("requires id", func(t *testing.T) {
		_, err := service.Requeue(ctx, "")
		require.Error(t, err)
	})

	t.Run("resets abandoned delivery", func(t *testing.T) {
		repo.EXPECT().Requeue(ctx, "del-1").Return(true, nil).Times(1)

		requeued, err := service.Requeue(ctx, "del-1")
		require.NoError(t, err)
		assert.True(t, requeued)
	})

	t.Run("reports non-abandoned delivery", func(t *testing.T) {
		repo.EXPECT().Requeue(ctx, "del-2").Return(false, nil).Times(1)

		requeued, err := service.Requeue(ctx, "del-2")
		require.NoError(t, err)
		assert.False(t, requeued)
	})
}

func TestOutcomeSyncService_Run_DrainsOnCancel(t *testing.T) {
	t.Parallel()
	repo, _, service := newOutcomeSyncService(t)

	ctx, cancel := context.WithCancel(context.Background())
	repo.EXPECT().
		ReserveDue(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, model.ErrNoDeliveriesDue).
		AnyTimes()

	done := make(chan error, 1)
	go func() {
		done <- service.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("outcome sync service did not stop on context cancellation")
	}
}
