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
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/mocks"
)

type recoveryMocks struct {
	submissions *mocks.MockSubmissionRepository
	jobs        *mocks.MockGradingJobRepository
	backend     *mocks.MockGradingBackend
}

// newRecoveryService wires a recovery service against a real dispatcher so
// recovered completions take the same resolution path as live ones. The
// dispatcher's intake gate starts closed, as it does at startup.
func newRecoveryService(t *testing.T, maxAttempts int) (recoveryMocks, *DispatcherService, *RecoveryService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := recoveryMocks{
		submissions: mocks.NewMockSubmissionRepository(ctrl),
		jobs:        mocks.NewMockGradingJobRepository(ctrl),
		backend:     mocks.NewMockGradingBackend(ctrl),
	}

	dispatcher := MustNewDispatcherService(DispatcherServiceOptions{
		Submissions: m.submissions,
		Jobs:        m.jobs,
		Backend:     m.backend,
	})

	recovery := MustNewRecoveryService(RecoveryServiceOptions{
		Submissions: m.submissions,
		Jobs:        m.jobs,
		Backend:     m.backend,
		Dispatcher:  dispatcher,
		Config: config.RecoveryConfig{
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			MaxAttempts:    maxAttempts,
		},
	})

	return m, dispatcher, recovery
}

func TestRecoveryService_Run_EmptySweepOpensIntake(t *testing.T) {
	t.Parallel()
	m, dispatcher, recovery := newRecoveryService(t, 3)

	ctx := context.Background()
	m.jobs.EXPECT().ListActive(ctx).Return(nil, nil).Times(1)
	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return(nil, nil).
		Times(1)

	require.False(t, dispatcher.IntakeOpen())
	require.NoError(t, recovery.Run(ctx))
	assert.True(t, dispatcher.IntakeOpen())
}

func TestRecoveryService_Run_LostJobCrashesSubmission(t *testing.T) {
	t.Parallel()
	m, dispatcher, recovery := newRecoveryService(t, 1)

	ctx := context.Background()
	job := &model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}

	m.jobs.EXPECT().ListActive(ctx).Return([]*model.GradingJob{job}, nil).Times(1)
	m.backend.EXPECT().
		Query(ctx, "job-1").
		Return(nil, model.ErrBackendJobUnknown).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SetSubmissionStatusParams) (bool, error) {
			assert.Equal(t, "sub-1", params.ID)
			assert.Equal(t, model.SubmissionStatusRunning, params.From)
			assert.Equal(t, model.SubmissionStatusCrashed, params.To)
			require.NotNil(t, params.Feedback)
			return true, nil
		}).
		Times(1)
	m.jobs.EXPECT().Delete(ctx, "job-1").Return(true, nil).Times(1)
	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return(nil, nil).
		Times(1)

	require.NoError(t, recovery.Run(ctx))
	assert.True(t, dispatcher.IntakeOpen())
}

func TestRecoveryService_Run_InProgressJobLeftAlone(t *testing.T) {
	t.Parallel()
	m, _, recovery := newRecoveryService(t, 1)

	ctx := context.Background()
	job := &model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}

	m.jobs.EXPECT().ListActive(ctx).Return([]*model.GradingJob{job}, nil).Times(1)
	// Still grading: no result yet, no error.
	m.backend.EXPECT().Query(ctx, "job-1").Return(nil, nil).Times(1)
	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return(nil, nil).
		Times(1)

	require.NoError(t, recovery.Run(ctx))
}

func TestRecoveryService_Run_ResolvesJobCompletedOffline(t *testing.T) {
	t.Parallel()
	m, _, recovery := newRecoveryService(t, 1)

	ctx := context.Background()
	job := &model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}
	result := &model.BackendResult{JobID: "job-1", Status: model.BackendStatusDone, Grade: 75}

	m.jobs.EXPECT().ListActive(ctx).Return([]*model.GradingJob{job}, nil).Times(1)
	m.backend.EXPECT().Query(ctx, "job-1").Return(result, nil).Times(1)

	// The result flows through the dispatcher's completion path.
	m.jobs.EXPECT().GetByID(ctx, "job-1").Return(job, nil).Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SetSubmissionStatusParams) (bool, error) {
			assert.Equal(t, model.SubmissionStatusDone, params.To)
			require.NotNil(t, params.Grade)
			assert.InDelta(t, 75, *params.Grade, 0.001)
			return true, nil
		}).
		Times(1)
	m.jobs.EXPECT().Delete(ctx, "job-1").Return(true, nil).Times(1)
	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(&model.Submission{ID: "sub-1", Status: model.SubmissionStatusDone, Grade: 75}, nil).
		Times(1)

	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return(nil, nil).
		Times(1)

	require.NoError(t, recovery.Run(ctx))
}

func TestRecoveryService_Run_SecondSweepChangesNothing(t *testing.T) {
	t.Parallel()
	m, dispatcher, recovery := newRecoveryService(t, 1)

	ctx := context.Background()
	job := &model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}
	result := &model.BackendResult{JobID: "job-1", Status: model.BackendStatusDone, Grade: 75}

	// First sweep resolves a job that completed while the process was down.
	gomock.InOrder(
		m.jobs.EXPECT().ListActive(ctx).Return([]*model.GradingJob{job}, nil),
		m.jobs.EXPECT().ListActive(ctx).Return(nil, nil),
	)
	m.backend.EXPECT().Query(ctx, "job-1").Return(result, nil).Times(1)
	m.jobs.EXPECT().GetByID(ctx, "job-1").Return(job, nil).Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		Return(true, nil).
		Times(1)
	m.jobs.EXPECT().Delete(ctx, "job-1").Return(true, nil).Times(1)
	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(&model.Submission{ID: "sub-1", Status: model.SubmissionStatusDone, Grade: 75}, nil).
		Times(1)
	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return(nil, nil).
		Times(2)

	require.NoError(t, recovery.Run(ctx))
	require.True(t, dispatcher.IntakeOpen())

	// A repeated sweep over the settled state reads and mutates nothing else;
	// the strict mock controller fails this test on any extra call.
	require.NoError(t, recovery.Run(ctx))
	assert.True(t, dispatcher.IntakeOpen())
}

func TestRecoveryService_Run_FailsOrphanedRunningSubmissions(t *testing.T) {
	t.Parallel()
	m, _, recovery := newRecoveryService(t, 1)

	ctx := context.Background()
	orphan := &model.Submission{ID: "sub-1", Status: model.SubmissionStatusRunning}

	m.jobs.EXPECT().ListActive(ctx).Return(nil, nil).Times(1)
	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return([]*model.Submission{orphan}, nil).
		Times(1)
	m.jobs.EXPECT().
		GetBySubmissionID(ctx, "sub-1").
		Return(nil, data.ErrJobNotFound).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SetSubmissionStatusParams) (bool, error) {
			assert.Equal(t, "sub-1", params.ID)
			assert.Equal(t, model.SubmissionStatusCrashed, params.To)
			return true, nil
		}).
		Times(1)

	require.NoError(t, recovery.Run(ctx))
}

func TestRecoveryService_Run_ExhaustedBudgetKeepsIntakeClosed(t *testing.T) {
	t.Parallel()
	m, dispatcher, recovery := newRecoveryService(t, 2)

	ctx := context.Background()
	m.jobs.EXPECT().
		ListActive(ctx).
		Return(nil, errors.New("backend unreachable")).
		Times(2)

	err := recovery.Run(ctx)

	var timeoutErr *model.RecoveryTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 2, timeoutErr.Attempts)
	assert.False(t, dispatcher.IntakeOpen())
}

func TestRecoveryService_Run_RetriesAfterTransientFailure(t *testing.T) {
	t.Parallel()
	m, dispatcher, recovery := newRecoveryService(t, 3)

	ctx := context.Background()
	gomock.InOrder(
		m.jobs.EXPECT().ListActive(ctx).Return(nil, errors.New("backend unreachable")),
		m.jobs.EXPECT().ListActive(ctx).Return(nil, nil),
	)
	m.submissions.EXPECT().
		ListByStatus(ctx, model.SubmissionStatusRunning, 0).
		Return(nil, nil).
		Times(1)

	require.NoError(t, recovery.Run(ctx))
	assert.True(t, dispatcher.IntakeOpen())
}
