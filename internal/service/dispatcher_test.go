package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/mocks"
)

type dispatcherMocks struct {
	submissions *mocks.MockSubmissionRepository
	jobs        *mocks.MockGradingJobRepository
	backend     *mocks.MockGradingBackend
}

// recordingResultHandler captures submissions forwarded by the dispatcher.
type recordingResultHandler struct {
	handled []*model.Submission
	err     error
}

func (h *recordingResultHandler) HandleResult(_ context.Context, submission *model.Submission) error {
	h.handled = append(h.handled, submission)
	return h.err
}

// newDispatcherService creates mock collaborators and a service for testing.
// The intake gate starts open; close-gate behavior has its own test.
func newDispatcherService(t *testing.T, results ResultHandler) (dispatcherMocks, *DispatcherService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := dispatcherMocks{
		submissions: mocks.NewMockSubmissionRepository(ctrl),
		jobs:        mocks.NewMockGradingJobRepository(ctrl),
		backend:     mocks.NewMockGradingBackend(ctrl),
	}

	service := MustNewDispatcherService(DispatcherServiceOptions{
		Submissions: m.submissions,
		Jobs:        m.jobs,
		Backend:     m.backend,
		Results:     results,
	})
	service.OpenIntake()

	return m, service
}

func queuedSubmission() *model.Submission {
	return &model.Submission{
		ID:        "sub-1",
		Usernames: []string{"alice"},
		CourseID:  "algo101",
		TaskID:    "sorting",
		InputRef:  "inputs/alice/sorting/1",
		Status:    model.SubmissionStatusQueued,
	}
}

func TestDispatcherService_Submit_IntakeClosed(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	service := MustNewDispatcherService(DispatcherServiceOptions{
		Submissions: mocks.NewMockSubmissionRepository(ctrl),
		Jobs:        mocks.NewMockGradingJobRepository(ctrl),
		Backend:     mocks.NewMockGradingBackend(ctrl),
	})

	job, err := service.Submit(context.Background(), "sub-1")
	require.ErrorIs(t, err, model.ErrIntakeClosed)
	assert.Nil(t, job)
	assert.False(t, service.IntakeOpen())
}

func TestDispatcherService_Submit_Success(t *testing.T) {
	t.Parallel()
	m, service := newDispatcherService(t, nil)

	ctx := context.Background()
	submission := queuedSubmission()

	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(submission, nil).
		Times(1)

	var inserted *model.GradingJob
	m.jobs.EXPECT().
		Insert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, job *model.GradingJob) error {
			inserted = job
			return nil
		}).
		Times(1)

	m.submissions.EXPECT().
		SetStatus(ctx, core.SetSubmissionStatusParams{
			ID:   "sub-1",
			From: model.SubmissionStatusQueued,
			To:   model.SubmissionStatusRunning,
		}).
		Return(true, nil).
		Times(1)

	m.backend.EXPECT().
		Dispatch(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, req core.DispatchRequest) error {
			assert.Equal(t, inserted.ID, req.JobID)
			assert.Equal(t, "sub-1", req.SubmissionID)
			assert.Equal(t, "algo101", req.CourseID)
			assert.Equal(t, "sorting", req.TaskID)
			assert.Equal(t, "inputs/alice/sorting/1", req.InputRef)
			return nil
		}).
		Times(1)

	job, err := service.Submit(ctx, "sub-1")

	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, "sub-1", job.SubmissionID)
	assert.NotEmpty(t, job.ID)
}

func TestDispatcherService_Submit_AlreadyInFlight(t *testing.T) {
	t.Parallel()
	m, service := newDispatcherService(t, nil)

	ctx := context.Background()
	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(queuedSubmission(), nil).
		Times(1)
	m.jobs.EXPECT().
		Insert(ctx, gomock.Any()).
		Return(model.ErrAlreadyInFlight).
		Times(1)

	job, err := service.Submit(ctx, "sub-1")

	require.ErrorIs(t, err, model.ErrAlreadyInFlight)
	assert.Nil(t, job)
}

func TestDispatcherService_Submit_RejectsNonQueued(t *testing.T) {
	t.Parallel()
	m, service := newDispatcherService(t, nil)

	ctx := context.Background()
	running := queuedSubmission()
	running.Status = model.SubmissionStatusRunning

	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(running, nil).
		Times(1)

	_, err := service.Submit(ctx, "sub-1")
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestDispatcherService_Submit_DispatchFailureCompensates(t *testing.T) {
	t.Parallel()
	m, service := newDispatcherService(t, nil)

	ctx := context.Background()
	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(queuedSubmission(), nil).
		Times(1)

	var inserted *model.GradingJob
	m.jobs.EXPECT().
		Insert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, job *model.GradingJob) error {
			inserted = job
			return nil
		}).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, core.SetSubmissionStatusParams{
			ID:   "sub-1",
			From: model.SubmissionStatusQueued,
			To:   model.SubmissionStatusRunning,
		}).
		Return(true, nil).
		Times(1)

	m.backend.EXPECT().
		Dispatch(ctx, gomock.Any()).
		Return(errors.New("redis down")).
		Times(1)

	// The job row is removed and the submission is failed so a resubmission
	// is possible.
	m.jobs.EXPECT().
		Delete(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (bool, error) {
			assert.Equal(t, inserted.ID, id)
			return true, nil
		}).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SetSubmissionStatusParams) (bool, error) {
			assert.Equal(t, model.SubmissionStatusRunning, params.From)
			assert.Equal(t, model.SubmissionStatusCrashed, params.To)
			require.NotNil(t, params.Feedback)
			return true, nil
		}).
		Times(1)

	job, err := service.Submit(ctx, "sub-1")

	assert.Nil(t, job)
	var dispatchErr *model.DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, inserted.ID, dispatchErr.JobID)
}

func TestDispatcherService_HandleCompletion_Done(t *testing.T) {
	t.Parallel()
	results := &recordingResultHandler{}
	m, service := newDispatcherService(t, results)

	ctx := context.Background()
	job := &model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}
	result := &model.BackendResult{JobID: "job-1", Status: model.BackendStatusDone, Grade: 87.5}

	m.jobs.EXPECT().
		GetByID(ctx, "job-1").
		Return(job, nil).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SetSubmissionStatusParams) (bool, error) {
			assert.Equal(t, "sub-1", params.ID)
			assert.Equal(t, model.SubmissionStatusRunning, params.From)
			assert.Equal(t, model.SubmissionStatusDone, params.To)
			require.NotNil(t, params.Grade)
			assert.InDelta(t, 87.5, *params.Grade, 0.001)
			return true, nil
		}).
		Times(1)
	m.jobs.EXPECT().
		Delete(ctx, "job-1").
		Return(true, nil).
		Times(1)

	graded := queuedSubmission()
	graded.Status = model.SubmissionStatusDone
	graded.Grade = 87.5
	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(graded, nil).
		Times(1)

	err := service.HandleCompletion(ctx, result)

	require.NoError(t, err)
	require.Len(t, results.handled, 1)
	assert.Equal(t, graded, results.handled[0])
}

func TestDispatcherService_HandleCompletion_Crashed(t *testing.T) {
	t.Parallel()
	results := &recordingResultHandler{}
	m, service := newDispatcherService(t, results)

	ctx := context.Background()
	m.jobs.EXPECT().
		GetByID(ctx, "job-1").
		Return(&model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}, nil).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.SetSubmissionStatusParams) (bool, error) {
			assert.Equal(t, model.SubmissionStatusCrashed, params.To)
			assert.Nil(t, params.Grade)
			require.NotNil(t, params.Feedback)
			assert.Equal(t, "sandbox timed out", *params.Feedback)
			return true, nil
		}).
		Times(1)
	m.jobs.EXPECT().
		Delete(ctx, "job-1").
		Return(true, nil).
		Times(1)

	crashed := queuedSubmission()
	crashed.Status = model.SubmissionStatusCrashed
	m.submissions.EXPECT().
		GetByID(ctx, "sub-1").
		Return(crashed, nil).
		Times(1)

	err := service.HandleCompletion(ctx, &model.BackendResult{
		JobID:    "job-1",
		Status:   model.BackendStatusCrashed,
		Feedback: "sandbox timed out",
	})

	require.NoError(t, err)
	// Crashed submissions never reach the aggregator.
	assert.Empty(t, results.handled)
}

func TestDispatcherService_HandleCompletion_StaleNoticeDropped(t *testing.T) {
	t.Parallel()
	m, service := newDispatcherService(t, nil)

	ctx := context.Background()
	m.jobs.EXPECT().
		GetByID(ctx, "job-1").
		Return(nil, data.ErrJobNotFound).
		Times(1)

	err := service.HandleCompletion(ctx, &model.BackendResult{
		JobID:  "job-1",
		Status: model.BackendStatusDone,
		Grade:  100,
	})
	require.NoError(t, err)
}

func TestDispatcherService_HandleCompletion_LostStatusRace(t *testing.T) {
	t.Parallel()
	results := &recordingResultHandler{}
	m, service := newDispatcherService(t, results)

	ctx := context.Background()
	m.jobs.EXPECT().
		GetByID(ctx, "job-1").
		Return(&model.GradingJob{ID: "job-1", SubmissionID: "sub-1"}, nil).
		Times(1)
	m.submissions.EXPECT().
		SetStatus(ctx, gomock.Any()).
		Return(false, nil).
		Times(1)
	// The duplicate still cleans up its job row.
	m.jobs.EXPECT().
		Delete(ctx, "job-1").
		Return(true, nil).
		Times(1)

	err := service.HandleCompletion(ctx, &model.BackendResult{
		JobID:  "job-1",
		Status: model.BackendStatusDone,
		Grade:  50,
	})

	require.NoError(t, err)
	assert.Empty(t, results.handled)
}

func TestDispatcherService_HandleCompletion_RejectsInvalidNotice(t *testing.T) {
	t.Parallel()
	_, service := newDispatcherService(t, nil)

	err := service.HandleCompletion(context.Background(), &model.BackendResult{
		JobID:  "job-1",
		Status: model.BackendStatusDone,
		Grade:  150,
	})
	require.Error(t, err)
}
