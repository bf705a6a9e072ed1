package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/mocks"
)

func openTask(policy course.GradingPolicy) *course.Task {
	return &course.Task{
		ID:       "sorting",
		CourseID: "algo101",
		Name:     "Sorting",
		Weight:   1,
		Policy:   policy,
	}
}

func submissionRequest() *model.CreateSubmissionRequest {
	return &model.CreateSubmissionRequest{
		Usernames: []string{"alice"},
		CourseID:  "algo101",
		TaskID:    "sorting",
		InputRef:  "inputs/alice/sorting/1",
		InputSize: 128,
	}
}

// newSubmissionService creates mock repositories and a service for testing.
func newSubmissionService(t *testing.T) (*mocks.MockSubmissionRepository, *mocks.MockTaskMetadataProvider, *SubmissionService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockSubmissionRepository(ctrl)
	tasks := mocks.NewMockTaskMetadataProvider(ctrl)

	service := MustNewSubmissionService(SubmissionServiceOptions{
		Repo:  repo,
		Tasks: tasks,
		Config: config.GradingConfig{
			RetentionCount: 5,
			KeepBest:       true,
			MaxInputBytes:  1024,
		},
	})

	return repo, tasks, service
}

func TestSubmissionService_Create_Success(t *testing.T) {
	t.Parallel()
	repo, tasks, service := newSubmissionService(t)

	ctx := context.Background()
	req := submissionRequest()

	tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(openTask(course.PolicyLast), nil).
		Times(1)

	expected := &model.Submission{
		ID:        "sub-1",
		Usernames: []string{"alice"},
		CourseID:  "algo101",
		TaskID:    "sorting",
		Status:    model.SubmissionStatusQueued,
	}
	repo.EXPECT().
		Create(ctx, req, core.PruneParams{
			Username: "alice",
			TaskID:   "sorting",
			Keep:     5,
			// Last policy does not pin the best attempt.
			PreserveBest: false,
		}).
		Return(expected, nil).
		Times(1)

	result, err := service.Create(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, expected, result)
}

func TestSubmissionService_Create_BestPolicyPreservesBest(t *testing.T) {
	t.Parallel()
	repo, tasks, service := newSubmissionService(t)

	ctx := context.Background()
	req := submissionRequest()

	tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(openTask(course.PolicyBest), nil).
		Times(1)

	repo.EXPECT().
		Create(ctx, req, core.PruneParams{
			Username:     "alice",
			TaskID:       "sorting",
			Keep:         5,
			PreserveBest: true,
		}).
		Return(&model.Submission{ID: "sub-1"}, nil).
		Times(1)

	_, err := service.Create(ctx, req)
	require.NoError(t, err)
}

func TestSubmissionService_Create_RejectsOversizedInput(t *testing.T) {
	t.Parallel()
	_, _, service := newSubmissionService(t)

	req := submissionRequest()
	req.InputSize = 2048

	result, err := service.Create(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, model.IsValidationError(err))
}

func TestSubmissionService_Create_ExtensionAllowlist(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	repo := mocks.NewMockSubmissionRepository(ctrl)
	tasks := mocks.NewMockTaskMetadataProvider(ctrl)
	service := MustNewSubmissionService(SubmissionServiceOptions{
		Repo:  repo,
		Tasks: tasks,
		Config: config.GradingConfig{
			RetentionCount:    5,
			MaxInputBytes:     1024,
			AllowedExtensions: []string{".py", ".tar.gz"},
		},
	})

	ctx := context.Background()

	t.Run("rejects disallowed extension", func(t *testing.T) {
		req := submissionRequest()
		req.InputRef = "inputs/alice/sorting/solution.exe"

		result, err := service.Create(ctx, req)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, model.IsValidationError(err))
	})

	t.Run("accepts compound extension", func(t *testing.T) {
		req := submissionRequest()
		req.InputRef = "inputs/alice/sorting/solution.tar.gz"

		tasks.EXPECT().
			Task(ctx, "algo101", "sorting").
			Return(openTask(course.PolicyLast), nil).
			Times(1)
		repo.EXPECT().
			Create(ctx, req, gomock.Any()).
			Return(&model.Submission{ID: "sub-1"}, nil).
			Times(1)

		_, err := service.Create(ctx, req)
		require.NoError(t, err)
	})
}

func TestSubmissionService_Create_RejectsClosedWindow(t *testing.T) {
	t.Parallel()
	_, tasks, service := newSubmissionService(t)

	ctx := context.Background()
	req := submissionRequest()

	closed := openTask(course.PolicyLast)
	past := time.Now().Add(-time.Hour)
	closed.Accessibility.End = &past

	tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(closed, nil).
		Times(1)

	result, err := service.Create(ctx, req)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, model.IsValidationError(err))
}

func TestSubmissionService_Create_RejectsInvalidRequest(t *testing.T) {
	t.Parallel()
	_, _, service := newSubmissionService(t)

	req := submissionRequest()
	req.Usernames = nil

	_, err := service.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
}

func TestSubmissionService_GetByID_RequiresID(t *testing.T) {
	t.Parallel()
	_, _, service := newSubmissionService(t)

	_, err := service.GetByID(context.Background(), "")
	require.Error(t, err)
}

func TestSubmissionService_ListRecent_DefaultsLimit(t *testing.T) {
	t.Parallel()
	repo, _, service := newSubmissionService(t)

	ctx := context.Background()
	repo.EXPECT().
		ListRecent(ctx, model.SubmissionListOptions{Username: "alice", Limit: 5}).
		Return([]*model.Submission{}, nil).
		Times(1)

	result, err := service.ListRecent(ctx, model.SubmissionListOptions{Username: "alice"})
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestSubmissionService_Prune(t *testing.T) {
	t.Parallel()
	repo, tasks, service := newSubmissionService(t)

	ctx := context.Background()
	tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(openTask(course.PolicyBest), nil).
		Times(1)
	repo.EXPECT().
		Prune(ctx, core.PruneParams{
			Username:     "alice",
			TaskID:       "sorting",
			Keep:         5,
			PreserveBest: true,
		}).
		Return(int64(2), nil).
		Times(1)

	evicted, err := service.Prune(ctx, "alice", "algo101", "sorting")
	require.NoError(t, err)
	assert.Equal(t, int64(2), evicted)
}
