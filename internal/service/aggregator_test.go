package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/mocks"
)

type aggregatorMocks struct {
	grades   *mocks.MockGradeRepository
	tasks    *mocks.MockTaskMetadataProvider
	outcomes *mocks.MockOutcomeRepository
}

// newAggregatorService creates mock repositories and a service for testing.
func newAggregatorService(t *testing.T) (aggregatorMocks, *AggregatorService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	m := aggregatorMocks{
		grades:   mocks.NewMockGradeRepository(ctrl),
		tasks:    mocks.NewMockTaskMetadataProvider(ctrl),
		outcomes: mocks.NewMockOutcomeRepository(ctrl),
	}

	service := MustNewAggregatorService(AggregatorServiceOptions{
		Grades:   m.grades,
		Tasks:    m.tasks,
		Outcomes: m.outcomes,
	})

	return m, service
}

func doneSubmission(usernames ...string) *model.Submission {
	return &model.Submission{
		ID:          "sub-1",
		Usernames:   usernames,
		CourseID:    "algo101",
		TaskID:      "sorting",
		Status:      model.SubmissionStatusDone,
		Grade:       80,
		SubmittedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAggregatorService_HandleResult_RejectsNonDone(t *testing.T) {
	t.Parallel()
	_, service := newAggregatorService(t)

	submission := doneSubmission("alice")
	submission.Status = model.SubmissionStatusRunning

	err := service.HandleResult(context.Background(), submission)
	require.Error(t, err)
}

func TestAggregatorService_HandleResult_GroupFanOut(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	submission := doneSubmission("alice", "bob")

	m.tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(openTask(course.PolicyLast), nil).
		Times(1)

	for _, username := range []string{"alice", "bob"} {
		m.grades.EXPECT().
			Upsert(ctx, core.UpsertGradeParams{
				Key: model.GradeKey{
					Username: username,
					CourseID: "algo101",
					TaskID:   "sorting",
				},
				Grade:        80,
				Succeeded:    true,
				SubmissionID: "sub-1",
				SubmittedAt:  submission.SubmittedAt,
				Policy:       course.PolicyLast,
			}).
			Return(&model.UserTaskGrade{
				Username: username,
				CourseID: "algo101",
				TaskID:   "sorting",
				Grade:    80,
			}, nil).
			Times(1)
	}

	err := service.HandleResult(ctx, submission)
	require.NoError(t, err)
}

func TestAggregatorService_HandleResult_QueuesOutcomeForSubmitter(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	submission := doneSubmission("alice", "bob")
	submission.LTI = &model.LTIBinding{
		OutcomeServiceURL: "https://lms.example.edu/outcomes",
		Sourcedid:         "sourced-1",
	}

	m.tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(openTask(course.PolicyBest), nil).
		Times(1)

	// The stored record under best-of keeps an earlier, higher grade; the
	// outcome report carries the record grade, not this submission's.
	m.grades.EXPECT().
		Upsert(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.UpsertGradeParams) (*model.UserTaskGrade, error) {
			return &model.UserTaskGrade{
				Username: params.Key.Username,
				CourseID: params.Key.CourseID,
				TaskID:   params.Key.TaskID,
				Grade:    92,
			}, nil
		}).
		Times(2)

	// Only the submitter's record fans out to the LMS.
	m.outcomes.EXPECT().
		Enqueue(ctx, model.EnqueueOutcomeRequest{
			Sourcedid:    "sourced-1",
			ServiceURL:   "https://lms.example.edu/outcomes",
			Score:        92,
			SubmissionID: "sub-1",
		}).
		Return(&model.OutcomeDelivery{ID: "del-1", Sourcedid: "sourced-1", Score: 92}, nil).
		Times(1)

	err := service.HandleResult(ctx, submission)
	require.NoError(t, err)
}

func TestAggregatorService_HandleResult_NoLTINoOutcome(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	submission := doneSubmission("alice")

	m.tasks.EXPECT().
		Task(ctx, "algo101", "sorting").
		Return(openTask(course.PolicyLast), nil).
		Times(1)
	m.grades.EXPECT().
		Upsert(ctx, gomock.Any()).
		Return(&model.UserTaskGrade{Username: "alice", Grade: 80}, nil).
		Times(1)

	err := service.HandleResult(ctx, submission)
	require.NoError(t, err)
}

func TestAggregatorService_TaskGrade_MissingReadsAsZero(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	key := model.GradeKey{Username: "alice", CourseID: "algo101", TaskID: "sorting"}

	m.grades.EXPECT().
		Get(ctx, key).
		Return(nil, data.ErrGradeNotFound).
		Times(1)

	record, err := service.TaskGrade(ctx, key)

	require.NoError(t, err)
	assert.Equal(t, "alice", record.Username)
	assert.Zero(t, record.Grade)
	assert.False(t, record.Succeeded)
}

func TestAggregatorService_CourseGrade_WeightedOverVisibleTasks(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)

	tasks := []*course.Task{
		{ID: "t1", CourseID: "algo101", Weight: 2},
		{ID: "t2", CourseID: "algo101", Weight: 1},
		// Hidden tasks never contribute weight or grade.
		{ID: "t3", CourseID: "algo101", Weight: 5, Accessibility: course.Accessibility{Hidden: true}},
		// Unstarted tasks stay out until their window opens.
		{ID: "t4", CourseID: "algo101", Weight: 3, Accessibility: course.Accessibility{Start: future}},
	}
	m.tasks.EXPECT().
		CourseTasks(ctx, "algo101").
		Return(tasks, nil).
		Times(1)
	m.grades.EXPECT().
		ListForCourse(ctx, "alice", "algo101").
		Return([]*model.UserTaskGrade{
			{Username: "alice", CourseID: "algo101", TaskID: "t1", Grade: 80, Succeeded: true},
			{Username: "alice", CourseID: "algo101", TaskID: "t2", Grade: 50, Succeeded: true},
			{Username: "alice", CourseID: "algo101", TaskID: "t3", Grade: 100, Succeeded: true},
		}, nil).
		Times(1)

	snapshot, err := service.CourseGrade(ctx, "alice", "algo101", now)

	require.NoError(t, err)
	// round((80*2 + 50*1) / 3) = 70
	assert.Equal(t, 70, snapshot.Grade)
	require.Len(t, snapshot.Tasks, 4)
	assert.True(t, snapshot.Tasks[0].Visible)
	assert.True(t, snapshot.Tasks[1].Visible)
	assert.False(t, snapshot.Tasks[2].Visible)
	assert.False(t, snapshot.Tasks[3].Visible)
}

func TestAggregatorService_CourseGrade_NoWeightedTasksReadsAsZero(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	now := time.Now()

	m.tasks.EXPECT().
		CourseTasks(ctx, "algo101").
		Return([]*course.Task{
			{ID: "t1", CourseID: "algo101", Weight: 0},
		}, nil).
		Times(1)
	m.grades.EXPECT().
		ListForCourse(ctx, "alice", "algo101").
		Return(nil, nil).
		Times(1)

	snapshot, err := service.CourseGrade(ctx, "alice", "algo101", now)

	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.Grade)
}

func TestAggregatorService_CourseGrade_EndedWindowStaysVisible(t *testing.T) {
	t.Parallel()
	m, service := newAggregatorService(t)

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := now.Add(-24 * time.Hour)

	m.tasks.EXPECT().
		CourseTasks(ctx, "algo101").
		Return([]*course.Task{
			{ID: "t1", CourseID: "algo101", Weight: 1, Accessibility: course.Accessibility{End: &ended}},
		}, nil).
		Times(1)
	m.grades.EXPECT().
		ListForCourse(ctx, "alice", "algo101").
		Return([]*model.UserTaskGrade{
			{Username: "alice", CourseID: "algo101", TaskID: "t1", Grade: 90, Succeeded: true},
		}, nil).
		Times(1)

	snapshot, err := service.CourseGrade(ctx, "alice", "algo101", now)

	require.NoError(t, err)
	assert.Equal(t, 90, snapshot.Grade)
	require.Len(t, snapshot.Tasks, 1)
	assert.True(t, snapshot.Tasks[0].Visible)
}
