package completionrunner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/adapters/gradebackend"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/mocks"
	"github.com/opencampus/gradeflow/internal/service"
	"github.com/opencampus/gradeflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// recordingResults collects submissions handed to the aggregation hook.
type recordingResults struct {
	mu      sync.Mutex
	handled []*model.Submission
}

func (r *recordingResults) HandleResult(_ context.Context, submission *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, submission)
	return nil
}

func (r *recordingResults) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handled)
}

func TestNewRunner_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewRunner(RunnerOptions{})
	require.ErrorContains(t, err, "grading backend is required")

	_, err = NewRunner(RunnerOptions{Backend: &gradebackend.Backend{}})
	require.ErrorContains(t, err, "dispatcher service is required")
}

// TestRunner_ResolvesPushedCompletion drives a completion notice from Redis
// through the runner into the dispatcher's resolution path.
func TestRunner_ResolvesPushedCompletion(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: close redis client: %v", err)
		}
	})

	prefix := fmt.Sprintf("gradeflow:test:completionrunner:%d", time.Now().UnixNano())
	cfg := config.GradingConfig{
		DispatchQueue:   prefix + ":pending",
		CompletionQueue: prefix + ":done",
		ResultKeyPrefix: prefix + ":result:",
		ActiveSetKey:    prefix + ":active",
		ResultTTL:       time.Hour,
	}
	backend := gradebackend.New(client, cfg)

	ctrl := gomock.NewController(t)
	submissions := mocks.NewMockSubmissionRepository(ctrl)
	jobs := mocks.NewMockGradingJobRepository(ctrl)
	results := &recordingResults{}

	dispatcher := service.MustNewDispatcherService(service.DispatcherServiceOptions{
		Submissions: submissions,
		Jobs:        jobs,
		Backend:     backend,
		Results:     results,
	})

	job := &model.GradingJob{ID: "job-1", SubmissionID: "sub-1", DispatchedAt: time.Now()}
	done := &model.Submission{
		ID:     "sub-1",
		Status: model.SubmissionStatusDone,
		Grade:  87.5,
	}
	jobs.EXPECT().GetByID(gomock.Any(), "job-1").Return(job, nil)
	submissions.EXPECT().SetStatus(gomock.Any(), gomock.AssignableToTypeOf(core.SetSubmissionStatusParams{})).Return(true, nil)
	jobs.EXPECT().Delete(gomock.Any(), "job-1").Return(true, nil)
	submissions.EXPECT().GetByID(gomock.Any(), "sub-1").Return(done, nil)

	require.NoError(t, backend.PushCompletion(context.Background(), &model.BackendResult{
		JobID:  "job-1",
		Status: model.BackendStatusDone,
		Grade:  87.5,
	}))

	runner, err := NewRunner(RunnerOptions{
		Backend:    backend,
		Dispatcher: dispatcher,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		return results.count() == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	assert.Equal(t, "sub-1", results.handled[0].ID)
	assert.Equal(t, 87.5, results.handled[0].Grade)
}

// TestRunner_StopsOnCancelWhenIdle verifies a drained queue exits cleanly.
func TestRunner_StopsOnCancelWhenIdle(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: close redis client: %v", err)
		}
	})

	prefix := fmt.Sprintf("gradeflow:test:completionrunner:idle:%d", time.Now().UnixNano())
	backend := gradebackend.New(client, config.GradingConfig{
		CompletionQueue: prefix + ":done",
		ResultKeyPrefix: prefix + ":result:",
		ActiveSetKey:    prefix + ":active",
		ResultTTL:       time.Hour,
	})

	ctrl := gomock.NewController(t)
	dispatcher := service.MustNewDispatcherService(service.DispatcherServiceOptions{
		Submissions: mocks.NewMockSubmissionRepository(ctrl),
		Jobs:        mocks.NewMockGradingJobRepository(ctrl),
		Backend:     backend,
	})

	runner, err := NewRunner(RunnerOptions{
		Backend:     backend,
		Dispatcher:  dispatcher,
		Concurrency: 2,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)
	require.NoError(t, runner.Run(ctx))
}
