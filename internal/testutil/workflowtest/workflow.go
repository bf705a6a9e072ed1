// Package workflowtest provides an end-to-end harness for exercising the
// grading pipeline against real Postgres and Redis instances. Tests using it
// skip automatically when either backing store is unavailable.
package workflowtest

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/adapters/gradebackend"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/events"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/service"
	"github.com/opencampus/gradeflow/internal/testutil"
)

const completionPopTimeout = 2 * time.Second

// Harness wires the full grading pipeline over a test database and Redis.
type Harness struct {
	t  testutil.TestingTB
	db *sql.DB

	RedisClient *redis.Client
	Config      config.GradingConfig

	Submissions *data.SubmissionRepo
	Jobs        *data.GradingJobRepo
	Grades      *data.GradeRepo
	Outcomes    *data.OutcomeRepo
	Tasks       *data.TaskRepo

	Backend       *gradebackend.Backend
	Bus           *events.Bus
	SubmissionSvc *service.SubmissionService
	Dispatcher    *service.DispatcherService
	Aggregator    *service.AggregatorService
}

// NewHarness builds a harness with an open intake gate. It skips the test
// when Postgres or Redis is not reachable.
func NewHarness(t testutil.TestingTB) *Harness {
	t.Helper()

	db := testutil.SetupAutoDB(t)
	redisClient := testutil.SetupTestRedis(t)

	cfg := config.GradingConfig{}
	cfg.Sanitize()

	logger := slog.Default()
	repoCfg := data.RepoConfig{Logger: logger}

	h := &Harness{
		t:           t,
		db:          db,
		RedisClient: redisClient,
		Config:      cfg,
		Submissions: data.NewSubmissionRepo(db, repoCfg),
		Jobs:        data.NewGradingJobRepo(db, repoCfg),
		Grades:      data.NewGradeRepo(db, repoCfg),
		Outcomes:    data.NewOutcomeRepo(db, repoCfg),
		Tasks:       data.NewTaskRepo(db, repoCfg),
	}

	h.Backend = gradebackend.New(redisClient, cfg)
	h.Bus = events.NewBus(logger)

	h.SubmissionSvc = service.MustNewSubmissionService(service.SubmissionServiceOptions{
		Repo:   h.Submissions,
		Tasks:  h.Tasks,
		Config: cfg,
		Logger: logger,
	})

	h.Aggregator = service.MustNewAggregatorService(service.AggregatorServiceOptions{
		Grades:   h.Grades,
		Tasks:    h.Tasks,
		Outcomes: h.Outcomes,
		Bus:      h.Bus,
		Logger:   logger,
	})

	h.Dispatcher = service.MustNewDispatcherService(service.DispatcherServiceOptions{
		Submissions: h.Submissions,
		Jobs:        h.Jobs,
		Backend:     h.Backend,
		Results:     h.Aggregator,
		Bus:         h.Bus,
		Logger:      logger,
	})
	h.Dispatcher.OpenIntake()

	return h
}

// DB exposes the raw handle for direct assertions.
func (h *Harness) DB() *sql.DB {
	return h.db
}

// SeedTask stores task metadata the pipeline will read back.
func (h *Harness) SeedTask(ctx context.Context, task *course.Task) {
	h.t.Helper()
	if err := h.Tasks.Upsert(ctx, task); err != nil {
		h.t.Fatalf("seed task: %v", err)
	}
}

// Submit creates a submission and dispatches its grading job.
func (h *Harness) Submit(ctx context.Context, req *model.CreateSubmissionRequest) (*model.Submission, *model.GradingJob) {
	h.t.Helper()

	submission, err := h.SubmissionSvc.Create(ctx, req)
	if err != nil {
		h.t.Fatalf("create submission: %v", err)
	}
	job, err := h.Dispatcher.Submit(ctx, submission.ID)
	if err != nil {
		h.t.Fatalf("dispatch submission: %v", err)
	}
	return submission, job
}

// CompleteGrading plays the sandbox worker role: it publishes the result for
// the job, then drains the completion notice through the dispatcher exactly
// as the completion runner would.
func (h *Harness) CompleteGrading(ctx context.Context, result *model.BackendResult) {
	h.t.Helper()

	if err := h.Backend.PushCompletion(ctx, result); err != nil {
		h.t.Fatalf("push completion: %v", err)
	}
	notice, err := h.Backend.PopCompletion(ctx, completionPopTimeout)
	if err != nil {
		h.t.Fatalf("pop completion: %v", err)
	}
	if notice == nil {
		h.t.Fatalf("expected completion notice for job %s", result.JobID)
	}
	if err = h.Dispatcher.HandleCompletion(ctx, notice); err != nil {
		h.t.Fatalf("handle completion: %v", err)
	}
}

// GradeSubmission runs Submit plus CompleteGrading with a done result.
func (h *Harness) GradeSubmission(
	ctx context.Context,
	req *model.CreateSubmissionRequest,
	grade float64,
) *model.Submission {
	h.t.Helper()

	submission, job := h.Submit(ctx, req)
	h.CompleteGrading(ctx, &model.BackendResult{
		JobID:  job.ID,
		Status: model.BackendStatusDone,
		Grade:  grade,
	})

	graded, err := h.Submissions.GetByID(ctx, submission.ID)
	if err != nil {
		h.t.Fatalf("reload submission: %v", err)
	}
	return graded
}

// Close releases the Redis client. Database cleanup follows the testutil
// setup mode: ephemeral schemas drop themselves via t.Cleanup, the shared
// test database is wiped by the next SetupTestDB call.
func (h *Harness) Close() {
	if h.RedisClient != nil {
		if err := h.RedisClient.Close(); err != nil {
			h.t.Logf("warning: close redis client: %v", err)
		}
	}
}
