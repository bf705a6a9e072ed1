package core

import (
	"context"
	"time"

	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// This file contains repository and collaborator interface definitions
// (ports in hexagonal architecture). Service implementations depend on these
// interfaces, not on concrete implementations.

// PruneParams groups parameters for SubmissionRepository.Prune to keep param count ≤3.
type PruneParams struct {
	Username string
	TaskID   string
	// Keep is the retention cap K: the number of most recent submissions
	// retained per (user, task).
	Keep int
	// PreserveBest protects the highest-graded done submission from
	// eviction, used when the task grading policy is best-of.
	PreserveBest bool
}

// SetSubmissionStatusParams groups parameters for SubmissionRepository.SetStatus.
type SetSubmissionStatusParams struct {
	ID       string
	From     model.SubmissionStatus
	To       model.SubmissionStatus
	Grade    *float64
	Feedback *string
}

// SubmissionRepository defines the durable submission store.
type SubmissionRepository interface {
	// Create persists the submission and applies the retention policy for
	// its (submitter, task) key in the same transaction. Creates for the
	// same key are serialized; different keys proceed independently.
	Create(ctx context.Context, req *model.CreateSubmissionRequest, prune PruneParams) (*model.Submission, error)
	GetByID(ctx context.Context, id string) (*model.Submission, error)
	ListRecent(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
	// Prune re-applies the retention policy. Safe to call repeatedly; a call
	// against an unchanged store is a no-op.
	Prune(ctx context.Context, params PruneParams) (int64, error)
	// SetStatus performs a guarded status transition. Returns false without
	// error when the submission is no longer in the From status.
	SetStatus(ctx context.Context, params SetSubmissionStatusParams) (bool, error)
	ListByStatus(ctx context.Context, status model.SubmissionStatus, limit int) ([]*model.Submission, error)
}

// GradingJobRepository owns the in-flight job table. The table enforces the
// at-most-one-live-job-per-submission invariant with a unique constraint.
type GradingJobRepository interface {
	// Insert adds a job, returning model.ErrAlreadyInFlight when a live job
	// already references the same submission.
	Insert(ctx context.Context, job *model.GradingJob) error
	GetByID(ctx context.Context, id string) (*model.GradingJob, error)
	GetBySubmissionID(ctx context.Context, submissionID string) (*model.GradingJob, error)
	// Delete removes a resolved job. Returns false when the job was already
	// removed, which callers treat as a stale completion notice.
	Delete(ctx context.Context, id string) (bool, error)
	ListActive(ctx context.Context) ([]*model.GradingJob, error)
}

// UpsertGradeParams groups parameters for GradeRepository.Upsert.
type UpsertGradeParams struct {
	Key          model.GradeKey
	Grade        float64
	Succeeded    bool
	SubmissionID string
	SubmittedAt  time.Time
	Policy       course.GradingPolicy
}

// GradeRepository stores per-user-task grade records. Records are only ever
// updated, never deleted.
type GradeRepository interface {
	// Upsert applies the grading policy at the storage level so concurrent
	// completion notices cannot clobber a better or newer grade.
	Upsert(ctx context.Context, params UpsertGradeParams) (*model.UserTaskGrade, error)
	Get(ctx context.Context, key model.GradeKey) (*model.UserTaskGrade, error)
	ListForCourse(ctx context.Context, username, courseID string) ([]*model.UserTaskGrade, error)
}

// RescheduleOutcomeParams groups parameters for OutcomeRepository.Reschedule.
type RescheduleOutcomeParams struct {
	ID            string
	NextAttemptAt time.Time
	LastError     string
}

// AbandonOutcomeParams groups parameters for OutcomeRepository.Abandon.
type AbandonOutcomeParams struct {
	ID        string
	LastError string
}

// MarkDeliveredParams groups parameters for OutcomeRepository.MarkDelivered.
// Score is the score the worker actually sent to the LMS; the update only
// lands when the row still carries that score.
type MarkDeliveredParams struct {
	ID    string
	Score float64
}

// OutcomeRepository is the durable queue of grade reports to the LMS.
type OutcomeRepository interface {
	// Enqueue creates a pending delivery or, when a pending delivery for the
	// same sourcedid exists, replaces its score and resets its attempts
	// (coalescing).
	Enqueue(ctx context.Context, req model.EnqueueOutcomeRequest) (*model.OutcomeDelivery, error)
	// ReserveDue leases the next pending delivery whose next attempt is due.
	// Returns model.ErrNoDeliveriesDue when the queue is drained.
	ReserveDue(ctx context.Context, now time.Time, leaseSeconds int) (*model.OutcomeDelivery, error)
	// MarkDelivered closes a delivery after a successful LMS call. It reports
	// false when the row was coalesced to a new score while the attempt was
	// in flight: the sent score is stale and the row must stay pending.
	MarkDelivered(ctx context.Context, params MarkDeliveredParams) (bool, error)
	Reschedule(ctx context.Context, params RescheduleOutcomeParams) (bool, error)
	Abandon(ctx context.Context, params AbandonOutcomeParams) (bool, error)
	// Requeue resets an abandoned delivery for another retry round
	// (operator override).
	Requeue(ctx context.Context, id string) (bool, error)
	ListAbandoned(ctx context.Context, limit int) ([]*model.OutcomeDelivery, error)
	Stats(ctx context.Context) (*model.OutcomeStats, error)
}

// DispatchRequest is the message handed to the grading backend.
type DispatchRequest struct {
	JobID        string
	SubmissionID string
	CourseID     string
	TaskID       string
	InputRef     string
}

// GradingBackend abstracts the asynchronous sandbox grading transport.
type GradingBackend interface {
	// Dispatch enqueues the job. It blocks only on the transport enqueue,
	// never on grading completion.
	Dispatch(ctx context.Context, req DispatchRequest) error
	// Query returns the terminal result for a job if the backend has one,
	// (nil, nil) when the job is still in progress, or
	// model.ErrBackendJobUnknown when the backend lost it.
	Query(ctx context.Context, jobID string) (*model.BackendResult, error)
}

// TaskMetadataProvider is the read-only task/course metadata collaborator.
type TaskMetadataProvider interface {
	Task(ctx context.Context, courseID, taskID string) (*course.Task, error)
	CourseTasks(ctx context.Context, courseID string) ([]*course.Task, error)
}

// SubmissionValidator enforces the payload size/extension policy before a
// submission is persisted. Implementations live outside the grading core.
type SubmissionValidator interface {
	Validate(ctx context.Context, req *model.CreateSubmissionRequest) error
}

// ReplaceResultRequest carries one grade report to the LMS outcome endpoint.
type ReplaceResultRequest struct {
	ServiceURL string
	Sourcedid  string
	// Score is already normalized to the LMS 0-1 scale.
	Score float64
}

// LMSOutcomeClient delivers grade reports to the external LMS.
type LMSOutcomeClient interface {
	ReplaceResult(ctx context.Context, req ReplaceResultRequest) error
}

// DeleteDeliveredOutcomesParams groups parameters for the reaper cleanup.
type DeleteDeliveredOutcomesParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the cleanup operations run by the reaper service.
type ReaperRepository interface {
	// DeleteDeliveredOutcomes deletes acknowledged deliveries older than
	// MaxAge, up to BatchSize rows per call to avoid long locks.
	DeleteDeliveredOutcomes(ctx context.Context, params DeleteDeliveredOutcomesParams) (int64, error)
	// DeleteOrphanedJobs removes grading job rows whose submission reached a
	// terminal status, which can be left behind by a crash between the
	// status flip and the job delete.
	DeleteOrphanedJobs(ctx context.Context, batchSize int) (int64, error)
}
