package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/events"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// AggregatorServiceOptions groups dependencies for AggregatorService.
type AggregatorServiceOptions struct {
	Grades   core.GradeRepository      // Required: grade record repository
	Tasks    core.TaskMetadataProvider // Required: task metadata lookup
	Outcomes core.OutcomeRepository    // Optional: outcome queue for LTI submissions
	Bus      *events.Bus               // Optional: event bus for grade updates
	Logger   *slog.Logger              // Optional: structured logger
}

// AggregatorService maintains the per-user-task grade records and derives
// course grade views from them.
//
// This service manages:
// - Applying the task grading policy to each completed submission
// - Fanning a group submission's grade out to every member
// - Queueing LMS outcome reports for LTI-linked submissions
// - Computing weighted course grades over visible tasks.
type AggregatorService struct {
	grades   core.GradeRepository
	tasks    core.TaskMetadataProvider
	outcomes core.OutcomeRepository
	bus      *events.Bus
	logger   *slog.Logger
}

// NewAggregatorService constructs a new AggregatorService.
func NewAggregatorService(opts AggregatorServiceOptions) (*AggregatorService, error) {
	if opts.Grades == nil {
		return nil, errors.New("GradeRepository is required")
	}
	if opts.Tasks == nil {
		return nil, errors.New("TaskMetadataProvider is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "aggregator_service")
	}

	return &AggregatorService{
		grades:   opts.Grades,
		tasks:    opts.Tasks,
		outcomes: opts.Outcomes,
		bus:      opts.Bus,
		logger:   logger,
	}, nil
}

// MustNewAggregatorService constructs a new AggregatorService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewAggregatorService(opts AggregatorServiceOptions) *AggregatorService {
	svc, err := NewAggregatorService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create AggregatorService: %v", err))
	}
	return svc
}

// HandleResult folds one graded submission into the grade records of every
// group member. The grading policy is applied inside the grade upsert, so a
// completion notice arriving out of order can never replace a better grade
// under best-of or a newer one under most-recent.
func (s *AggregatorService) HandleResult(ctx context.Context, submission *model.Submission) error {
	if submission.Status != model.SubmissionStatusDone {
		return fmt.Errorf("submission %s is not done (status %s)", submission.ID, submission.Status)
	}

	task, err := s.tasks.Task(ctx, submission.CourseID, submission.TaskID)
	if err != nil {
		return fmt.Errorf("load task %s/%s: %w", submission.CourseID, submission.TaskID, err)
	}

	for _, username := range submission.Usernames {
		record, err := s.grades.Upsert(ctx, core.UpsertGradeParams{
			Key: model.GradeKey{
				Username: username,
				CourseID: submission.CourseID,
				TaskID:   submission.TaskID,
			},
			Grade:        submission.Grade,
			Succeeded:    true,
			SubmissionID: submission.ID,
			SubmittedAt:  submission.SubmittedAt,
			Policy:       task.Policy,
		})
		if err != nil {
			return fmt.Errorf("upsert grade for %s: %w", username, err)
		}

		s.publishGrade(ctx, record)

		// Only the submitter carries the LTI binding; group members linked
		// through their own launches submit separately.
		if submission.LTI != nil && username == submission.Submitter() {
			if err := s.enqueueOutcome(ctx, submission, record); err != nil {
				return err
			}
		}
	}

	return nil
}

// enqueueOutcome queues the policy-resolved grade for LMS delivery. The queue
// coalesces on sourcedid, so rapid resubmissions collapse into one report
// carrying the latest recorded grade.
func (s *AggregatorService) enqueueOutcome(
	ctx context.Context,
	submission *model.Submission,
	record *model.UserTaskGrade,
) error {
	if s.outcomes == nil {
		return nil
	}

	delivery, err := s.outcomes.Enqueue(ctx, model.EnqueueOutcomeRequest{
		Sourcedid:    submission.LTI.Sourcedid,
		ServiceURL:   submission.LTI.OutcomeServiceURL,
		Score:        record.Grade,
		SubmissionID: submission.ID,
	})
	if err != nil {
		return fmt.Errorf("enqueue outcome for %s: %w", submission.LTI.Sourcedid, err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "outcome queued",
			"delivery_id", delivery.ID,
			"sourcedid", delivery.Sourcedid,
			"score", delivery.Score,
		)
	}

	return nil
}

func (s *AggregatorService) publishGrade(ctx context.Context, record *model.UserTaskGrade) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.GradeUpdated{
		Username:   record.Username,
		CourseID:   record.CourseID,
		TaskID:     record.TaskID,
		Grade:      record.Grade,
		Succeeded:  record.Succeeded,
		OccurredAt: time.Now(),
	})
}

// TaskGrade returns the recorded grade for one (user, course, task) triple.
// A missing record reads as a zero, not-succeeded grade.
func (s *AggregatorService) TaskGrade(ctx context.Context, key model.GradeKey) (*model.UserTaskGrade, error) {
	record, err := s.grades.Get(ctx, key)
	if err != nil {
		if errors.Is(err, data.ErrGradeNotFound) {
			return &model.UserTaskGrade{
				Username: key.Username,
				CourseID: key.CourseID,
				TaskID:   key.TaskID,
			}, nil
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	return record, nil
}

// CourseGrade derives the course grade view for a user at the given instant.
// The grade is the weighted average over tasks whose availability window has
// started, rounded to the nearest integer. Hidden and unstarted tasks
// contribute neither weight nor grade; a course with no started weighted task
// reads as 0.
func (s *AggregatorService) CourseGrade(
	ctx context.Context,
	username, courseID string,
	at time.Time,
) (*model.CourseGradeSnapshot, error) {
	tasks, err := s.tasks.CourseTasks(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course tasks %s: %w", courseID, err)
	}

	records, err := s.grades.ListForCourse(ctx, username, courseID)
	if err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	byTask := make(map[string]*model.UserTaskGrade, len(records))
	for _, record := range records {
		byTask[record.TaskID] = record
	}

	snapshot := &model.CourseGradeSnapshot{
		Username: username,
		CourseID: courseID,
	}

	var weightedSum, weightTotal float64
	for _, task := range tasks {
		visible := task.Visible(at)

		entry := model.TaskGradeSnapshot{
			TaskID:  task.ID,
			Visible: visible,
		}
		if record, ok := byTask[task.ID]; ok {
			entry.Grade = record.Grade
			entry.Succeeded = record.Succeeded
		}
		snapshot.Tasks = append(snapshot.Tasks, entry)

		if !visible {
			continue
		}
		weightedSum += entry.Grade * task.Weight
		weightTotal += task.Weight
	}

	if weightTotal > 0 {
		snapshot.Grade = int(math.Round(weightedSum / weightTotal))
	}

	return snapshot, nil
}
