// Package service implements the business logic of the grading pipeline on
// top of the repository and collaborator interfaces defined in internal/core.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/opencampus/gradeflow/config"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// SubmissionServiceOptions groups dependencies for SubmissionService.
type SubmissionServiceOptions struct {
	Repo      core.SubmissionRepository // Required: submission repository
	Tasks     core.TaskMetadataProvider // Required: task metadata lookup
	Config    config.GradingConfig      // Required: retention and intake limits
	Validator core.SubmissionValidator  // Optional: payload policy enforcement
	Logger    *slog.Logger              // Optional: structured logger
}

// SubmissionService provides submission intake and retrieval.
//
// This service manages:
// - Intake validation against the task's availability window
// - Persisting submissions with per-(submitter, task) retention
// - Listing recent submissions for display.
type SubmissionService struct {
	repo      core.SubmissionRepository
	tasks     core.TaskMetadataProvider
	config    config.GradingConfig
	validator core.SubmissionValidator
	logger    *slog.Logger
}

// NewSubmissionService constructs a new SubmissionService.
func NewSubmissionService(opts SubmissionServiceOptions) (*SubmissionService, error) {
	if opts.Repo == nil {
		return nil, errors.New("SubmissionRepository is required")
	}
	if opts.Tasks == nil {
		return nil, errors.New("TaskMetadataProvider is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "submission_service")
		logger.Debug("SubmissionService initialized",
			"retention_count", opts.Config.RetentionCount,
			"keep_best", opts.Config.KeepBest,
		)
	}

	return &SubmissionService{
		repo:      opts.Repo,
		tasks:     opts.Tasks,
		config:    opts.Config,
		validator: opts.Validator,
		logger:    logger,
	}, nil
}

// MustNewSubmissionService constructs a new SubmissionService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewSubmissionService(opts SubmissionServiceOptions) *SubmissionService {
	svc, err := NewSubmissionService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SubmissionService: %v", err))
	}
	return svc
}

// Create validates and persists a new submission. The submission starts in
// the queued status; dispatching to the grading backend is a separate step.
// Retention for the (submitter, task) pair is applied in the same transaction
// as the insert.
func (s *SubmissionService) Create(
	ctx context.Context,
	req *model.CreateSubmissionRequest,
) (*model.Submission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.InputSize > int64(s.config.MaxInputBytes) {
		return nil, &model.ValidationError{
			Field:  "input_size",
			Reason: fmt.Sprintf("input exceeds the %d byte limit", s.config.MaxInputBytes),
		}
	}
	if !s.extensionAllowed(req.InputRef) {
		return nil, &model.ValidationError{
			Field:  "input_ref",
			Reason: fmt.Sprintf("file type not accepted; allowed: %s", strings.Join(s.config.AllowedExtensions, ", ")),
		}
	}

	if s.validator != nil {
		if err := s.validator.Validate(ctx, req); err != nil {
			return nil, fmt.Errorf("validate submission: %w", err)
		}
	}

	task, err := s.tasks.Task(ctx, req.CourseID, req.TaskID)
	if err != nil {
		return nil, fmt.Errorf("load task %s/%s: %w", req.CourseID, req.TaskID, err)
	}
	if !task.Gradable(time.Now()) {
		return nil, &model.ValidationError{
			Field:  "task_id",
			Reason: "task is not accepting submissions",
		}
	}

	submission, err := s.repo.Create(ctx, req, s.pruneParams(req.Usernames[0], task))
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "submission created",
			"id", submission.ID,
			"course_id", submission.CourseID,
			"task_id", submission.TaskID,
			"submitter", submission.Submitter(),
			"group_size", len(submission.Usernames),
		)
	}

	return submission, nil
}

// extensionAllowed matches the input reference against the configured
// extension allowlist. Suffix matching rather than filepath.Ext so compound
// extensions like .tar.gz work.
func (s *SubmissionService) extensionAllowed(ref string) bool {
	if len(s.config.AllowedExtensions) == 0 {
		return true
	}
	lower := strings.ToLower(ref)
	for _, ext := range s.config.AllowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// pruneParams derives the retention parameters for a (submitter, task) pair.
// Best-of tasks keep their highest graded attempt alive beyond the retention
// window so the recorded grade always has a backing submission.
func (s *SubmissionService) pruneParams(submitter string, task *course.Task) core.PruneParams {
	return core.PruneParams{
		Username:     submitter,
		TaskID:       task.ID,
		Keep:         s.config.RetentionCount,
		PreserveBest: s.config.KeepBest && task.Policy == course.PolicyBest,
	}
}

// GetByID returns a submission by its ID.
func (s *SubmissionService) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	if id == "" {
		return nil, errors.New("submission id is required")
	}
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get submission %s: %w", id, err)
	}
	return submission, nil
}

// ListRecent returns the most recent submissions matching the options,
// newest first.
func (s *SubmissionService) ListRecent(
	ctx context.Context,
	opts model.SubmissionListOptions,
) ([]*model.Submission, error) {
	if opts.Limit <= 0 {
		opts.Limit = s.config.RetentionCount
	}
	submissions, err := s.repo.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list recent submissions: %w", err)
	}
	return submissions, nil
}

// Prune re-applies the retention policy for a (submitter, task) pair and
// returns the number of evicted submissions. Creation already prunes; this
// exists for operator-driven cleanup after a retention config change.
func (s *SubmissionService) Prune(
	ctx context.Context,
	username, courseID, taskID string,
) (int64, error) {
	task, err := s.tasks.Task(ctx, courseID, taskID)
	if err != nil {
		return 0, fmt.Errorf("load task %s/%s: %w", courseID, taskID, err)
	}

	evicted, err := s.repo.Prune(ctx, s.pruneParams(username, task))
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}

	if evicted > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "pruned submissions",
			"username", username,
			"task_id", taskID,
			"evicted", evicted,
		)
	}

	return evicted, nil
}
