package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data/pgxutil"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// SubmissionRepo provides database operations for the submission store.
type SubmissionRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewSubmissionRepo creates a new SubmissionRepo with the given database connection.
func NewSubmissionRepo(db *sql.DB, cfg RepoConfig) *SubmissionRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &SubmissionRepo{DB: db, timeProvider: tp}
}

const submissionColumns = `
  id,
  usernames,
  course_id,
  task_id,
  input_ref,
  status,
  grade,
  feedback,
  outcome_service_url,
  sourcedid,
  submitted_at,
  graded_at,
  updated_at
`

// Advisory lock namespace for per-(user, task) retention serialization.
const advisoryLockRetentionMajor int64 = 2001

func advisoryLockRetentionMinor(username, taskID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(username))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(taskID))
	hashValue := h.Sum32()
	maxInt32 := uint32(math.MaxInt32)
	if hashValue > maxInt32 {
		hashValue &= maxInt32
	}
	return int64(hashValue)
}

// Create persists a submission and applies the retention policy for its
// (submitter, task) key inside one transaction. An advisory xact lock keyed
// by (submitter, task) serializes concurrent creates for the same key so the
// retention count stays correct; creates for other keys proceed in parallel.
func (r *SubmissionRepo) Create(
	ctx context.Context,
	req *model.CreateSubmissionRequest,
	prune core.PruneParams,
) (*model.Submission, error) {
	if req == nil {
		return nil, errors.New("create submission request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	submitter := req.Usernames[0]
	var sub *model.Submission
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		minor := advisoryLockRetentionMinor(submitter, req.TaskID)
		if _, lockErr := tx.Exec(ctx,
			"SELECT pg_advisory_xact_lock($1::integer, $2::integer)",
			advisoryLockRetentionMajor, minor,
		); lockErr != nil {
			return fmt.Errorf("acquire retention lock: %w", lockErr)
		}

		inserted, insErr := r.insertSubmission(ctx, tx, req)
		if insErr != nil {
			return insErr
		}
		sub = inserted

		if prune.Keep > 0 {
			if _, pruneErr := r.pruneInTx(ctx, tx, prune); pruneErr != nil {
				return pruneErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *SubmissionRepo) insertSubmission(
	ctx context.Context,
	tx pgx.Tx,
	req *model.CreateSubmissionRequest,
) (*model.Submission, error) {
	now := r.timeProvider.Now().UTC()
	id := uuid.NewString()

	var outcomeURL, sourcedid *string
	if req.LTI != nil {
		outcomeURL = &req.LTI.OutcomeServiceURL
		sourcedid = &req.LTI.Sourcedid
	}

	rows, err := tx.Query(ctx, `
		INSERT INTO submissions(id, usernames, course_id, task_id, input_ref, status, outcome_service_url, sourcedid, submitted_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'queued', $6, $7, $8, $8)
		RETURNING `+submissionColumns,
		id, req.Usernames, req.CourseID, req.TaskID, req.InputRef, outcomeURL, sourcedid, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert submission: %w", err)
	}
	sub, collectErr := collectSubmissionFromRows(rows)
	rows.Close()
	if collectErr != nil {
		return nil, fmt.Errorf("collect submission: %w", collectErr)
	}
	return sub, nil
}

// pruneSQL evicts terminal submissions past the retention cap, oldest first.
// Queued and running submissions are never evicted: a live grading job may
// still reference them. When $4 is true, the best-graded done submission is
// protected as well.
const pruneSQL = `
  WITH best AS (
    SELECT id FROM submissions
    WHERE usernames[1] = $1 AND task_id = $2 AND status = 'done'
    ORDER BY grade DESC, submitted_at DESC, id DESC
    LIMIT 1
  ), ranked AS (
    SELECT id, row_number() OVER (ORDER BY submitted_at DESC, id DESC) AS rn
    FROM submissions
    WHERE usernames[1] = $1 AND task_id = $2
  )
  DELETE FROM submissions s
  USING ranked r
  WHERE s.id = r.id
    AND r.rn > $3
    AND s.status IN ('done', 'crashed')
    AND (NOT $4 OR s.id NOT IN (SELECT id FROM best))`

// Prune applies the retention policy outside a create. Idempotent: a second
// call against an unchanged store deletes nothing.
func (r *SubmissionRepo) Prune(ctx context.Context, params core.PruneParams) (int64, error) {
	var deleted int64
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		minor := advisoryLockRetentionMinor(params.Username, params.TaskID)
		if _, lockErr := tx.Exec(ctx,
			"SELECT pg_advisory_xact_lock($1::integer, $2::integer)",
			advisoryLockRetentionMajor, minor,
		); lockErr != nil {
			return fmt.Errorf("acquire retention lock: %w", lockErr)
		}
		var pruneErr error
		deleted, pruneErr = r.pruneInTx(ctx, tx, params)
		return pruneErr
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (r *SubmissionRepo) pruneInTx(ctx context.Context, tx pgx.Tx, params core.PruneParams) (int64, error) {
	if params.Keep <= 0 {
		return 0, errors.New("retention cap must be positive")
	}
	tag, err := tx.Exec(ctx, pruneSQL, params.Username, params.TaskID, params.Keep, params.PreserveBest)
	if err != nil {
		return 0, fmt.Errorf("prune submissions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID retrieves a submission by its ID.
func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*model.Submission, error) {
	var sub *model.Submission
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT `+submissionColumns+`
			FROM submissions
			WHERE id = $1
		`, id)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		var cErr error
		sub, cErr = collectSubmissionFromRows(rows)
		return cErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

// ListRecent returns submissions newest first, filtered by the options.
// The username filter matches group members, not only the submitter.
func (r *SubmissionRepo) ListRecent(
	ctx context.Context,
	opts model.SubmissionListOptions,
) ([]*model.Submission, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE 1=1`
	args := []any{}
	idx := 1
	if opts.Username != "" {
		query += fmt.Sprintf(" AND $%d = ANY(usernames)", idx)
		args = append(args, opts.Username)
		idx++
	}
	if opts.CourseID != "" {
		query += fmt.Sprintf(" AND course_id = $%d", idx)
		args = append(args, opts.CourseID)
		idx++
	}
	if opts.TaskID != "" {
		query += fmt.Sprintf(" AND task_id = $%d", idx)
		args = append(args, opts.TaskID)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY submitted_at DESC, id DESC LIMIT $%d", idx)
	args = append(args, limit)

	return r.querySubmissions(ctx, query, args)
}

// ListByStatus returns submissions in the given status, oldest first, used by
// the startup recovery sweep.
func (r *SubmissionRepo) ListByStatus(
	ctx context.Context,
	status model.SubmissionStatus,
	limit int,
) ([]*model.Submission, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid submission status: %s", status)
	}
	if limit <= 0 {
		limit = 1000
	}
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE status = $1 ORDER BY submitted_at ASC, id ASC LIMIT $2`
	return r.querySubmissions(ctx, query, []any{string(status), limit})
}

func (r *SubmissionRepo) querySubmissions(ctx context.Context, query string, args []any) ([]*model.Submission, error) {
	var subs []*model.Submission
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, query, args...)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			sub, sErr := scanSubmissionFromRow(rows)
			if sErr != nil {
				return sErr
			}
			subs = append(subs, sub)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return subs, nil
}

// SetStatus performs a guarded status transition. It returns false with no
// error when the submission is no longer in the expected From status, which
// callers treat as a stale or duplicate notice.
func (r *SubmissionRepo) SetStatus(ctx context.Context, params core.SetSubmissionStatusParams) (bool, error) {
	if !model.CanTransition(params.From, params.To) {
		return false, model.TransitionError(params.From, params.To)
	}

	now := r.timeProvider.Now().UTC()
	var gradedAt *time.Time
	if params.To == model.SubmissionStatusDone || params.To == model.SubmissionStatusCrashed {
		gradedAt = &now
	}

	var updated bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE submissions
			SET status = $3,
			    grade = COALESCE($4, grade),
			    feedback = COALESCE($5, feedback),
			    graded_at = COALESCE($6, graded_at),
			    updated_at = $7
			WHERE id = $1 AND status = $2
		`, params.ID, string(params.From), string(params.To), params.Grade, params.Feedback, gradedAt, now)
		if execErr != nil {
			return execErr
		}
		updated = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("set submission status: %w", err)
	}
	return updated, nil
}

type submissionRowScanner interface {
	Scan(dest ...any) error
}

func scanSubmissionFromRow(scanner submissionRowScanner) (*model.Submission, error) {
	sub := &model.Submission{}
	var feedback, outcomeURL, sourcedid *string
	var gradedAt *time.Time

	if err := scanner.Scan(
		&sub.ID,
		&sub.Usernames,
		&sub.CourseID,
		&sub.TaskID,
		&sub.InputRef,
		&sub.Status,
		&sub.Grade,
		&feedback,
		&outcomeURL,
		&sourcedid,
		&sub.SubmittedAt,
		&gradedAt,
		&sub.UpdatedAt,
	); err != nil {
		return nil, err
	}

	sub.Feedback = feedback
	sub.GradedAt = gradedAt
	if outcomeURL != nil && sourcedid != nil {
		sub.LTI = &model.LTIBinding{OutcomeServiceURL: *outcomeURL, Sourcedid: *sourcedid}
	}
	return sub, nil
}

func collectSubmissionFromRows(rows pgx.Rows) (*model.Submission, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	sub, err := scanSubmissionFromRow(rows)
	if err != nil {
		return nil, err
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return sub, nil
}
