package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/opencampus/gradeflow/internal/data/pgxutil"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// GradingJobRepo provides database operations for the in-flight job table.
// The at-most-one-live-job-per-submission invariant is enforced by a unique
// constraint on submission_id, not by application convention.
type GradingJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewGradingJobRepo creates a new GradingJobRepo with the given database connection.
func NewGradingJobRepo(db *sql.DB, cfg RepoConfig) *GradingJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &GradingJobRepo{DB: db, timeProvider: tp}
}

const gradingJobColumns = `
  id,
  submission_id,
  dispatched_at,
  retry_count
`

// Insert adds a job to the in-flight table. A duplicate submission id maps
// the unique-violation error onto model.ErrAlreadyInFlight.
func (r *GradingJobRepo) Insert(ctx context.Context, job *model.GradingJob) error {
	if job == nil {
		return errors.New("grading job is required")
	}
	if err := job.Validate(); err != nil {
		return err
	}

	dispatchedAt := job.DispatchedAt
	if dispatchedAt.IsZero() {
		dispatchedAt = r.timeProvider.Now()
	}

	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO grading_jobs(id, submission_id, dispatched_at, retry_count)
			VALUES ($1, $2, $3, $4)
		`, job.ID, job.SubmissionID, dispatchedAt.UTC(), job.RetryCount)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.ErrAlreadyInFlight
		}
		return fmt.Errorf("insert grading job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by its ID.
func (r *GradingJobRepo) GetByID(ctx context.Context, id string) (*model.GradingJob, error) {
	return r.getOne(ctx, `SELECT `+gradingJobColumns+` FROM grading_jobs WHERE id = $1`, id)
}

// GetBySubmissionID retrieves the live job for a submission, if any.
func (r *GradingJobRepo) GetBySubmissionID(ctx context.Context, submissionID string) (*model.GradingJob, error) {
	return r.getOne(ctx, `SELECT `+gradingJobColumns+` FROM grading_jobs WHERE submission_id = $1`, submissionID)
}

func (r *GradingJobRepo) getOne(ctx context.Context, query, arg string) (*model.GradingJob, error) {
	var job *model.GradingJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, query, arg)
		j := &model.GradingJob{}
		if scanErr := row.Scan(&j.ID, &j.SubmissionID, &j.DispatchedAt, &j.RetryCount); scanErr != nil {
			return scanErr
		}
		job = j
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get grading job: %w", err)
	}
	return job, nil
}

// Delete removes a resolved job. Returns false when the job row was already
// gone, letting callers detect stale completion notices.
func (r *GradingJobRepo) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `DELETE FROM grading_jobs WHERE id = $1`, id)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete grading job: %w", err)
	}
	return deleted, nil
}

// ListActive returns every live job, oldest dispatch first.
func (r *GradingJobRepo) ListActive(ctx context.Context) ([]*model.GradingJob, error) {
	var jobs []*model.GradingJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT `+gradingJobColumns+`
			FROM grading_jobs
			ORDER BY dispatched_at ASC, id ASC
		`)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			j := &model.GradingJob{}
			if scanErr := rows.Scan(&j.ID, &j.SubmissionID, &j.DispatchedAt, &j.RetryCount); scanErr != nil {
				return scanErr
			}
			jobs = append(jobs, j)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list active grading jobs: %w", err)
	}
	return jobs, nil
}

// DeleteOrphanedJobs removes job rows whose submission already reached a
// terminal status. Used by the reaper; bounded per call.
func (r *GradingJobRepo) DeleteOrphanedJobs(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 100
	}
	var deleted int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			DELETE FROM grading_jobs
			WHERE id IN (
				SELECT gj.id
				FROM grading_jobs gj
				JOIN submissions s ON s.id = gj.submission_id
				WHERE s.status IN ('done', 'crashed')
				LIMIT $1
			)
		`, batchSize)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete orphaned grading jobs: %w", err)
	}
	return deleted, nil
}
