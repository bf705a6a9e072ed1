package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data/pgxutil"
	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// GradeRepo provides database operations for per-user-task grade records.
type GradeRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewGradeRepo creates a new GradeRepo with the given database connection.
func NewGradeRepo(db *sql.DB, cfg RepoConfig) *GradeRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &GradeRepo{DB: db, timeProvider: tp}
}

const gradeColumns = `
  username,
  course_id,
  task_id,
  succeeded,
  grade,
  submission_id,
  submitted_at,
  updated_at
`

// upsertBestSQL keeps the higher grade. The WHERE clause makes a worse
// result a no-op so concurrent notices cannot clobber the best grade.
const upsertBestSQL = `
	INSERT INTO user_task_grades(username, course_id, task_id, succeeded, grade, submission_id, submitted_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (username, course_id, task_id) DO UPDATE
	SET succeeded = user_task_grades.succeeded OR EXCLUDED.succeeded,
	    grade = EXCLUDED.grade,
	    submission_id = EXCLUDED.submission_id,
	    submitted_at = EXCLUDED.submitted_at,
	    updated_at = EXCLUDED.updated_at
	WHERE EXCLUDED.grade >= user_task_grades.grade`

// upsertLastSQL keeps the grade of the most recently *submitted* attempt.
// Ordering by the submission timestamp, not notice arrival, makes
// out-of-order completions converge on the same final state.
const upsertLastSQL = `
	INSERT INTO user_task_grades(username, course_id, task_id, succeeded, grade, submission_id, submitted_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (username, course_id, task_id) DO UPDATE
	SET succeeded = EXCLUDED.succeeded,
	    grade = EXCLUDED.grade,
	    submission_id = EXCLUDED.submission_id,
	    submitted_at = EXCLUDED.submitted_at,
	    updated_at = EXCLUDED.updated_at
	WHERE EXCLUDED.submitted_at >= user_task_grades.submitted_at`

// Upsert records a grading result under the task's grading policy and
// returns the current record, which may be the previous one when the new
// result loses under the policy.
func (r *GradeRepo) Upsert(ctx context.Context, params core.UpsertGradeParams) (*model.UserTaskGrade, error) {
	query := upsertLastSQL
	if params.Policy == course.PolicyBest {
		query = upsertBestSQL
	}

	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, query,
			params.Key.Username,
			params.Key.CourseID,
			params.Key.TaskID,
			params.Succeeded,
			params.Grade,
			params.SubmissionID,
			params.SubmittedAt.UTC(),
			now,
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("upsert user task grade: %w", err)
	}

	return r.Get(ctx, params.Key)
}

// Get retrieves the grade record for one (user, course, task) key.
func (r *GradeRepo) Get(ctx context.Context, key model.GradeKey) (*model.UserTaskGrade, error) {
	var grade *model.UserTaskGrade
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			SELECT `+gradeColumns+`
			FROM user_task_grades
			WHERE username = $1 AND course_id = $2 AND task_id = $3
		`, key.Username, key.CourseID, key.TaskID)
		g := &model.UserTaskGrade{}
		if scanErr := row.Scan(
			&g.Username, &g.CourseID, &g.TaskID,
			&g.Succeeded, &g.Grade, &g.SubmissionID, &g.SubmittedAt, &g.UpdatedAt,
		); scanErr != nil {
			return scanErr
		}
		grade = g
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user task grade: %w", err)
	}
	return grade, nil
}

// ListForCourse returns every grade record a user holds in a course.
func (r *GradeRepo) ListForCourse(ctx context.Context, username, courseID string) ([]*model.UserTaskGrade, error) {
	var grades []*model.UserTaskGrade
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT `+gradeColumns+`
			FROM user_task_grades
			WHERE username = $1 AND course_id = $2
			ORDER BY task_id ASC
		`, username, courseID)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			g := &model.UserTaskGrade{}
			if scanErr := rows.Scan(
				&g.Username, &g.CourseID, &g.TaskID,
				&g.Succeeded, &g.Grade, &g.SubmissionID, &g.SubmittedAt, &g.UpdatedAt,
			); scanErr != nil {
				return scanErr
			}
			grades = append(grades, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list user task grades: %w", err)
	}
	return grades, nil
}
