package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opencampus/gradeflow/internal/data/pgxutil"
	"github.com/opencampus/gradeflow/internal/domain/course"
)

// ErrTaskNotFound is returned when no task metadata row matches the key.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepo provides database operations for task metadata. It backs the
// aggregator's read-only metadata lookups and the admin upsert path that
// keeps the catalog in sync with the course authoring system.
type TaskRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTaskRepo creates a new TaskRepo with the given database connection.
func NewTaskRepo(db *sql.DB, cfg RepoConfig) *TaskRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &TaskRepo{DB: db, timeProvider: tp}
}

const taskColumns = `
  course_id,
  task_id,
  name,
  weight,
  policy,
  hidden,
  opens_at,
  closes_at
`

// Task returns the metadata for a single task.
func (r *TaskRepo) Task(ctx context.Context, courseID, taskID string) (*course.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_tasks WHERE course_id = $1 AND task_id = $2`, taskColumns)

	var task *course.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, query, courseID, taskID)
		scanned, scanErr := scanTask(row)
		if scanErr != nil {
			return scanErr
		}
		task = scanned
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

// CourseTasks returns all task metadata rows for a course.
func (r *TaskRepo) CourseTasks(ctx context.Context, courseID string) ([]*course.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM course_tasks WHERE course_id = $1 ORDER BY task_id`, taskColumns)

	var tasks []*course.Task
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, queryErr := conn.Query(ctx, query, courseID)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		for rows.Next() {
			task, scanErr := scanTask(rows)
			if scanErr != nil {
				return scanErr
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query course tasks: %w", err)
	}
	return tasks, nil
}

// Upsert creates or replaces a task metadata row.
func (r *TaskRepo) Upsert(ctx context.Context, task *course.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	if task.CourseID == "" || task.ID == "" {
		return errors.New("course id and task id are required")
	}
	if !task.Policy.Valid() {
		return fmt.Errorf("invalid grading policy: %q", task.Policy)
	}

	var opensAt *sql.NullTime
	if !task.Accessibility.Start.IsZero() {
		opensAt = &sql.NullTime{Time: task.Accessibility.Start.UTC(), Valid: true}
	}

	now := r.timeProvider.Now().UTC()
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, execErr := conn.Exec(ctx, `
			INSERT INTO course_tasks(course_id, task_id, name, weight, policy, hidden, opens_at, closes_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (course_id, task_id) DO UPDATE
			SET name = EXCLUDED.name,
			    weight = EXCLUDED.weight,
			    policy = EXCLUDED.policy,
			    hidden = EXCLUDED.hidden,
			    opens_at = EXCLUDED.opens_at,
			    closes_at = EXCLUDED.closes_at,
			    updated_at = EXCLUDED.updated_at`,
			task.CourseID, task.ID, task.Name, task.Weight, string(task.Policy),
			task.Accessibility.Hidden, opensAt, task.Accessibility.End, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// Delete removes a task metadata row. Returns ErrTaskNotFound when no row
// matched.
func (r *TaskRepo) Delete(ctx context.Context, courseID, taskID string) error {
	var deleted bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx,
			`DELETE FROM course_tasks WHERE course_id = $1 AND task_id = $2`,
			courseID, taskID)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return ErrTaskNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*course.Task, error) {
	var (
		task     course.Task
		policy   string
		opensAt  sql.NullTime
		closesAt sql.NullTime
	)
	if err := row.Scan(
		&task.CourseID,
		&task.ID,
		&task.Name,
		&task.Weight,
		&policy,
		&task.Accessibility.Hidden,
		&opensAt,
		&closesAt,
	); err != nil {
		return nil, err
	}
	task.Policy = course.GradingPolicy(policy)
	if opensAt.Valid {
		task.Accessibility.Start = opensAt.Time
	}
	if closesAt.Valid {
		end := closesAt.Time
		task.Accessibility.End = &end
	}
	return &task, nil
}
