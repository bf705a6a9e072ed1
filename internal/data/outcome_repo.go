package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/data/pgxutil"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// OutcomeRepo is the durable queue of grade reports to the LMS. A partial
// unique index keeps at most one pending row per sourcedid, which is what
// makes enqueueing a newer grade coalesce with a still-pending retry.
type OutcomeRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewOutcomeRepo creates a new OutcomeRepo with the given database connection.
func NewOutcomeRepo(db *sql.DB, cfg RepoConfig) *OutcomeRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &OutcomeRepo{DB: db, timeProvider: tp}
}

const outcomeColumns = `
  id,
  sourcedid,
  service_url,
  score,
  submission_id,
  status,
  attempts,
  next_attempt_at,
  last_error,
  created_at,
  updated_at
`

// Enqueue inserts a pending delivery. When a pending delivery for the same
// sourcedid already exists, the new score replaces it and the retry counter
// restarts: the older report is superseded, never delivered after the newer
// one. A lease held by an in-flight worker is left in place; that worker's
// MarkDelivered will miss on the score guard and the row retries with the
// new score.
func (r *OutcomeRepo) Enqueue(ctx context.Context, req model.EnqueueOutcomeRequest) (*model.OutcomeDelivery, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	id := uuid.NewString()

	var delivery *model.OutcomeDelivery
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			INSERT INTO outcome_deliveries(id, sourcedid, service_url, score, submission_id, status, attempts, next_attempt_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, $6, $6)
			ON CONFLICT (sourcedid) WHERE status = 'pending' DO UPDATE
			SET score = EXCLUDED.score,
			    service_url = EXCLUDED.service_url,
			    submission_id = EXCLUDED.submission_id,
			    attempts = 0,
			    next_attempt_at = EXCLUDED.next_attempt_at,
			    last_error = NULL,
			    updated_at = EXCLUDED.updated_at
			RETURNING `+outcomeColumns,
			id, req.Sourcedid, req.ServiceURL, req.Score, req.SubmissionID, now,
		)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		var cErr error
		delivery, cErr = collectOutcomeFromRows(rows)
		return cErr
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue outcome delivery: %w", err)
	}
	return delivery, nil
}

// reserveDueSQL leases the next due pending delivery. SKIP LOCKED keeps
// concurrent workers off the same row; the lease lets a row reserved by a
// crashed worker become due again once it expires.
const reserveDueSQL = `
  WITH cte AS (
    SELECT id FROM outcome_deliveries
    WHERE status = 'pending'
      AND next_attempt_at <= $1
      AND (lease_expires_at IS NULL OR lease_expires_at < $1)
    ORDER BY next_attempt_at ASC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE outcome_deliveries d
  SET lease_expires_at = $2,
      updated_at = $1
  FROM cte
  WHERE d.id = cte.id
  RETURNING ` + outcomeColumns

// ReserveDue leases the next pending delivery whose attempt is due.
func (r *OutcomeRepo) ReserveDue(ctx context.Context, now time.Time, leaseSeconds int) (*model.OutcomeDelivery, error) {
	if leaseSeconds <= 0 {
		return nil, errors.New("leaseSeconds must be positive")
	}
	leaseExpires := now.Add(time.Duration(leaseSeconds) * time.Second)

	var delivery *model.OutcomeDelivery
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		rows, qErr := tx.Query(ctx, reserveDueSQL, now.UTC(), leaseExpires.UTC())
		if qErr != nil {
			return fmt.Errorf("reserve delivery: %w", qErr)
		}
		defer rows.Close()
		d, cErr := collectOutcomeFromRows(rows)
		if errors.Is(cErr, pgx.ErrNoRows) {
			return model.ErrNoDeliveriesDue
		}
		if cErr != nil {
			return fmt.Errorf("reserve delivery: %w", cErr)
		}
		delivery = d
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNoDeliveriesDue) {
			return nil, model.ErrNoDeliveriesDue
		}
		return nil, err
	}
	return delivery, nil
}

// MarkDelivered records an acknowledged delivery. The score guard keeps a
// row coalesced to a newer grade mid-flight from being closed by the stale
// attempt: the update misses, the caller sees false, and the newer score is
// retried.
func (r *OutcomeRepo) MarkDelivered(ctx context.Context, params core.MarkDeliveredParams) (bool, error) {
	now := r.timeProvider.Now().UTC()
	var updated bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE outcome_deliveries
			SET status = 'delivered',
			    lease_expires_at = NULL,
			    last_error = NULL,
			    updated_at = $3
			WHERE id = $1 AND status = 'pending' AND score = $2
		`, params.ID, params.Score, now)
		if execErr != nil {
			return execErr
		}
		updated = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("mark outcome delivered: %w", err)
	}
	return updated, nil
}

// Reschedule bumps the attempt counter and sets the next retry time.
func (r *OutcomeRepo) Reschedule(ctx context.Context, params core.RescheduleOutcomeParams) (bool, error) {
	now := r.timeProvider.Now().UTC()
	var updated bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE outcome_deliveries
			SET attempts = attempts + 1,
			    next_attempt_at = $2,
			    lease_expires_at = NULL,
			    last_error = $3,
			    updated_at = $4
			WHERE id = $1 AND status = 'pending'
		`, params.ID, params.NextAttemptAt.UTC(), params.LastError, now)
		if execErr != nil {
			return execErr
		}
		updated = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("reschedule outcome delivery: %w", err)
	}
	return updated, nil
}

// Abandon marks a delivery as out of retry budget. The row is kept so
// operators can inspect and requeue it; it is never silently dropped.
func (r *OutcomeRepo) Abandon(ctx context.Context, params core.AbandonOutcomeParams) (bool, error) {
	now := r.timeProvider.Now().UTC()
	var updated bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE outcome_deliveries
			SET status = 'abandoned',
			    attempts = attempts + 1,
			    lease_expires_at = NULL,
			    last_error = $2,
			    updated_at = $3
			WHERE id = $1 AND status = 'pending'
		`, params.ID, params.LastError, now)
		if execErr != nil {
			return execErr
		}
		updated = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("abandon outcome delivery: %w", err)
	}
	return updated, nil
}

// Requeue resets an abandoned delivery for another retry round. If a pending
// delivery for the same sourcedid appeared in the meantime it wins; the
// abandoned row stays abandoned to preserve the one-pending-per-sourcedid
// invariant.
func (r *OutcomeRepo) Requeue(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	var updated bool
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			UPDATE outcome_deliveries d
			SET status = 'pending',
			    attempts = 0,
			    next_attempt_at = $2,
			    lease_expires_at = NULL,
			    last_error = NULL,
			    updated_at = $2
			WHERE d.id = $1
			  AND d.status = 'abandoned'
			  AND NOT EXISTS (
			    SELECT 1 FROM outcome_deliveries p
			    WHERE p.sourcedid = d.sourcedid AND p.status = 'pending'
			  )
		`, id, now)
		if execErr != nil {
			return execErr
		}
		updated = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("requeue outcome delivery: %w", err)
	}
	return updated, nil
}

// ListAbandoned returns abandoned deliveries, oldest first, for the operator CLI.
func (r *OutcomeRepo) ListAbandoned(ctx context.Context, limit int) ([]*model.OutcomeDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var deliveries []*model.OutcomeDelivery
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, `
			SELECT `+outcomeColumns+`
			FROM outcome_deliveries
			WHERE status = 'abandoned'
			ORDER BY updated_at ASC
			LIMIT $1
		`, limit)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		for rows.Next() {
			d, sErr := scanOutcomeFromRow(rows)
			if sErr != nil {
				return sErr
			}
			deliveries = append(deliveries, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list abandoned deliveries: %w", err)
	}
	return deliveries, nil
}

// Stats returns queue counts per status.
func (r *OutcomeRepo) Stats(ctx context.Context) (*model.OutcomeStats, error) {
	var s model.OutcomeStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE status = 'pending')   AS pending,
	    count(*) FILTER (WHERE status = 'delivered') AS delivered,
	    count(*) FILTER (WHERE status = 'abandoned') AS abandoned
	  FROM outcome_deliveries
	`).Scan(&s.Pending, &s.Delivered, &s.Abandoned)
	if err != nil {
		return nil, fmt.Errorf("get outcome stats: %w", err)
	}
	return &s, nil
}

// DeleteDeliveredOutcomes deletes acknowledged deliveries older than MaxAge,
// bounded per call. Abandoned rows are deliberately excluded.
func (r *OutcomeRepo) DeleteDeliveredOutcomes(ctx context.Context, params core.DeleteDeliveredOutcomesParams) (int64, error) {
	batch := params.BatchSize
	if batch <= 0 {
		batch = 100
	}
	cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()

	var deleted int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, execErr := conn.Exec(ctx, `
			DELETE FROM outcome_deliveries
			WHERE id IN (
				SELECT id FROM outcome_deliveries
				WHERE status = 'delivered' AND updated_at < $1
				LIMIT $2
			)
		`, cutoff, batch)
		if execErr != nil {
			return execErr
		}
		deleted = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete delivered outcomes: %w", err)
	}
	return deleted, nil
}

type outcomeRowScanner interface {
	Scan(dest ...any) error
}

func scanOutcomeFromRow(scanner outcomeRowScanner) (*model.OutcomeDelivery, error) {
	d := &model.OutcomeDelivery{}
	var lastError *string
	if err := scanner.Scan(
		&d.ID,
		&d.Sourcedid,
		&d.ServiceURL,
		&d.Score,
		&d.SubmissionID,
		&d.Status,
		&d.Attempts,
		&d.NextAttemptAt,
		&lastError,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.LastError = lastError
	return d, nil
}

func collectOutcomeFromRows(rows pgx.Rows) (*model.OutcomeDelivery, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}
	d, err := scanOutcomeFromRow(rows)
	if err != nil {
		return nil, err
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return d, nil
}
