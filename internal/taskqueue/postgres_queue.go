package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresQueue implements Queue using a PostgreSQL table.
//
// Schema (created automatically if missing):
//
//	CREATE TABLE IF NOT EXISTS queue_tasks (
//	    seq         BIGSERIAL PRIMARY KEY,
//	    id          TEXT NOT NULL,
//	    payload     BYTEA NOT NULL,
//	    enqueued_at BIGINT NOT NULL
//	);
//
// The queue is FIFO by seq. Consumers in several processes may share it.
type PostgresQueue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewPostgresQueue creates the required schema if needed and returns a Queue.
func NewPostgresQueue(db *sql.DB) (*PostgresQueue, error) {
	q := &PostgresQueue{db: db, pollInterval: 100 * time.Millisecond}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

var _ Queue = (*PostgresQueue)(nil)

func (q *PostgresQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS queue_tasks (
			seq         BIGSERIAL PRIMARY KEY,
			id          TEXT NOT NULL,
			payload     BYTEA NOT NULL,
			enqueued_at BIGINT NOT NULL
		);
	`)
	return err
}

// Enqueue inserts a task into the queue.
func (q *PostgresQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	data, err := EncodeTask(t)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO queue_tasks (id, payload, enqueued_at)
		VALUES ($1, $2, $3)
	`, t.ID, data, t.EnqueuedAt.UnixNano())
	return err
}

// Dequeue blocks (with polling) until a task is available or ctx is cancelled.
func (q *PostgresQueue) Dequeue(ctx context.Context) (*Task, error) {
	tmr := time.NewTimer(q.pollInterval)
	defer tmr.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		task, err := q.claim(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, err
		}
		if task != nil {
			return task, nil
		}

		tmr.Reset(q.pollInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-tmr.C:
		}
	}
}

// claim locks the oldest row with SKIP LOCKED, deletes it in the same
// transaction and returns it. It returns nil when the table is empty.
func (q *PostgresQueue) claim(ctx context.Context) (*Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		seq     int64
		id      string
		payload []byte
	)
	err = tx.QueryRowContext(ctx, `
		SELECT seq, id, payload
		FROM queue_tasks
		ORDER BY seq
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&seq, &id, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM queue_tasks WHERE seq = $1`, seq); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	task, err := DecodeTask(payload)
	if err != nil {
		return nil, fmt.Errorf("decode task %q: %w", id, err)
	}
	return task, nil
}

// Len returns an approximate number of queued tasks.
func (q *PostgresQueue) Len() int {
	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM queue_tasks`).Scan(&n); err != nil {
		return 0
	}
	return n
}
