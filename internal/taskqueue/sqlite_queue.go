package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteQueue is a persistent task queue backed by SQLite. Tasks are
// claimed in insertion order using an auto-incrementing id.
type SQLiteQueue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewSQLiteQueue initializes the tasks table in the given DB and returns a new queue.
func NewSQLiteQueue(db *sql.DB) (*SQLiteQueue, error) {
	q := &SQLiteQueue{
		db:           db,
		pollInterval: 20 * time.Millisecond,
	}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *SQLiteQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			workflow_name TEXT NOT NULL DEFAULT '',
			instance_id TEXT NOT NULL DEFAULT '',
			signal_name TEXT NOT NULL DEFAULT '',
			payload BLOB,
			enqueued_at INTEGER NOT NULL
		);
	`)
	return err
}

var _ Queue = (*SQLiteQueue)(nil)

func (q *SQLiteQueue) Enqueue(ctx context.Context, t Task) error {
	payloadBytes, err := encodePayload(t.Payload)
	if err != nil {
		return err
	}

	enqueuedAt := t.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = time.Now()
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, type, workflow_name, instance_id, signal_name, payload, enqueued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		string(t.Type),
		t.WorkflowName,
		t.InstanceID,
		t.SignalName,
		payloadBytes,
		enqueuedAt.UnixNano(),
	)
	return err
}

func (q *SQLiteQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		task, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if task != nil {
			return task, nil
		}

		// Nothing available: sleep a bit and retry.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.pollInterval):
		}
	}
}

// claim deletes and returns the oldest task, or nil if the table is empty.
func (q *SQLiteQueue) claim(ctx context.Context) (*Task, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id         int64
		task       Task
		typeStr    string
		payload    []byte
		enqueuedAt int64
	)
	row := tx.QueryRowContext(ctx, `
		SELECT id, task_id, type, workflow_name, instance_id, signal_name, payload, enqueued_at
		FROM tasks
		ORDER BY id
		LIMIT 1`)
	err = row.Scan(&id, &task.ID, &typeStr, &task.WorkflowName, &task.InstanceID, &task.SignalName, &payload, &enqueuedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	decoded, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}
	task.Type = TaskType(typeStr)
	task.Payload = decoded
	task.EnqueuedAt = time.Unix(0, enqueuedAt)
	return &task, nil
}

func (q *SQLiteQueue) Len() int {
	var n int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	if err != nil {
		return 0
	}
	return n
}
