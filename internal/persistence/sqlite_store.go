package persistence

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// SQLiteInstanceStore is an InstanceStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteInstanceStore struct {
	db *sql.DB
}

var _ InstanceStore = (*SQLiteInstanceStore)(nil)

// NewSQLiteInstanceStore initializes the required schema in the given
// database and returns a new SQLiteInstanceStore.
func NewSQLiteInstanceStore(db *sql.DB) (*SQLiteInstanceStore, error) {
	s := &SQLiteInstanceStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteInstanceStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS instances (
			id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status TEXT NOT NULL,
			phase TEXT NOT NULL DEFAULT '',
			input BLOB,
			output BLOB,
			error TEXT,
			parent_id TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL DEFAULT 0,
			closed_at INTEGER NOT NULL DEFAULT 0
		);`,
	)
	return err
}

const instanceColumns = `id, workflow_name, status, phase, input, output, error, parent_id, started_at, closed_at`

func (s *SQLiteInstanceStore) SaveInstance(inst *api.WorkflowInstance) error {
	rec, err := toRecord(inst)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workflow_name = excluded.workflow_name,
			status = excluded.status,
			phase = excluded.phase,
			input = excluded.input,
			output = excluded.output,
			error = excluded.error,
			parent_id = excluded.parent_id,
			started_at = excluded.started_at,
			closed_at = excluded.closed_at`,
		rec.ID,
		rec.Workflow,
		rec.Status,
		rec.Phase,
		rec.Input,
		rec.Output,
		rec.Error,
		rec.ParentID,
		unixNano(rec.StartedAt),
		unixNano(rec.ClosedAt),
	)
	return err
}

func (s *SQLiteInstanceStore) UpdateInstance(inst *api.WorkflowInstance) error {
	rec, err := toRecord(inst)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE instances
		SET workflow_name = ?, status = ?, phase = ?, input = ?, output = ?, error = ?,
			parent_id = ?, started_at = ?, closed_at = ?
		WHERE id = ?`,
		rec.Workflow,
		rec.Status,
		rec.Phase,
		rec.Input,
		rec.Output,
		rec.Error,
		rec.ParentID,
		unixNano(rec.StartedAt),
		unixNano(rec.ClosedAt),
		rec.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInstanceNotFound
	}

	return nil
}

func (s *SQLiteInstanceStore) GetInstance(id string) (*api.WorkflowInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceColumns+` FROM instances WHERE id = ?`, id)

	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (s *SQLiteInstanceStore) ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []any
	var clauses []string

	if filter.WorkflowName != "" {
		clauses = append(clauses, "workflow_name = ?")
		args = append(args, filter.WorkflowName)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	instances := []*api.WorkflowInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return instances, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (*api.WorkflowInstance, error) {
	var rec instanceRecord
	var errStr sql.NullString
	var started, closed int64

	if err := row.Scan(&rec.ID, &rec.Workflow, &rec.Status, &rec.Phase, &rec.Input, &rec.Output,
		&errStr, &rec.ParentID, &started, &closed); err != nil {
		return nil, err
	}
	if errStr.Valid {
		rec.Error = errStr.String
	}
	rec.StartedAt = fromUnixNano(started)
	rec.ClosedAt = fromUnixNano(closed)

	return rec.instance()
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
