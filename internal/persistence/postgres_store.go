package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

// PostgresInstanceStore is an InstanceStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver. The caller is
// responsible for importing the driver for its side effects, e.g.:
//
//	import _ "github.com/jackc/pgx/v5/stdlib"
type PostgresInstanceStore struct {
	db *sql.DB
}

var _ InstanceStore = (*PostgresInstanceStore)(nil)

// NewPostgresInstanceStore initializes the required schema in the given
// database and returns a new PostgresInstanceStore.
func NewPostgresInstanceStore(db *sql.DB) (*PostgresInstanceStore, error) {
	s := &PostgresInstanceStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *PostgresInstanceStore) initSchema() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS instances (
			id            TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status        TEXT NOT NULL,
			phase         TEXT NOT NULL DEFAULT '',
			input         BYTEA,
			output        BYTEA,
			error         TEXT NOT NULL DEFAULT '',
			parent_id     TEXT NOT NULL DEFAULT '',
			started_at    BIGINT NOT NULL DEFAULT 0,
			closed_at     BIGINT NOT NULL DEFAULT 0
		);
	`)
	return err
}

func (p *PostgresInstanceStore) SaveInstance(inst *api.WorkflowInstance) error {
	rec, err := toRecord(inst)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
		INSERT INTO instances (`+instanceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			workflow_name = EXCLUDED.workflow_name,
			status        = EXCLUDED.status,
			phase         = EXCLUDED.phase,
			input         = EXCLUDED.input,
			output        = EXCLUDED.output,
			error         = EXCLUDED.error,
			parent_id     = EXCLUDED.parent_id,
			started_at    = EXCLUDED.started_at,
			closed_at     = EXCLUDED.closed_at
	`,
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

func (p *PostgresInstanceStore) UpdateInstance(inst *api.WorkflowInstance) error {
	rec, err := toRecord(inst)
	if err != nil {
		return err
	}

	res, err := p.db.Exec(`
		UPDATE instances
		SET workflow_name = $1,
		    status        = $2,
		    phase         = $3,
		    input         = $4,
		    output        = $5,
		    error         = $6,
		    parent_id     = $7,
		    started_at    = $8,
		    closed_at     = $9
		WHERE id = $10
	`,
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

func (p *PostgresInstanceStore) GetInstance(id string) (*api.WorkflowInstance, error) {
	row := p.db.QueryRow(`SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id)

	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return inst, nil
}

func (p *PostgresInstanceStore) ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances`
	var args []any
	var clauses []string

	if filter.WorkflowName != "" {
		clauses = append(clauses, fmt.Sprintf("workflow_name = $%d", len(args)+1))
		args = append(args, filter.WorkflowName)
	}
	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at ASC, id ASC"

	rows, err := p.db.Query(query, args...)
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

// PostgresEventStore stores workflow events in PostgreSQL.
type PostgresEventStore struct {
	db *sql.DB
}

var _ EventStore = (*PostgresEventStore)(nil)

func NewPostgresEventStore(db *sql.DB) (*PostgresEventStore, error) {
	s := &PostgresEventStore{db: db}
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_events (
			id            BIGSERIAL PRIMARY KEY,
			instance_id   TEXT NOT NULL,
			at            BIGINT NOT NULL,
			type          TEXT NOT NULL,
			workflow_name TEXT NOT NULL DEFAULT '',
			phase         TEXT NOT NULL DEFAULT '',
			detail        TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_workflow_events_instance_id ON workflow_events(instance_id, id);
	`)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresEventStore) AppendEvent(ctx context.Context, ev api.WorkflowEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workflow_events (instance_id, at, type, workflow_name, phase, detail)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.InstanceID,
		at.UnixNano(),
		string(ev.Type),
		ev.WorkflowName,
		ev.Phase,
		ev.Detail,
	)
	return err
}

func (s *PostgresEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT instance_id, at, type, workflow_name, phase, detail
		FROM workflow_events
		WHERE instance_id = $1
		ORDER BY id ASC`, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.WorkflowEvent
	for rows.Next() {
		var (
			ev  api.WorkflowEvent
			atN int64
			typ string
		)
		if err := rows.Scan(&ev.InstanceID, &atN, &typ, &ev.WorkflowName, &ev.Phase, &ev.Detail); err != nil {
			return nil, err
		}
		ev.At = time.Unix(0, atN)
		ev.Type = api.EventType(typ)
		out = append(out, ev)
	}
	return out, rows.Err()
}
