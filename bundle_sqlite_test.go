package tempalert

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
	"github.com/petrijr/tempalert/pkg/worker"
)

func openSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	return db
}

// Tasks enqueued before a restart are picked up by the next process.
func TestSQLiteBundle_QueuedStartSurvivesRestart(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	path := filepath.Join(t.TempDir(), "tempalert_bundle.db")

	// Phase 1: enqueue only.
	db1 := openSQLite(t, path)
	bundle1, err := NewSQLiteBundle(db1, worker.Config{})
	require.NoError(t, err)
	require.NoError(t, RegisterMonitoring(bundle1.Engine, quietActions()))

	id, err := bundle1.StartWorkflowAsync(ctx, monitor.TemperatureEscalationWorkflow, "temp-alert-durable", monitor.TemperatureInput{
		ThresholdDelta:      5,
		ThresholdTimeWindow: 15 * time.Second,
		ResponseWaitWindow:  time.Minute,
	})
	require.NoError(t, err)
	require.NoError(t, bundle1.SignalAsync(ctx, id, monitor.SignalTemperatureReading, 12.0))
	require.Equal(t, 2, bundle1.Queue.Len())

	before, err := bundle1.Engine.ListInstances(ctx, api.InstanceListOptions{})
	require.NoError(t, err)
	require.Empty(t, before)
	require.NoError(t, db1.Close())

	// Phase 2: a new process drains the queue.
	db2 := openSQLite(t, path)
	t.Cleanup(func() { _ = db2.Close() })
	bundle2, err := NewSQLiteBundle(db2, worker.Config{})
	require.NoError(t, err)
	startRunner(t, bundle2)

	require.Eventually(t, func() bool {
		v, err := bundle2.Query(ctx, id, monitor.QueryCurrentReadings)
		return err == nil && len(v.([]monitor.Reading)) == 1
	}, 5*time.Second, 5*time.Millisecond)

	inst, err := bundle2.Engine.GetInstance(ctx, id)
	require.NoError(t, err)
	require.Equal(t, monitor.TemperatureEscalationWorkflow, inst.Name)
	require.Equal(t, StatusWaiting, inst.Status)
	require.Equal(t, 0, bundle2.Queue.Len())

	// The snapshot is in the database, not only in memory.
	var count int
	require.NoError(t, db2.QueryRowContext(ctx, `SELECT COUNT(*) FROM instances WHERE id = ?`, id).Scan(&count))
	require.Equal(t, 1, count)
}
