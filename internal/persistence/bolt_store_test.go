package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/petrijr/tempalert/pkg/api"
)

func openTestBolt(t *testing.T, path string) *bolt.DB {
	t.Helper()
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	require.NoError(t, err)
	return db
}

func TestBoltStores(t *testing.T) {
	db := openTestBolt(t, filepath.Join(t.TempDir(), "tempalert.db"))
	t.Cleanup(func() { _ = db.Close() })

	p, err := NewBolt(db)
	require.NoError(t, err)

	runInstanceStoreContract(t, p.Instances)
	runEventStoreContract(t, p.Events)
}

func TestBoltInstanceStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tempalert.db")

	db := openTestBolt(t, path)
	store, err := NewBoltInstanceStore(db)
	require.NoError(t, err)
	require.NoError(t, store.SaveInstance(&api.WorkflowInstance{
		ID:     "temp-alert-1",
		Name:   "temperature",
		Status: api.StatusWaiting,
		Phase:  "AwaitingResponse",
	}))
	require.NoError(t, db.Close())

	db = openTestBolt(t, path)
	t.Cleanup(func() { _ = db.Close() })
	store, err = NewBoltInstanceStore(db)
	require.NoError(t, err)

	got, err := store.GetInstance("temp-alert-1")
	require.NoError(t, err)
	require.Equal(t, "AwaitingResponse", got.Phase)
}
