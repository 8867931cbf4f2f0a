package persistence

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo"
)

// Persistence bundles the two store interfaces so the engine
// can depend on a single abstraction.
type Persistence struct {
	Instances InstanceStore
	Events    EventStore
}

// NewInMemory returns a Persistence backed by process memory.
func NewInMemory() Persistence {
	return Persistence{
		Instances: NewInMemoryStore(),
		Events:    NewInMemoryEventStore(),
	}
}

// NewSQLite initializes the instance and event schemas in db.
// The caller must import a SQLite driver, e.g. _ "modernc.org/sqlite".
func NewSQLite(db *sql.DB) (Persistence, error) {
	inst, err := NewSQLiteInstanceStore(db)
	if err != nil {
		return Persistence{}, err
	}
	events, err := NewSQLiteEventStore(db)
	if err != nil {
		return Persistence{}, err
	}
	return Persistence{Instances: inst, Events: events}, nil
}

// NewRedis returns a Persistence whose keys all live under prefix.
func NewRedis(client *redis.Client, prefix string) Persistence {
	return Persistence{
		Instances: NewRedisInstanceStore(client, prefix),
		Events:    NewRedisEventStore(client, prefix),
	}
}

// NewBolt creates the required buckets in db.
func NewBolt(db *bolt.DB) (Persistence, error) {
	inst, err := NewBoltInstanceStore(db)
	if err != nil {
		return Persistence{}, err
	}
	events, err := NewBoltEventStore(db)
	if err != nil {
		return Persistence{}, err
	}
	return Persistence{Instances: inst, Events: events}, nil
}

// NewPostgres initializes the instance and event tables in db.
// The caller must import a PostgreSQL driver, e.g. _ "github.com/jackc/pgx/v5/stdlib".
func NewPostgres(db *sql.DB) (Persistence, error) {
	inst, err := NewPostgresInstanceStore(db)
	if err != nil {
		return Persistence{}, err
	}
	events, err := NewPostgresEventStore(db)
	if err != nil {
		return Persistence{}, err
	}
	return Persistence{Instances: inst, Events: events}, nil
}

// NewMongo returns a Persistence using the "instances" and "workflow_events"
// collections of dbName.
func NewMongo(client *mongo.Client, dbName string) Persistence {
	return Persistence{
		Instances: NewMongoInstanceStore(client, dbName, ""),
		Events:    NewMongoEventStore(client, dbName, ""),
	}
}
