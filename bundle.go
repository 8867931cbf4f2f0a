package tempalert

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/tempalert/internal/taskqueue"
	"github.com/petrijr/tempalert/pkg/worker"
)

// NewSQLiteBundle constructs a LocalRunner whose engine records instances and
// history in db and whose start/signal tasks are queued in the same database,
// so tasks enqueued before a restart are still processed after it.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:tempalert.db?_pragma=busy_timeout(5000)")
//	runner, err := tempalert.NewSQLiteBundle(db, worker.Config{})
func NewSQLiteBundle(db *sql.DB, cfg worker.Config) (*LocalRunner, error) {
	eng, err := NewSQLiteEngine(db)
	if err != nil {
		return nil, err
	}

	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}

	return NewLocalRunnerWith(eng, q, cfg), nil
}

// NewRedisBundle constructs a LocalRunner whose engine records instances and
// history in Redis and whose tasks are queued in a Redis list.
func NewRedisBundle(client *redis.Client, cfg worker.Config) *LocalRunner {
	eng := NewRedisEngine(client)
	q := taskqueue.NewRedisQueue(client, "")
	return NewLocalRunnerWith(eng, q, cfg)
}

// NewPostgresBundle constructs a LocalRunner whose engine records and task
// queue share one PostgreSQL database. Several processes may consume the
// same queue.
func NewPostgresBundle(db *sql.DB, cfg worker.Config) (*LocalRunner, error) {
	eng, err := NewPostgresEngine(db)
	if err != nil {
		return nil, err
	}
	q, err := taskqueue.NewPostgresQueue(db)
	if err != nil {
		return nil, err
	}
	return NewLocalRunnerWith(eng, q, cfg), nil
}

// NewMongoBundle constructs a LocalRunner backed by the default MongoDB
// database.
func NewMongoBundle(client *mongo.Client, cfg worker.Config) *LocalRunner {
	return NewLocalRunnerWith(NewMongoEngine(client), taskqueue.NewMongoQueue(client, "", ""), cfg)
}
