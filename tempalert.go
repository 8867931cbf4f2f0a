package tempalert

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo"
	"k8s.io/utils/clock"

	"github.com/petrijr/tempalert/internal/engine"
	"github.com/petrijr/tempalert/internal/persistence"
	"github.com/petrijr/tempalert/pkg/activities"
	"github.com/petrijr/tempalert/pkg/api"
	"github.com/petrijr/tempalert/pkg/monitor"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine               = api.Engine
	HistoryReader        = api.HistoryReader
	Context              = api.Context
	WorkflowFunc         = api.WorkflowFunc
	WorkflowDefinition   = api.WorkflowDefinition
	WorkflowInstance     = api.WorkflowInstance
	WorkflowEvent        = api.WorkflowEvent
	InstanceListOptions  = api.InstanceListOptions
	StartOptions         = api.StartOptions
	ChildOptions         = api.ChildOptions
	Status               = api.Status
	ActivityFunc         = api.ActivityFunc
	ActivityOptions      = api.ActivityOptions
	RetryPolicy          = api.RetryPolicy
	Latch                = api.Latch
	RaceOutcome          = api.RaceOutcome
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	NewLatch             = api.NewLatch
	Retry                = api.Retry
)

// Re-export status values for convenience.

const (
	StatusPending   = api.StatusPending
	StatusRunning   = api.StatusRunning
	StatusWaiting   = api.StatusWaiting
	StatusFailed    = api.StatusFailed
	StatusCompleted = api.StatusCompleted
)

// Options configures NewEngine. Zero values select in-memory stores, no
// observer, the wall clock and slog.Default().
type Options struct {
	Observer Observer
	Logger   *slog.Logger
	Clock    clock.Clock
}

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewEngine returns an in-memory Engine configured by opts.
func NewEngine(opts Options) Engine {
	return engine.NewEngineWithConfig(engine.Config{
		Persistence: persistence.NewInMemory(),
		Observer:    opts.Observer,
		Clock:       opts.Clock,
		Logger:      opts.Logger,
	})
}

// NewSQLiteEngine returns an Engine that records instances and history in
// a SQLite database.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewRedisEngine returns an Engine that records instances and history in Redis.
func NewRedisEngine(client *redis.Client) Engine {
	return engine.NewRedisEngine(client)
}

// NewBoltEngine returns an Engine that records instances and history in a
// bbolt database.
func NewBoltEngine(db *bolt.DB) (Engine, error) {
	return engine.NewBoltEngine(db)
}

// NewPostgresEngine returns an Engine that records instances and history in
// PostgreSQL. The caller imports the driver, e.g. _ "github.com/jackc/pgx/v5/stdlib".
func NewPostgresEngine(db *sql.DB) (Engine, error) {
	return engine.NewPostgresEngine(db)
}

// NewMongoEngine returns an Engine that records instances and history in
// MongoDB.
func NewMongoEngine(client *mongo.Client) Engine {
	return engine.NewMongoEngine(client)
}

// RegisterMonitoring registers the monitoring workflows and the actions they
// call. A nil acts uses activities.New().
func RegisterMonitoring(eng Engine, acts *activities.Actions) error {
	if acts == nil {
		acts = activities.New()
	}
	if err := monitor.Register(eng); err != nil {
		return err
	}
	return acts.Register(eng)
}

// Convenience helpers that just forward to the underlying Engine.

// Start starts a registered workflow with a generated ID.
func Start(ctx context.Context, eng Engine, name string, input any) (*WorkflowInstance, error) {
	return eng.Start(ctx, name, StartOptions{}, input)
}

// GetInstance fetches an instance by ID.
func GetInstance(ctx context.Context, eng Engine, id string) (*WorkflowInstance, error) {
	return eng.GetInstance(ctx, id)
}

// ListInstances lists workflow instances according to the given options.
func ListInstances(ctx context.Context, eng Engine, opts InstanceListOptions) ([]*WorkflowInstance, error) {
	return eng.ListInstances(ctx, opts)
}

// Signal delivers a signal to a running instance.
func Signal(ctx context.Context, eng Engine, id string, name string, payload any) error {
	return eng.Signal(ctx, id, name, payload)
}

// Query runs a read-only query against an instance.
func Query(ctx context.Context, eng Engine, id string, name string) (any, error) {
	return eng.Query(ctx, id, name)
}
