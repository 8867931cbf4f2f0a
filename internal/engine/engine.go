package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/mongo"
	"k8s.io/utils/clock"

	"github.com/petrijr/tempalert/internal/persistence"
	"github.com/petrijr/tempalert/pkg/api"
)

// engineImpl runs each workflow instance on its own goroutine and keeps the
// live instances in memory. Snapshots and history go to the configured
// persistence for inspection; instances are not resumed after a restart.
type engineImpl struct {
	registry  *registry
	instances persistence.InstanceStore
	events    persistence.EventStore
	observer  api.Observer
	clock     clock.Clock
	logger    *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	live    map[string]*instance
	stopped bool
}

// Config describes how to construct an engineImpl.
// Zero values select in-memory stores, a no-op observer, the wall clock and
// slog.Default().
type Config struct {
	Persistence persistence.Persistence
	Observer    api.Observer

	// Clock drives Race deadlines, Sleep and retry backoff. Tests pass a fake.
	Clock clock.Clock

	Logger *slog.Logger
}

var (
	_ api.Engine        = (*engineImpl)(nil)
	_ api.HistoryReader = (*engineImpl)(nil)
)

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	return newEngine(cfg)
}

func newEngine(cfg Config) *engineImpl {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	p := cfg.Persistence
	if p.Instances == nil {
		p.Instances = persistence.NewInMemoryStore()
	}
	if p.Events == nil {
		p.Events = persistence.NoopEventStore{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &engineImpl{
		registry:  newRegistry(),
		instances: p.Instances,
		events:    p.Events,
		observer:  obs,
		clock:     clk,
		logger:    logger,
		baseCtx:   ctx,
		cancel:    cancel,
		live:      make(map[string]*instance),
	}
}

// NewEngine returns an Engine using the given persistence and defaults for
// everything else.
func NewEngine(p persistence.Persistence) api.Engine {
	return NewEngineWithConfig(Config{Persistence: p})
}

// NewInMemoryEngine returns an Engine whose instances and history live in
// process memory.
func NewInMemoryEngine() api.Engine {
	return NewEngine(persistence.NewInMemory())
}

// NewSQLiteEngine returns an Engine that records snapshots and history in db.
func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	p, err := persistence.NewSQLite(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(p), nil
}

// NewRedisEngine returns an Engine that records snapshots and history in Redis
// under the default key prefix.
func NewRedisEngine(client *redis.Client) api.Engine {
	return NewEngine(persistence.NewRedis(client, persistence.DefaultRedisPrefix))
}

// NewBoltEngine returns an Engine that records snapshots and history in a
// bbolt file.
func NewBoltEngine(db *bolt.DB) (api.Engine, error) {
	p, err := persistence.NewBolt(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(p), nil
}

// NewPostgresEngine returns an Engine that records snapshots and history in
// PostgreSQL.
func NewPostgresEngine(db *sql.DB) (api.Engine, error) {
	p, err := persistence.NewPostgres(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(p), nil
}

// NewMongoEngine returns an Engine that records snapshots and history in the
// default MongoDB database.
func NewMongoEngine(client *mongo.Client) api.Engine {
	return NewEngine(persistence.NewMongo(client, persistence.DefaultMongoDatabase))
}

func (e *engineImpl) RegisterWorkflow(def api.WorkflowDefinition) error {
	return e.registry.registerWorkflow(def)
}

func (e *engineImpl) RegisterActivity(name string, fn api.ActivityFunc) error {
	return e.registry.registerActivity(name, fn)
}

func (e *engineImpl) Start(ctx context.Context, name string, opts api.StartOptions, input any) (*api.WorkflowInstance, error) {
	inst, err := e.start(name, opts.ID, input, "")
	if err != nil {
		return nil, err
	}
	return inst.snapshot(), nil
}

func (e *engineImpl) start(name, id string, input any, parentID string) (*instance, error) {
	def, err := e.registry.workflow(name)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = name + "-" + uuid.NewString()
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil, api.ErrEngineStopped
	}
	if existing, ok := e.live[id]; ok && !existing.closed() {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", api.ErrInstanceAlreadyRunning, id)
	}

	inst := newInstance(e, def, &api.WorkflowInstance{
		ID:        id,
		Name:      def.Name,
		Status:    api.StatusRunning,
		Input:     input,
		ParentID:  parentID,
		StartedAt: e.clock.Now(),
	})
	e.live[id] = inst
	e.wg.Add(1)
	e.mu.Unlock()

	if err := e.instances.SaveInstance(inst.snapshot()); err != nil {
		e.logger.Error("save instance", slog.String("instance_id", id), slog.Any("error", err))
	}
	e.record(inst, api.EventWorkflowStarted, parentID)

	go e.run(inst, input)
	return inst, nil
}

// run is the instance goroutine.
func (e *engineImpl) run(inst *instance, input any) {
	defer e.wg.Done()
	defer close(inst.done)

	wctx := newWorkflowContext(e, inst)
	e.observer.OnWorkflowStart(e.baseCtx, inst.snapshot())

	out, err := callWorkflow(inst.def.Fn, wctx, input)
	inst.finish(out, err, e.clock.Now())

	snap := inst.snapshot()
	e.persist(snap)
	if err != nil {
		e.record(inst, api.EventWorkflowFailed, err.Error())
		e.observer.OnWorkflowFailed(e.baseCtx, snap, err)
	} else {
		e.record(inst, api.EventWorkflowCompleted, "")
		e.observer.OnWorkflowCompleted(e.baseCtx, snap)
	}

	for _, env := range inst.mailbox.close() {
		e.record(inst, api.EventSignalDropped, env.name)
	}
}

func callWorkflow(fn api.WorkflowFunc, ctx api.Context, input any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &api.PanicError{Value: r}
		}
	}()
	return fn(ctx, input)
}

func (e *engineImpl) Signal(ctx context.Context, id string, name string, payload any) error {
	inst, err := e.lookup(id)
	if err != nil {
		return err
	}
	if inst.closed() {
		return fmt.Errorf("%w: %s", api.ErrInstanceClosed, id)
	}

	if !inst.mailbox.push(envelope{name: name, payload: payload}) {
		return fmt.Errorf("%w: %s", api.ErrInstanceClosed, id)
	}
	e.record(inst, api.EventSignalReceived, name)
	return nil
}

func (e *engineImpl) Query(ctx context.Context, id string, name string) (any, error) {
	inst, err := e.lookup(id)
	if err != nil {
		return nil, err
	}

	req := queryRequest{name: name, reply: make(chan queryResult, 1)}
	select {
	case inst.queries <- req:
		select {
		case res := <-req.reply:
			return res.value, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case <-inst.done:
		return inst.queryClosed(name)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// lookup returns the live instance for id. Instances only known to the store
// (from an earlier process) report ErrInstanceClosed or ErrInstanceNotFound.
func (e *engineImpl) lookup(id string) (*instance, error) {
	e.mu.Lock()
	inst, ok := e.live[id]
	e.mu.Unlock()
	if ok {
		return inst, nil
	}

	stored, err := e.instances.GetInstance(id)
	if err != nil {
		if errors.Is(err, persistence.ErrInstanceNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrInstanceNotFound, id)
		}
		return nil, err
	}
	if stored.Status.Closed() {
		return nil, fmt.Errorf("%w: %s", api.ErrInstanceClosed, id)
	}
	return nil, fmt.Errorf("%w: %s is not running in this process", api.ErrInstanceNotFound, id)
}

func (e *engineImpl) GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	e.mu.Lock()
	inst, ok := e.live[id]
	e.mu.Unlock()
	if ok {
		return inst.snapshot(), nil
	}

	stored, err := e.instances.GetInstance(id)
	if err != nil {
		if errors.Is(err, persistence.ErrInstanceNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrInstanceNotFound, id)
		}
		return nil, err
	}
	return stored, nil
}

func (e *engineImpl) ListInstances(ctx context.Context, opts api.InstanceListOptions) ([]*api.WorkflowInstance, error) {
	filter := persistence.InstanceFilter{
		WorkflowName: opts.WorkflowName,
		Status:       opts.Status,
	}
	return e.instances.ListInstances(filter)
}

func (e *engineImpl) Await(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	e.mu.Lock()
	inst, ok := e.live[id]
	e.mu.Unlock()
	if !ok {
		stored, err := e.GetInstance(ctx, id)
		if err != nil {
			return nil, err
		}
		if !stored.Status.Closed() {
			return nil, fmt.Errorf("%w: %s is not running in this process", api.ErrInstanceNotFound, id)
		}
		return stored, nil
	}

	select {
	case <-inst.done:
		return inst.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *engineImpl) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	return e.events.ListEvents(ctx, instanceID)
}

func (e *engineImpl) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()

	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *engineImpl) persist(snap *api.WorkflowInstance) {
	if err := e.instances.SaveInstance(snap); err != nil {
		e.logger.Error("save instance",
			slog.String("instance_id", snap.ID),
			slog.Any("error", err),
		)
	}
}

func (e *engineImpl) record(inst *instance, typ api.EventType, detail string) {
	ev := api.WorkflowEvent{
		InstanceID:   inst.id,
		At:           e.clock.Now(),
		Type:         typ,
		WorkflowName: inst.def.Name,
		Phase:        inst.phase(),
		Detail:       detail,
	}
	if err := e.events.AppendEvent(context.Background(), ev); err != nil {
		e.logger.Error("append event",
			slog.String("instance_id", inst.id),
			slog.String("type", string(typ)),
			slog.Any("error", err),
		)
	}
}
