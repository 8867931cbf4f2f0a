package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/petrijr/tempalert/pkg/api"
)

type queryRequest struct {
	name  string
	reply chan queryResult
}

type queryResult struct {
	value any
	err   error
}

// instance is the live state of one workflow run.
type instance struct {
	id   string
	def  api.WorkflowDefinition
	eng  *engineImpl
	done chan struct{}

	mailbox *mailbox
	queries chan queryRequest

	mu   sync.Mutex
	snap *api.WorkflowInstance

	// The handler maps are owned by the instance goroutine until done is
	// closed. Afterwards queries read them under closedMu.
	closedMu       sync.Mutex
	signalHandlers map[string]api.SignalHandler
	queryHandlers  map[string]api.QueryHandler
}

func newInstance(e *engineImpl, def api.WorkflowDefinition, snap *api.WorkflowInstance) *instance {
	return &instance{
		id:             snap.ID,
		def:            def,
		eng:            e,
		done:           make(chan struct{}),
		mailbox:        newMailbox(),
		queries:        make(chan queryRequest),
		snap:           snap,
		signalHandlers: make(map[string]api.SignalHandler),
		queryHandlers:  make(map[string]api.QueryHandler),
	}
}

func (i *instance) closed() bool {
	select {
	case <-i.done:
		return true
	default:
		return false
	}
}

func (i *instance) snapshot() *api.WorkflowInstance {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snap.Clone()
}

func (i *instance) phase() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snap.Phase
}

// update applies fn to the snapshot and reports whether anything changed.
func (i *instance) update(fn func(s *api.WorkflowInstance) bool) (*api.WorkflowInstance, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !fn(i.snap) {
		return nil, false
	}
	return i.snap.Clone(), true
}

func (i *instance) finish(out any, err error, at time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.snap.ClosedAt = at
	if err != nil {
		i.snap.Status = api.StatusFailed
		i.snap.Err = err
		return
	}
	i.snap.Status = api.StatusCompleted
	i.snap.Output = out
}

// answer runs a query handler. Handlers must not mutate state.
func (i *instance) answer(name string) (value any, err error) {
	h, ok := i.queryHandlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownQuery, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = &api.PanicError{Value: r}
		}
	}()
	return h()
}

// queryClosed answers a query against the final state of a closed instance.
func (i *instance) queryClosed(name string) (any, error) {
	i.closedMu.Lock()
	defer i.closedMu.Unlock()
	return i.answer(name)
}
