package persistence

import (
	"context"
	"sync"

	"github.com/petrijr/tempalert/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe InstanceStore backed by a map.
// It stores and returns copies, so callers never share snapshots.
type InMemoryStore struct {
	mu        sync.RWMutex
	instances map[string]*api.WorkflowInstance
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		instances: make(map[string]*api.WorkflowInstance),
	}
}

var _ InstanceStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveInstance(inst *api.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) UpdateInstance(inst *api.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.ID]; !ok {
		return ErrInstanceNotFound
	}

	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) GetInstance(id string) (*api.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}

	return inst.Clone(), nil
}

func (s *InMemoryStore) ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*api.WorkflowInstance, 0, len(s.instances))
	for _, inst := range s.instances {
		if filter.match(inst) {
			result = append(result, inst.Clone())
		}
	}
	sortInstances(result)

	return result, nil
}

// InMemoryEventStore keeps event history per instance in memory.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]api.WorkflowEvent
}

// NewInMemoryEventStore creates an empty InMemoryEventStore.
func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string][]api.WorkflowEvent)}
}

var _ EventStore = (*InMemoryEventStore)(nil)

func (s *InMemoryEventStore) AppendEvent(ctx context.Context, ev api.WorkflowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.InstanceID] = append(s.events[ev.InstanceID], ev)
	return nil
}

func (s *InMemoryEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[instanceID]
	out := make([]api.WorkflowEvent, len(evs))
	copy(out, evs)
	return out, nil
}
