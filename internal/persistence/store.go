package persistence

import (
	"context"
	"sort"

	"github.com/petrijr/tempalert/pkg/api"
)

// ErrInstanceNotFound is returned when a workflow instance is not found.
// It is the same value as api.ErrInstanceNotFound so callers can match either.
var ErrInstanceNotFound = api.ErrInstanceNotFound

// InstanceFilter is used to select instances from the store.
// Empty string / zero status mean "no filter" for that field.
type InstanceFilter struct {
	WorkflowName string
	Status       api.Status
}

func (f InstanceFilter) match(inst *api.WorkflowInstance) bool {
	if f.WorkflowName != "" && inst.Name != f.WorkflowName {
		return false
	}
	if f.Status != "" && inst.Status != f.Status {
		return false
	}
	return true
}

// InstanceStore handles storage of workflow instance snapshots.
type InstanceStore interface {
	// SaveInstance inserts or replaces the snapshot with the instance's ID.
	SaveInstance(inst *api.WorkflowInstance) error
	// UpdateInstance replaces an existing snapshot and returns
	// ErrInstanceNotFound if there is none.
	UpdateInstance(inst *api.WorkflowInstance) error
	GetInstance(id string) (*api.WorkflowInstance, error)
	// ListInstances returns matching snapshots ordered by start time, then ID.
	ListInstances(filter InstanceFilter) ([]*api.WorkflowInstance, error)
}

// EventStore is an append-only history store for workflow execution events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.WorkflowEvent) error
	ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error)
}

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.WorkflowEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, instanceID string) ([]api.WorkflowEvent, error) {
	return nil, nil
}

func sortInstances(list []*api.WorkflowInstance) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.Before(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
}
