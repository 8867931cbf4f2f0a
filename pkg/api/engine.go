package api

import "context"

// Engine hosts workflow instances: it starts them, delivers their signals in
// order, answers queries against their state and records their history.
type Engine interface {
	// RegisterWorkflow registers a definition by name.
	RegisterWorkflow(def WorkflowDefinition) error

	// RegisterActivity registers an activity under name.
	RegisterActivity(name string, fn ActivityFunc) error

	// Start creates an instance and runs it on its own goroutine. It returns
	// as soon as the instance exists; use Await to wait for completion.
	Start(ctx context.Context, name string, opts StartOptions, input any) (*WorkflowInstance, error)

	// Signal queues a named signal for the instance. Signals to one instance
	// are handled one at a time in the order Signal was called. Signal does
	// not wait for the handler to run.
	Signal(ctx context.Context, id string, name string, payload any) error

	// Query runs the instance's query handler for name without mutating state.
	Query(ctx context.Context, id string, name string) (any, error)

	// GetInstance looks up a workflow instance by ID.
	// Returns ErrInstanceNotFound if the instance is not found.
	GetInstance(ctx context.Context, id string) (*WorkflowInstance, error)

	// ListInstances returns workflow instances matching the given options.
	// If options are zero-valued, all instances are returned.
	ListInstances(ctx context.Context, opts InstanceListOptions) ([]*WorkflowInstance, error)

	// Await blocks until the instance is closed or ctx is done.
	Await(ctx context.Context, id string) (*WorkflowInstance, error)

	// Shutdown cancels every running instance and waits for their goroutines
	// to exit or ctx to be done.
	Shutdown(ctx context.Context) error
}

// HistoryReader allows reading an instance's event history.
type HistoryReader interface {
	// ListEvents returns all events for an instance in chronological order.
	ListEvents(ctx context.Context, instanceID string) ([]WorkflowEvent, error)
}
