package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/petrijr/tempalert/pkg/api"
)

// registry holds workflow and activity definitions by name.
type registry struct {
	mu         sync.RWMutex
	workflows  map[string]api.WorkflowDefinition
	activities map[string]api.ActivityFunc
}

func newRegistry() *registry {
	return &registry{
		workflows:  make(map[string]api.WorkflowDefinition),
		activities: make(map[string]api.ActivityFunc),
	}
}

func (r *registry) registerWorkflow(def api.WorkflowDefinition) error {
	if def.Name == "" {
		return errors.New("workflow name is required")
	}
	if def.Fn == nil {
		return fmt.Errorf("workflow %q has no function", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workflows[def.Name]; exists {
		return fmt.Errorf("workflow already registered: %s", def.Name)
	}
	r.workflows[def.Name] = def
	return nil
}

func (r *registry) registerActivity(name string, fn api.ActivityFunc) error {
	if name == "" {
		return errors.New("activity name is required")
	}
	if fn == nil {
		return fmt.Errorf("activity %q has no function", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.activities[name]; exists {
		return fmt.Errorf("activity already registered: %s", name)
	}
	r.activities[name] = fn
	return nil
}

func (r *registry) workflow(name string) (api.WorkflowDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.workflows[name]
	if !ok {
		return api.WorkflowDefinition{}, fmt.Errorf("%w: %s", api.ErrUnknownWorkflow, name)
	}
	return def, nil
}

func (r *registry) activity(name string) (api.ActivityFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.activities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", api.ErrUnknownActivity, name)
	}
	return fn, nil
}
