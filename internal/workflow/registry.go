package workflow

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Processor performs the real work for one task type. Processors are
// supplied by the embedding application and are opaque to the engine:
// a returned error becomes an ordinary task failure subject to the
// orchestrator's retry policy.
type Processor func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error)

// Registry maps task-type identifiers to processors. It is safe for
// concurrent use; registration normally happens once at startup.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor
}

// NewRegistry creates an empty processor registry.
func NewRegistry() *Registry {
	return &Registry{
		processors: make(map[string]Processor),
	}
}

// Register adds a processor for the given task type. Registering the
// same type twice is an error; replacing a processor at runtime is not
// supported.
func (r *Registry) Register(taskType string, p Processor) error {
	if taskType == "" {
		return NewValidationError("task_type", "task type cannot be empty", nil)
	}
	if p == nil {
		return NewValidationError("processor", "processor cannot be nil", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.processors[taskType]; exists {
		return fmt.Errorf("processor already registered for task type %q", taskType)
	}

	r.processors[taskType] = p
	return nil
}

// Get returns the processor registered for the given task type.
func (r *Registry) Get(taskType string) (Processor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.processors[taskType]
	return p, ok
}

// Has reports whether a processor is registered for the given task type.
func (r *Registry) Has(taskType string) bool {
	_, ok := r.Get(taskType)
	return ok
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.processors))
	for t := range r.processors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
