package workflow

import (
	"fmt"
	"sync"
)

// Context is the accumulating key-value state threaded through a
// package's steps. Each completed step's output is merged in, and the
// whole container is snapshotted onto the execution record after every
// step.
//
// The merge policy deliberately accumulates instead of overwriting:
// when two steps produce the same key, the values are collected into a
// list in production order. Downstream steps and reviewers see every
// version, not just the last writer.
type Context struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewContext creates a Context seeded with the given initial values.
// The map is copied; the caller keeps ownership of its argument.
func NewContext(initial map[string]any) *Context {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Context{values: values}
}

// Get returns the value stored under key and whether it was present.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[key]
	return v, ok
}

// Set stores a value directly, replacing any existing value. Used for
// sentinel flags; step outputs go through MergeOutputs.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[key] = value
}

// Require returns the value stored under key. If the key is absent and
// a fallback is given, the fallback is returned; absent with no
// fallback is an error.
func (c *Context) Require(key string, fallback ...any) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if v, ok := c.values[key]; ok {
		return v, nil
	}

	if len(fallback) > 0 {
		return fallback[0], nil
	}

	return nil, fmt.Errorf("%w: %q", ErrMissingContextKey, key)
}

// MergeOutputs folds a step's output into the context. For each key:
// absent keys are set directly; keys holding a list get the new value
// appended; keys holding anything else are converted to a two-element
// list of [existing, new].
func (c *Context) MergeOutputs(outputs map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range outputs {
		existing, ok := c.values[key]
		if !ok {
			c.values[key] = value
			continue
		}

		if list, isList := existing.([]any); isList {
			c.values[key] = append(list, value)
			continue
		}

		c.values[key] = []any{existing, value}
	}
}

// Snapshot returns a copy of the current values suitable for
// persistence. Nested values are shared, not deep-copied; steps treat
// their outputs as immutable once merged.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]any, len(c.values))
	for k, v := range c.values {
		snapshot[k] = v
	}
	return snapshot
}
