package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sleepRecorder replaces the orchestrator's backoff sleep with an
// instant return, recording the requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *sleepRecorder) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

func newTestOrchestrator(t *testing.T, taskStore store.TaskStore, registry *Registry) (*Orchestrator, *sleepRecorder) {
	t.Helper()

	o := NewOrchestrator(taskStore, registry, DefaultOrchestratorConfig(), testLogger())
	rec := &sleepRecorder{}
	o.SetSleepFunc(rec.sleep)
	t.Cleanup(o.Stop)
	return o, rec
}

func waitForStatus(t *testing.T, o *Orchestrator, taskID uuid.UUID, want domain.TaskStatus) *TaskStatusInfo {
	t.Helper()

	var info *TaskStatusInfo
	require.Eventually(t, func() bool {
		var err error
		info, err = o.GetStatus(context.Background(), taskID)
		return err == nil && info.Status == want
	}, 3*time.Second, 5*time.Millisecond, "task never reached status %s", want)
	return info
}

func TestOrchestratorSubmitAndComplete(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register("echo", func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		return map[string]any{"echoed": input["msg"]}, nil
	}))

	o, rec := newTestOrchestrator(t, NewMockTaskStore(), registry)

	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:    "echo",
		OwnerID: uuid.New(),
		Input:   map[string]any{"msg": "hello"},
	})
	require.NoError(t, err)

	info := waitForStatus(t, o, taskID, domain.TaskStatusCompleted)
	assert.Equal(t, 100, info.Progress)
	assert.Equal(t, 0, info.Retries)
	assert.Equal(t, map[string]any{"echoed": "hello"}, info.Output)
	assert.Empty(t, rec.recorded())
}

func TestOrchestratorRetriesWithExponentialBackoff(t *testing.T) {
	t.Parallel()

	var attempts int
	var mu sync.Mutex

	registry := NewRegistry()
	require.NoError(t, registry.Register("flaky", func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts <= 2 {
			return nil, errors.New("transient failure")
		}
		return map[string]any{"done": true}, nil
	}))

	o, rec := newTestOrchestrator(t, NewMockTaskStore(), registry)

	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:       "flaky",
		OwnerID:    uuid.New(),
		Input:      map[string]any{},
		MaxRetries: 5,
	})
	require.NoError(t, err)

	info := waitForStatus(t, o, taskID, domain.TaskStatusCompleted)
	assert.Equal(t, 2, info.Retries)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.recorded())
}

func TestOrchestratorFailsAfterExhaustingRetries(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register("broken", func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		return nil, errors.New("always fails")
	}))

	o, rec := newTestOrchestrator(t, NewMockTaskStore(), registry)

	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:       "broken",
		OwnerID:    uuid.New(),
		Input:      map[string]any{},
		MaxRetries: 2,
	})
	require.NoError(t, err)

	info := waitForStatus(t, o, taskID, domain.TaskStatusFailed)
	assert.Equal(t, 2, info.Retries)
	assert.Contains(t, info.Error, "always fails")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.recorded())
}

func TestOrchestratorMissingProcessorFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	o, rec := newTestOrchestrator(t, NewMockTaskStore(), NewRegistry())

	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:       "unregistered",
		OwnerID:    uuid.New(),
		Input:      map[string]any{},
		MaxRetries: 5,
	})
	require.NoError(t, err)

	info := waitForStatus(t, o, taskID, domain.TaskStatusFailed)
	assert.Equal(t, 0, info.Retries)
	assert.Contains(t, info.Error, "no processor registered")
	assert.Empty(t, rec.recorded(), "definition problems must not be retried")
}

func TestOrchestratorDefaultRetryBudget(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register("broken", func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		return nil, errors.New("nope")
	}))

	o, _ := newTestOrchestrator(t, NewMockTaskStore(), registry)

	// A negative budget selects the configured default of 3.
	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:       "broken",
		OwnerID:    uuid.New(),
		Input:      map[string]any{},
		MaxRetries: -1,
	})
	require.NoError(t, err)

	info := waitForStatus(t, o, taskID, domain.TaskStatusFailed)
	assert.Equal(t, 3, info.Retries)
}

func TestOrchestratorCancel(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})

	registry := NewRegistry()
	require.NoError(t, registry.Register("slow", func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		<-gate
		return nil, errors.New("attempt failed")
	}))

	o, _ := newTestOrchestrator(t, NewMockTaskStore(), registry)

	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:       "slow",
		OwnerID:    uuid.New(),
		Input:      map[string]any{},
		MaxRetries: 5,
	})
	require.NoError(t, err)

	// The task is mid-attempt; flag it and release the processor. The
	// in-flight attempt finishes, then cancellation wins over the retry.
	require.NoError(t, o.Cancel(context.Background(), taskID))
	close(gate)

	waitForStatus(t, o, taskID, domain.TaskStatusCancelled)
}

func TestOrchestratorCancelTerminalTask(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	require.NoError(t, registry.Register("instant", func(ctx context.Context, taskID uuid.UUID, input, config map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}))

	o, _ := newTestOrchestrator(t, NewMockTaskStore(), registry)

	taskID, err := o.Submit(context.Background(), TaskRequest{
		Type:    "instant",
		OwnerID: uuid.New(),
		Input:   map[string]any{},
	})
	require.NoError(t, err)

	waitForStatus(t, o, taskID, domain.TaskStatusCompleted)
	assert.ErrorIs(t, o.Cancel(context.Background(), taskID), ErrTaskTerminal)
}

func TestOrchestratorGetStatusUnknownTask(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, NewMockTaskStore(), NewRegistry())

	_, err := o.GetStatus(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
}

func TestOrchestratorBackoff(t *testing.T) {
	t.Parallel()

	o := NewOrchestrator(NewMockTaskStore(), NewRegistry(), DefaultOrchestratorConfig(), testLogger())
	t.Cleanup(o.Stop)

	tests := []struct {
		retries int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{100, 30 * time.Second},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, o.backoff(tc.retries), "retries=%d", tc.retries)
	}
}

func TestOrchestratorSubmitRejectsInvalidTask(t *testing.T) {
	t.Parallel()

	o, _ := newTestOrchestrator(t, NewMockTaskStore(), NewRegistry())

	_, err := o.Submit(context.Background(), TaskRequest{
		Type:    "",
		OwnerID: uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrEmptyTaskType)
}
