package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/redact"
	"github.com/parcelflow/parcelflow-api/internal/store"
)

// OrchestratorConfig holds configuration for the task orchestrator
type OrchestratorConfig struct {
	// DefaultMaxRetries is applied when a task request carries a
	// negative retry budget
	DefaultMaxRetries int

	// BackoffCap bounds the exponential retry backoff
	BackoffCap time.Duration
}

// DefaultOrchestratorConfig returns an OrchestratorConfig with reasonable defaults
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		DefaultMaxRetries: 3,
		BackoffCap:        30 * time.Second,
	}
}

// TaskRequest describes a task to submit. MaxRetries < 0 selects the
// orchestrator's default budget; 0 means no retries at all.
type TaskRequest struct {
	Type           string
	OwnerID        uuid.UUID
	Input          map[string]any
	Config         map[string]any
	Priority       int
	MaxRetries     int
	TimeoutSeconds int
}

// TaskStatusInfo is the caller-visible view of a task's state.
type TaskStatusInfo struct {
	Status   domain.TaskStatus `json:"status"`
	Progress int               `json:"progress"`
	Retries  int               `json:"retries"`
	Output   map[string]any    `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Orchestrator owns the task lifecycle. Submit persists a queued record
// and returns immediately; a dedicated goroutine then drives the task
// through processing, retry backoff, and its terminal state. One
// orchestrator instance is constructed per process, owning its store
// handle and registry.
type Orchestrator struct {
	store     store.TaskStore
	registry  *Registry
	config    OrchestratorConfig
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	ctx       context.Context
	cancelFn  context.CancelFunc
	wg        sync.WaitGroup
	cancelled sync.Map // task ID -> struct{}
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(taskStore store.TaskStore, registry *Registry, config OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if config.BackoffCap <= 0 {
		config.BackoffCap = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		store:    taskStore,
		registry: registry,
		config:   config,
		logger:   logger.With("component", "orchestrator"),
		sleep:    sleepContext,
		ctx:      ctx,
		cancelFn: cancel,
	}
}

// SetSleepFunc replaces the backoff sleep. Tests use this to observe
// retry delays without waiting for them.
func (o *Orchestrator) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	o.sleep = fn
}

// Stop cancels all in-flight task goroutines and waits for them to
// finish their current store writes.
func (o *Orchestrator) Stop() {
	o.cancelFn()
	o.wg.Wait()
}

// Submit persists a queued task record and launches background
// processing for it. The call returns the new task's ID immediately;
// processing failures are only observable through GetStatus.
func (o *Orchestrator) Submit(ctx context.Context, req TaskRequest) (uuid.UUID, error) {
	maxRetries := req.MaxRetries
	if maxRetries < 0 {
		maxRetries = o.config.DefaultMaxRetries
	}

	task, err := domain.NewTask(req.Type, req.OwnerID, req.Input, req.Priority, maxRetries, req.TimeoutSeconds)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create task: %w", err)
	}
	task.Config = req.Config

	if err := o.store.Save(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save task: %w", err)
	}

	o.logger.Info("task submitted",
		"task_id", task.ID,
		"task_type", task.Type,
		"owner_id", task.OwnerID,
		"max_retries", task.MaxRetries)

	o.wg.Add(1)
	go o.run(task)

	return task.ID, nil
}

// GetStatus returns the caller-visible state of a task.
// Returns store.ErrTaskNotFound if no such task exists.
func (o *Orchestrator) GetStatus(ctx context.Context, taskID uuid.UUID) (*TaskStatusInfo, error) {
	task, err := o.store.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &TaskStatusInfo{
		Status:   task.Status,
		Progress: task.Progress,
		Retries:  task.Retries,
		Output:   task.Output,
		Error:    task.ErrorMessage,
	}, nil
}

// Cancel flags a task for cancellation. The flag is honored before
// processing starts and before each retry re-entry; a task already in
// the middle of its processor call finishes that attempt first.
// Returns ErrTaskTerminal if the task has already finished.
func (o *Orchestrator) Cancel(ctx context.Context, taskID uuid.UUID) error {
	task, err := o.store.GetByID(ctx, taskID)
	if err != nil {
		return err
	}

	if task.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTaskTerminal, task.Status)
	}

	o.cancelled.Store(taskID, struct{}{})
	o.logger.Info("task flagged for cancellation", "task_id", taskID)
	return nil
}

// run drives one task to a terminal state. Retries are modeled as a
// delayed re-entry of the processing loop rather than recursion, so a
// long retry chain never grows the stack.
func (o *Orchestrator) run(task *domain.Task) {
	defer o.wg.Done()

	ctx := o.ctx
	logger := o.logger.With("task_id", task.ID, "task_type", task.Type)

	for {
		if o.takeCancellation(task.ID) {
			o.markCancelled(ctx, task, logger)
			return
		}

		err := o.process(ctx, task, logger)
		if err == nil {
			return
		}

		// Missing processors are a definition problem, not a transient
		// failure; retrying cannot fix them.
		if errors.Is(err, ErrNoProcessor) {
			o.fail(ctx, task, err, logger)
			return
		}

		if task.Retries >= task.MaxRetries {
			o.fail(ctx, task, err, logger)
			return
		}

		task.Retries++
		task.Status = domain.TaskStatusRetrying
		if uerr := o.store.Update(ctx, task); uerr != nil {
			logger.Error("failed to update task status to retrying", "error", uerr)
		}

		delay := o.backoff(task.Retries)
		logger.Info("task failed, scheduling retry",
			"error", err,
			"retries", task.Retries,
			"max_retries", task.MaxRetries,
			"delay", delay)

		if serr := o.sleep(ctx, delay); serr != nil {
			// Shutdown during backoff: the task stays in retrying state
			// for operator inspection.
			logger.Warn("retry backoff interrupted", "error", serr)
			return
		}
	}
}

// process runs one attempt: transition to processing, invoke the
// registered processor, and on success record the output.
func (o *Orchestrator) process(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	task.Status = domain.TaskStatusProcessing
	if task.StartedAt == nil {
		now := time.Now().UTC()
		task.StartedAt = &now
	}
	if err := o.store.Update(ctx, task); err != nil {
		return fmt.Errorf("failed to update task status to processing: %w", err)
	}

	logger.Info("processing task", "attempt", task.Retries+1)

	processor, ok := o.registry.Get(task.Type)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoProcessor, task.Type)
	}

	output, err := processor(ctx, task.ID, task.Input, task.Config)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	task.Status = domain.TaskStatusCompleted
	task.Progress = 100
	task.Output = output
	task.ErrorMessage = ""
	task.CompletedAt = &now

	if err := o.store.Update(ctx, task); err != nil {
		// The work itself succeeded; don't re-run the processor over a
		// failed status write.
		logger.Error("failed to update task status to completed", "error", err)
		return nil
	}

	logger.Info("task completed successfully")
	return nil
}

// fail moves a task into its terminal failed state.
func (o *Orchestrator) fail(ctx context.Context, task *domain.Task, taskErr error, logger *slog.Logger) {
	now := time.Now().UTC()
	task.Status = domain.TaskStatusFailed
	task.ErrorMessage = redact.Error(taskErr)
	task.CompletedAt = &now

	if err := o.store.Update(ctx, task); err != nil {
		logger.Error("failed to update task status to failed", "error", err)
	}

	logger.Error("task failed permanently",
		"error", taskErr,
		"retries", task.Retries,
		"max_retries", task.MaxRetries)
}

// markCancelled moves a task into its terminal cancelled state.
func (o *Orchestrator) markCancelled(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	now := time.Now().UTC()
	task.Status = domain.TaskStatusCancelled
	task.CompletedAt = &now

	if err := o.store.Update(ctx, task); err != nil {
		logger.Error("failed to update task status to cancelled", "error", err)
	}

	logger.Info("task cancelled")
}

// takeCancellation consumes a pending cancellation flag for the task.
func (o *Orchestrator) takeCancellation(taskID uuid.UUID) bool {
	_, ok := o.cancelled.LoadAndDelete(taskID)
	return ok
}

// backoff computes the delay before the n-th retry: min(2^n, cap).
func (o *Orchestrator) backoff(retries int) time.Duration {
	// 2^20s already dwarfs any sane cap; avoid shift overflow beyond it
	if retries > 20 {
		return o.config.BackoffCap
	}

	delay := time.Duration(1<<uint(retries)) * time.Second
	if delay > o.config.BackoffCap {
		delay = o.config.BackoffCap
	}
	return delay
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
