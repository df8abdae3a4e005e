package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/redact"
	"github.com/parcelflow/parcelflow-api/internal/store"
)

// ContextKeyHumanReview is the sentinel merged into the execution
// context when a human-review step is reached.
const ContextKeyHumanReview = "human_review_required"

// ContextKeyStepName carries the current step's name inside the task
// input handed to processors.
const ContextKeyStepName = "step_name"

// TaskOrchestrator is the slice of the orchestrator the executor needs:
// submitting one task per step and polling it to completion.
type TaskOrchestrator interface {
	Submit(ctx context.Context, req TaskRequest) (uuid.UUID, error)
	GetStatus(ctx context.Context, taskID uuid.UUID) (*TaskStatusInfo, error)
}

// ExecutorConfig holds configuration for the package executor
type ExecutorConfig struct {
	// PollInterval is how often a step's task status is checked
	PollInterval time.Duration

	// StepMaxRetries is the retry budget given to each step's task
	StepMaxRetries int
}

// DefaultExecutorConfig returns an ExecutorConfig with reasonable defaults
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		PollInterval:   2 * time.Second,
		StepMaxRetries: 3,
	}
}

// Executor runs workflow packages. ExecutePackage persists a running
// execution record and returns immediately; a background goroutine then
// walks the steps strictly in declared order, turning each into a task,
// polling it to completion, and folding its output into the shared
// execution context.
type Executor struct {
	store        store.PackageStore
	orchestrator TaskOrchestrator
	config       ExecutorConfig
	logger       *slog.Logger
	ctx          context.Context
	cancelFn     context.CancelFunc
	wg           sync.WaitGroup
}

// NewExecutor creates a new package Executor.
func NewExecutor(pkgStore store.PackageStore, orchestrator TaskOrchestrator, config ExecutorConfig, logger *slog.Logger) *Executor {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Executor{
		store:        pkgStore,
		orchestrator: orchestrator,
		config:       config,
		logger:       logger.With("component", "package_executor"),
		ctx:          ctx,
		cancelFn:     cancel,
	}
}

// Stop cancels all in-flight package executions and waits for their
// goroutines to finish.
func (e *Executor) Stop() {
	e.cancelFn()
	e.wg.Wait()
}

// ExecutePackage persists a running execution record with the initial
// context snapshot and launches background execution, returning the new
// execution's ID immediately.
func (e *Executor) ExecutePackage(ctx context.Context, pkg *domain.WorkflowPackage, ownerID uuid.UUID, execCtx *Context) (uuid.UUID, error) {
	exec, err := domain.NewPackageExecution(pkg, ownerID, execCtx.Snapshot())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create execution: %w", err)
	}

	if err := e.store.SaveExecution(ctx, exec); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save execution: %w", err)
	}

	e.logger.Info("package execution started",
		"execution_id", exec.ID,
		"package_name", pkg.Name,
		"owner_id", ownerID,
		"step_count", len(pkg.Steps))

	e.wg.Add(1)
	go e.runSteps(exec, pkg, execCtx)

	return exec.ID, nil
}

// runSteps walks the package's steps in declared order. DependsOn
// metadata is intentionally not consulted; the declared order is the
// schedule. A step failure aborts every remaining step and freezes the
// execution's progress at the last completed percentage.
func (e *Executor) runSteps(exec *domain.PackageExecution, pkg *domain.WorkflowPackage, execCtx *Context) {
	defer e.wg.Done()

	ctx := e.ctx
	logger := e.logger.With("execution_id", exec.ID, "package_name", pkg.Name)

	total := len(pkg.Steps)
	completed := 0

	for i := range pkg.Steps {
		step := &pkg.Steps[i]
		stepLogger := logger.With("step_name", step.Name, "step_type", step.Type)

		record := domain.NewStepRecord(exec.ID, step, execCtx.Snapshot())
		if err := e.store.SaveStepRecord(ctx, record); err != nil {
			stepLogger.Error("failed to save step record", "error", err)
			e.failExecution(ctx, exec, fmt.Sprintf("failed to record step %q", step.Name), logger)
			return
		}

		if step.Type == domain.TaskTypeHumanReview {
			// Review steps do not block: the record stays pending, the
			// context gets flagged, and execution proceeds. The pending
			// record is the work queue for the review UI.
			record.Output = map[string]any{"note": "waiting for human review"}
			if err := e.store.UpdateStepRecord(ctx, record); err != nil {
				stepLogger.Error("failed to update review step record", "error", err)
			}
			execCtx.Set(ContextKeyHumanReview, true)
			stepLogger.Info("human review step flagged, continuing")

			e.checkpoint(ctx, exec, execCtx, completed, total, logger)
			continue
		}

		ok := e.runStep(ctx, exec, step, record, execCtx, stepLogger)
		if !ok {
			exec.Progress = progressPercent(completed, total)
			e.failExecution(ctx, exec, record.ErrorMessage, logger)
			return
		}

		completed++
		e.checkpoint(ctx, exec, execCtx, completed, total, logger)
	}

	now := time.Now().UTC()
	exec.Status = domain.ExecutionStatusCompleted
	exec.Progress = 100
	exec.Context = execCtx.Snapshot()
	exec.CompletedAt = &now

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		logger.Error("failed to update execution to completed", "error", err)
		return
	}

	logger.Info("package execution completed")
}

// runStep submits one step's task and polls it to a terminal status.
// Returns false if the step failed or timed out; the failure reason is
// left on the step record.
func (e *Executor) runStep(ctx context.Context, exec *domain.PackageExecution, step *domain.WorkflowStep, record *domain.StepRecord, execCtx *Context, logger *slog.Logger) bool {
	input := execCtx.Snapshot()
	input[ContextKeyStepName] = step.Name

	taskID, err := e.orchestrator.Submit(ctx, TaskRequest{
		Type:           step.Type,
		OwnerID:        exec.OwnerID,
		Input:          input,
		Config:         step.Config,
		MaxRetries:     e.config.StepMaxRetries,
		TimeoutSeconds: int(step.EstimatedDuration.Seconds()),
	})
	if err != nil {
		e.failStep(ctx, record, fmt.Sprintf("failed to submit task: %s", redact.Error(err)), logger)
		return false
	}

	record.Status = domain.StepStatusRunning
	if uerr := e.store.UpdateStepRecord(ctx, record); uerr != nil {
		logger.Error("failed to update step record to running", "error", uerr)
	}

	logger.Info("step task submitted", "task_id", taskID)

	// A step gets twice its estimated duration before it is declared
	// dead. The underlying task may keep retrying on its own after
	// that; the package does not wait for it.
	deadline := time.Now().Add(2 * step.EstimatedDuration)
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.failStep(ctx, record, "execution aborted during shutdown", logger)
			return false
		case <-ticker.C:
		}

		// A failed status read does not extend the step's budget; the
		// deadline check below runs on every tick regardless.
		info, err := e.orchestrator.GetStatus(ctx, taskID)
		if err != nil {
			logger.Error("failed to poll task status", "task_id", taskID, "error", err)
		} else {
			switch info.Status {
			case domain.TaskStatusCompleted:
				execCtx.MergeOutputs(info.Output)

				now := time.Now().UTC()
				record.Status = domain.StepStatusCompleted
				record.Progress = 100
				record.Output = info.Output
				record.CompletedAt = &now
				if uerr := e.store.UpdateStepRecord(ctx, record); uerr != nil {
					logger.Error("failed to update step record to completed", "error", uerr)
				}
				logger.Info("step completed", "task_id", taskID)
				return true

			case domain.TaskStatusFailed, domain.TaskStatusCancelled:
				e.failStep(ctx, record, fmt.Sprintf("task %s: %s", info.Status, info.Error), logger)
				return false

			default:
				// Still in flight; mirror the task's progress on the record
				if info.Progress != record.Progress {
					record.Progress = info.Progress
					if uerr := e.store.UpdateStepRecord(ctx, record); uerr != nil {
						logger.Error("failed to update step progress", "error", uerr)
					}
				}
			}
		}

		if time.Now().After(deadline) {
			e.failStep(ctx, record, fmt.Sprintf("%s after %s", ErrStepTimeout, 2*step.EstimatedDuration), logger)
			return false
		}
	}
}

// checkpoint persists execution progress and the current context
// snapshot after a step.
func (e *Executor) checkpoint(ctx context.Context, exec *domain.PackageExecution, execCtx *Context, completed, total int, logger *slog.Logger) {
	exec.Progress = progressPercent(completed, total)
	exec.Context = execCtx.Snapshot()

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		logger.Error("failed to checkpoint execution", "error", err)
	}
}

// failStep marks a step record failed with the given reason.
func (e *Executor) failStep(ctx context.Context, record *domain.StepRecord, reason string, logger *slog.Logger) {
	now := time.Now().UTC()
	record.Status = domain.StepStatusFailed
	record.ErrorMessage = reason
	record.CompletedAt = &now

	if err := e.store.UpdateStepRecord(ctx, record); err != nil {
		logger.Error("failed to update step record to failed", "error", err)
	}

	logger.Error("step failed", "reason", reason)
}

// failExecution marks the execution failed, keeping the already
// accumulated context for inspection. Progress stays frozen at the last
// completed percentage.
func (e *Executor) failExecution(ctx context.Context, exec *domain.PackageExecution, reason string, logger *slog.Logger) {
	now := time.Now().UTC()
	exec.Status = domain.ExecutionStatusFailed
	exec.ErrorMessage = reason
	exec.CompletedAt = &now

	if err := e.store.UpdateExecution(ctx, exec); err != nil {
		logger.Error("failed to update execution to failed", "error", err)
	}

	logger.Error("package execution failed", "reason", reason)
}

// progressPercent computes completed/total as a whole percentage.
func progressPercent(completed, total int) int {
	if total == 0 {
		return 0
	}
	return completed * 100 / total
}
