package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/api/shared"
	"github.com/parcelflow/parcelflow-api/internal/workflow"
)

// TaskService is the slice of the orchestrator the task handlers need.
type TaskService interface {
	Submit(ctx context.Context, req workflow.TaskRequest) (uuid.UUID, error)
	GetStatus(ctx context.Context, taskID uuid.UUID) (*workflow.TaskStatusInfo, error)
	Cancel(ctx context.Context, taskID uuid.UUID) error
}

// TaskTypeSource lists the task types the engine can currently process.
type TaskTypeSource interface {
	Types() []string
}

// SubmitTaskRequest represents the request body for submitting a task
type SubmitTaskRequest struct {
	Type           string         `json:"type"     validate:"required"`
	OwnerID        uuid.UUID      `json:"owner_id" validate:"required"`
	Input          map[string]any `json:"input"    validate:"required"`
	Config         map[string]any `json:"configuration,omitempty"`
	Priority       int            `json:"priority"`
	MaxRetries     *int           `json:"max_retries,omitempty"`
	TimeoutSeconds int            `json:"timeout_seconds,omitempty"`
}

// SubmitTaskResponse carries the identifier of the accepted task
type SubmitTaskResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}

// TaskTypesResponse lists the registered task types
type TaskTypesResponse struct {
	Types []string `json:"types"`
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	tasks  TaskService
	types  TaskTypeSource
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks TaskService, types TaskTypeSource, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskHandler{
		tasks:  tasks,
		types:  types,
		logger: logger.With(slog.String("component", "task_handler")),
	}
}

// SubmitTask handles POST /tasks requests. The task is accepted and
// queued; the response carries only its identifier. Processing outcomes
// are observed through GetTaskStatus.
func (h *TaskHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var req SubmitTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "missing required fields", err)
		return
	}

	maxRetries := -1 // orchestrator default
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}

	taskID, err := h.tasks.Submit(r.Context(), workflow.TaskRequest{
		Type:           req.Type,
		OwnerID:        req.OwnerID,
		Input:          req.Input,
		Config:         req.Config,
		Priority:       req.Priority,
		MaxRetries:     maxRetries,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitTaskResponse{TaskID: taskID})
}

// ListTaskTypes handles GET /tasks/types requests. Callers use it to
// discover which step types a custom package may reference.
func (h *TaskHandler) ListTaskTypes(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, TaskTypesResponse{Types: h.types.Types()})
}

// GetTaskStatus handles GET /tasks/{id} requests
func (h *TaskHandler) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task ID")
		return
	}

	info, err := h.tasks.GetStatus(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, info)
}

// CancelTask handles POST /tasks/{id}/cancel requests
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid task ID")
		return
	}

	if err := h.tasks.Cancel(r.Context(), taskID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
