package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/api/shared"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/workflow"
)

// PackageService is the slice of the package manager the handlers need.
type PackageService interface {
	GetAvailablePackages(ctx context.Context, category string, ownerID uuid.UUID) ([]*workflow.PackageSummary, error)
	LoadPackage(ctx context.Context, id uuid.UUID) (*domain.WorkflowPackage, error)
	ExecutePackage(ctx context.Context, id, ownerID uuid.UUID, initial map[string]any) (uuid.UUID, error)
	GetExecutionStatus(ctx context.Context, executionID uuid.UUID) (*workflow.ExecutionStatusTree, error)
	CreateCustomPackage(ctx context.Context, ownerID, organizationID uuid.UUID, name, description, category string, specs []workflow.StepSpec) (uuid.UUID, error)
}

// ExecutePackageRequest represents the request body for triggering a package run
type ExecutePackageRequest struct {
	OwnerID uuid.UUID      `json:"owner_id" validate:"required"`
	Context map[string]any `json:"context"`
}

// ExecutePackageResponse carries the identifier of the started execution
type ExecutePackageResponse struct {
	ExecutionID uuid.UUID `json:"execution_id"`
}

// CreatePackageRequest represents the request body for creating a custom package
type CreatePackageRequest struct {
	OwnerID        uuid.UUID           `json:"owner_id"        validate:"required"`
	OrganizationID uuid.UUID           `json:"organization_id" validate:"required"`
	Name           string              `json:"name"            validate:"required"`
	Description    string              `json:"description"`
	Category       string              `json:"category"        validate:"required"`
	Steps          []workflow.StepSpec `json:"steps"           validate:"required,min=1"`
}

// CreatePackageResponse carries the identifier of the created package
type CreatePackageResponse struct {
	PackageID uuid.UUID `json:"package_id"`
}

// PackageHandler handles workflow-package HTTP requests
type PackageHandler struct {
	packages PackageService
	logger   *slog.Logger
}

// NewPackageHandler creates a new PackageHandler
func NewPackageHandler(packages PackageService, logger *slog.Logger) *PackageHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &PackageHandler{
		packages: packages,
		logger:   logger.With(slog.String("component", "package_handler")),
	}
}

// ListPackages handles GET /packages requests. Category and owner
// filters come from query parameters.
func (h *PackageHandler) ListPackages(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	var ownerID uuid.UUID
	if raw := r.URL.Query().Get("owner_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "invalid owner ID")
			return
		}
		ownerID = parsed
	}

	summaries, err := h.packages.GetAvailablePackages(r.Context(), category, ownerID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, summaries)
}

// GetPackage handles GET /packages/{id} requests
func (h *PackageHandler) GetPackage(w http.ResponseWriter, r *http.Request) {
	packageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid package ID")
		return
	}

	pkg, err := h.packages.LoadPackage(r.Context(), packageID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, pkg)
}

// GetPredefinedPackages handles GET /packages/predefined requests
func (h *PackageHandler) GetPredefinedPackages(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, workflow.PredefinedPackages())
}

// ExecutePackage handles POST /packages/{id}/execute requests. The run
// is accepted and started in the background; the response carries only
// the execution identifier.
func (h *PackageHandler) ExecutePackage(w http.ResponseWriter, r *http.Request) {
	packageID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid package ID")
		return
	}

	var req ExecutePackageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "missing required fields", err)
		return
	}

	executionID, err := h.packages.ExecutePackage(r.Context(), packageID, req.OwnerID, req.Context)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, ExecutePackageResponse{ExecutionID: executionID})
}

// GetExecutionStatus handles GET /executions/{id} requests
func (h *PackageHandler) GetExecutionStatus(w http.ResponseWriter, r *http.Request) {
	executionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid execution ID")
		return
	}

	tree, err := h.packages.GetExecutionStatus(r.Context(), executionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tree)
}

// CreatePackage handles POST /packages requests
func (h *PackageHandler) CreatePackage(w http.ResponseWriter, r *http.Request) {
	var req CreatePackageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "missing required fields", err)
		return
	}

	packageID, err := h.packages.CreateCustomPackage(
		r.Context(),
		req.OwnerID,
		req.OrganizationID,
		req.Name,
		req.Description,
		req.Category,
		req.Steps,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, CreatePackageResponse{PackageID: packageID})
}
