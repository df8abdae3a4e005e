package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/api/shared"
)

// ReviewService is the slice of the review service the handler needs.
type ReviewService interface {
	ResolveReview(ctx context.Context, executionID, stepRecordID uuid.UUID, approved bool, notes string) error
}

// ResolveReviewRequest represents the request body for resolving a
// pending human-review step
type ResolveReviewRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Notes    string `json:"notes"`
}

// ReviewHandler handles human-review resolution requests
type ReviewHandler struct {
	reviews ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(reviews ReviewService, logger *slog.Logger) *ReviewHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewHandler{
		reviews: reviews,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// ResolveReview handles POST /executions/{id}/steps/{step_id}/review requests
func (h *ReviewHandler) ResolveReview(w http.ResponseWriter, r *http.Request) {
	executionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid execution ID")
		return
	}

	stepRecordID, err := uuid.Parse(chi.URLParam(r, "step_id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid step record ID")
		return
	}

	var req ResolveReviewRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "missing required fields", err)
		return
	}

	if err := h.reviews.ResolveReview(r.Context(), executionID, stepRecordID, *req.Approved, req.Notes); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
