package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReviewService struct {
	resolveFn func(ctx context.Context, executionID, stepRecordID uuid.UUID, approved bool, notes string) error
}

func (s *stubReviewService) ResolveReview(ctx context.Context, executionID, stepRecordID uuid.UUID, approved bool, notes string) error {
	return s.resolveFn(ctx, executionID, stepRecordID, approved, notes)
}

func reviewRouter(svc ReviewService) http.Handler {
	h := NewReviewHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Post("/executions/{id}/steps/{step_id}/review", h.ResolveReview)
	return r
}

func TestResolveReviewEndpoint(t *testing.T) {
	t.Parallel()

	path := func() string {
		return "/executions/" + uuid.NewString() + "/steps/" + uuid.NewString() + "/review"
	}

	t.Run("resolves with decision and notes", func(t *testing.T) {
		t.Parallel()

		var gotApproved bool
		var gotNotes string
		svc := &stubReviewService{
			resolveFn: func(ctx context.Context, executionID, stepRecordID uuid.UUID, approved bool, notes string) error {
				gotApproved = approved
				gotNotes = notes
				return nil
			},
		}

		body := []byte(`{"approved": true, "notes": "ship it"}`)
		req := httptest.NewRequest(http.MethodPost, path(), bytes.NewReader(body))
		rec := httptest.NewRecorder()
		reviewRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, gotApproved)
		assert.Equal(t, "ship it", gotNotes)
	})

	t.Run("missing decision maps to 400", func(t *testing.T) {
		t.Parallel()

		svc := &stubReviewService{}
		req := httptest.NewRequest(http.MethodPost, path(), bytes.NewReader([]byte(`{"notes": "?"}`)))
		rec := httptest.NewRecorder()
		reviewRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("already resolved maps to 409", func(t *testing.T) {
		t.Parallel()

		svc := &stubReviewService{
			resolveFn: func(ctx context.Context, executionID, stepRecordID uuid.UUID, approved bool, notes string) error {
				return workflow.ErrStepNotReviewable
			},
		}

		req := httptest.NewRequest(http.MethodPost, path(), bytes.NewReader([]byte(`{"approved": false}`)))
		rec := httptest.NewRecorder()
		reviewRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid execution id maps to 400", func(t *testing.T) {
		t.Parallel()

		svc := &stubReviewService{}
		req := httptest.NewRequest(http.MethodPost, "/executions/bogus/steps/"+uuid.NewString()+"/review", bytes.NewReader([]byte(`{"approved": true}`)))
		rec := httptest.NewRecorder()
		reviewRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
