package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parcelflow/parcelflow-api/internal/domain"
	"github.com/parcelflow/parcelflow-api/internal/store"
)

// ContextKeyReviewApproved records a resolved review decision on the
// execution context.
const ContextKeyReviewApproved = "review_approved"

// ReviewService resolves pending human-review step records. Review
// steps do not block execution: the executor flags them and moves on,
// leaving a pending record as the reviewer's work queue. Resolving one
// closes the record and writes the decision back onto the execution,
// atomically.
type ReviewService struct {
	db     *sql.DB
	store  store.PackageStore
	logger *slog.Logger
	runTx  func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewReviewService creates a new ReviewService.
func NewReviewService(db *sql.DB, pkgStore store.PackageStore, logger *slog.Logger) *ReviewService {
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewService{
		db:     db,
		store:  pkgStore,
		logger: logger.With("component", "review_service"),
		runTx:  store.RunInTransaction,
	}
}

// SetTxRunner replaces the transaction wrapper. Tests use this to run
// review resolutions against in-memory stores.
func (s *ReviewService) SetTxRunner(fn func(ctx context.Context, db *sql.DB, fn store.TxFn) error) {
	s.runTx = fn
}

// ResolveReview closes a pending human-review step record with the
// given decision and merges the decision into the execution's stored
// context. Both writes happen in one transaction.
//
// If the execution is still running, a later checkpoint can overwrite
// the decision on the execution row; the step record remains the
// authoritative copy.
func (s *ReviewService) ResolveReview(ctx context.Context, executionID, stepRecordID uuid.UUID, approved bool, notes string) error {
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		st := s.store.WithTx(tx)

		records, err := st.ListStepRecords(ctx, executionID)
		if err != nil {
			return fmt.Errorf("failed to list step records: %w", err)
		}

		var record *domain.StepRecord
		for _, r := range records {
			if r.ID == stepRecordID {
				record = r
				break
			}
		}
		if record == nil {
			return store.ErrStepRecordNotFound
		}

		if record.Type != domain.TaskTypeHumanReview {
			return fmt.Errorf("%w: step %q is not a review step", ErrStepNotReviewable, record.Name)
		}
		if record.Status != domain.StepStatusPending {
			return fmt.Errorf("%w: step %q already resolved", ErrStepNotReviewable, record.Name)
		}

		exec, err := st.GetExecution(ctx, executionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if approved {
			record.Status = domain.StepStatusCompleted
		} else {
			record.Status = domain.StepStatusFailed
			record.ErrorMessage = "rejected by reviewer"
		}
		record.Progress = 100
		record.Output = map[string]any{
			ContextKeyReviewApproved: approved,
			"review_notes":           notes,
		}
		record.CompletedAt = &now

		if err := st.UpdateStepRecord(ctx, record); err != nil {
			return fmt.Errorf("failed to update review step record: %w", err)
		}

		if exec.Context == nil {
			exec.Context = make(map[string]any)
		}
		exec.Context[ContextKeyReviewApproved] = approved

		if err := st.UpdateExecution(ctx, exec); err != nil {
			return fmt.Errorf("failed to record review decision on execution: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("review resolved",
		"execution_id", executionID,
		"step_record_id", stepRecordID,
		"approved", approved)
	return nil
}
