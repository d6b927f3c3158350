package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/store"
	"ministore/internal/validation"
)

// UpdateStock applies one adjustment. Subtracting more than is on hand
// leaves zero; it is not an error.
func (s *Service) UpdateStock(ctx context.Context, itemID int64, quantity int, op domain.StockOperation) (*domain.Item, error) {
	if err := validation.Error(checkStockUpdate("", domain.StockUpdate{ItemID: itemID, Quantity: quantity, Operation: op})); err != nil {
		return nil, err
	}
	item, err := s.repo.AdjustStock(ctx, itemID, quantity, op)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return item, nil
}

// BulkUpdateStock validates every entry, then applies them in order and stops
// at the first failure. Entries applied before the failure stay applied; the
// result lists them and the returned PARTIAL_FAILURE error wraps the cause.
func (s *Service) BulkUpdateStock(ctx context.Context, updates []domain.StockUpdate) (*domain.BulkStockResult, error) {
	var errs []validation.FieldError
	if len(updates) == 0 {
		errs = append(errs, validation.FieldError{Field: "updates", Code: validation.CodeTooFewItems, Message: "at least one stock update is required"})
	}
	for i, u := range updates {
		errs = append(errs, checkStockUpdate(fmt.Sprintf("updates[%d].", i), u)...)
	}
	if err := validation.Error(errs); err != nil {
		return nil, err
	}

	result := &domain.BulkStockResult{
		BatchID: uuid.NewString(),
		Applied: make([]domain.Item, 0, len(updates)),
	}
	log := s.log.With("batch_id", result.BatchID)

	for i, u := range updates {
		item, err := s.repo.AdjustStock(ctx, u.ItemID, u.Quantity, u.Operation)
		if err != nil {
			result.Failed = &domain.BulkStockFailure{
				Index:   i,
				Update:  u,
				Code:    apperror.CodeOf(err),
				Message: err.Error(),
			}
			log.Warnw("bulk stock update stopped", "index", i, "item_id", u.ItemID, "applied", len(result.Applied), "error", err)
			if len(result.Applied) > 0 {
				s.invalidateDashboard(ctx)
			}
			msg := fmt.Sprintf("stock update %d of %d failed after %d applied", i+1, len(updates), len(result.Applied))
			return result, apperror.NewPartialFailure(msg, err).
				WithDetail("batch_id", result.BatchID).
				WithDetail("index", i)
		}
		result.Applied = append(result.Applied, *item)
	}

	result.Success = true
	log.Debugw("bulk stock update applied", "count", len(result.Applied))
	s.invalidateDashboard(ctx)
	return result, nil
}

func checkStockUpdate(prefix string, u domain.StockUpdate) []validation.FieldError {
	var errs []validation.FieldError
	if u.ItemID < 1 {
		errs = append(errs, validation.FieldError{Field: prefix + "itemId", Code: validation.CodeTooSmall, Message: "itemId must be a positive integer", Value: u.ItemID})
	}
	if u.Quantity < 0 {
		errs = append(errs, validation.FieldError{Field: prefix + "quantity", Code: validation.CodeTooSmall, Message: "quantity must not be negative", Value: u.Quantity})
	}
	if u.Quantity > domain.MaxStockQuantity {
		errs = append(errs, validation.FieldError{Field: prefix + "quantity", Code: validation.CodeTooLarge, Message: fmt.Sprintf("quantity must be at most %d", domain.MaxStockQuantity), Value: u.Quantity})
	}
	if err := store.CheckStockAdjustment(0, u.Operation); err != nil {
		errs = append(errs, validation.FieldError{Field: prefix + "operation", Code: validation.CodeInvalidEnum, Message: "operation must be one of set, add, subtract", Value: u.Operation})
	}
	return errs
}
