package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/validation"
	"ministore/internal/xid"
)

// invoiceAttempts bounds retries when a freshly minted invoice number collides.
const invoiceAttempts = 3

// CreateSale validates the sale, mints its invoice number and persists header,
// lines and stock decrements as one unit.
func (s *Service) CreateSale(ctx context.Context, in domain.SaleInput) (sale *domain.SaleWithItems, err error) {
	ctx, span := tracer.Start(ctx, "service.CreateSale")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := validation.Error(validation.ValidateSale(in)); err != nil {
		return nil, err
	}

	now := s.now()
	header := domain.Sale{
		SaleDate:      now,
		TotalAmount:   in.TotalAmount,
		PaymentMethod: in.PaymentMethod,
		CustomerName:  trimmedOrNil(in.CustomerName),
	}
	if in.SaleDate != nil {
		header.SaleDate = *in.SaleDate
	}
	lines := make([]domain.SaleItem, 0, len(in.Items))
	for _, l := range in.Items {
		lines = append(lines, domain.SaleItem{
			ItemID:     l.ItemID,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			TotalPrice: l.TotalPrice,
		})
	}
	span.SetAttributes(attribute.Int("sale.lines", len(lines)))

	for attempt := 1; ; attempt++ {
		header.InvoiceNumber = xid.InvoiceNumber(s.now())
		sale, err = s.repo.CreateSale(ctx, domain.NewSale{Sale: header, Lines: lines})
		if err == nil || !apperror.IsConflict(err) || attempt == invoiceAttempts {
			break
		}
		s.log.Warnw("invoice number collision, retrying", "invoice_number", header.InvoiceNumber, "attempt", attempt)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("sale.invoice_number", sale.InvoiceNumber))
	s.invalidateDashboard(ctx)
	return sale, nil
}

// UpdateSale changes header fields. The invoice number cannot change, and a
// new total must still reconcile with the sale's existing lines.
func (s *Service) UpdateSale(ctx context.Context, id int64, patch domain.SalePatch) (*domain.Sale, error) {
	if err := validation.Error(validation.SalePatchSchema.Validate(patch.Fields())); err != nil {
		return nil, err
	}
	if patch.TotalAmount != nil {
		current, err := s.repo.GetSaleWithItems(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(current.Items) > 0 {
			lines := make([]domain.SaleItem, 0, len(current.Items))
			for _, l := range current.Items {
				lines = append(lines, l.SaleItem)
			}
			if fe := validation.ReconcileTotal(validation.LinesTotal(lines), *patch.TotalAmount); fe != nil {
				return nil, validation.Error([]validation.FieldError{*fe})
			}
		}
	}

	sale, err := s.repo.UpdateSale(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return sale, nil
}

// DeleteSale removes the sale and its lines. Stock is not returned.
func (s *Service) DeleteSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.removeSale(ctx, id, false)
}

// VoidSale removes the sale and its lines and puts the sold quantities back
// on the items that still exist.
func (s *Service) VoidSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.removeSale(ctx, id, true)
}

func (s *Service) removeSale(ctx context.Context, id int64, restock bool) (*domain.Sale, error) {
	sale, err := s.repo.DeleteSale(ctx, id, restock)
	if err != nil {
		return nil, err
	}
	s.log.Infow("sale removed", "sale_id", sale.ID, "invoice_number", sale.InvoiceNumber, "restock", restock)
	s.invalidateDashboard(ctx)
	return sale, nil
}

func (s *Service) GetSales(ctx context.Context, q domain.SaleQuery) (domain.SalePage, error) {
	return s.repo.GetSales(ctx, q)
}

func (s *Service) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	return s.repo.GetSaleByID(ctx, id)
}

func (s *Service) GetSaleWithItems(ctx context.Context, id int64) (*domain.SaleWithItems, error) {
	return s.repo.GetSaleWithItems(ctx, id)
}
