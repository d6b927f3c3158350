package service

import (
	"context"
	"time"

	"ministore/internal/apperror"
	"ministore/internal/cache"
	"ministore/internal/domain"
)

// DashboardStats serves the cached overview when one is present and
// recomputes it otherwise. A snapshot is stored only if no mutation
// invalidated the cache while it was being computed.
func (s *Service) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.log.Warnw("dashboard cache unavailable", "error", err)
		return s.analytics.DashboardStats(ctx)
	}

	cached, ok, err := s.cache.Get(ctx, cache.DashboardKey)
	if err != nil {
		s.log.Warnw("dashboard cache read failed", "error", err)
	} else if ok {
		return cached, nil
	}

	stats, err := s.analytics.DashboardStats(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.cache.SetIfGeneration(ctx, cache.DashboardKey, gen, stats, s.cacheTTL)
	switch {
	case err != nil:
		s.log.Warnw("dashboard cache write failed", "error", err)
	case !stored:
		s.log.Debugw("dashboard changed while computing, snapshot not cached", "generation", gen)
	}
	return stats, nil
}

func (s *Service) Alerts(ctx context.Context) ([]domain.Alert, error) {
	return s.analytics.Alerts(ctx)
}

func (s *Service) LowStockItems(ctx context.Context) ([]domain.Item, error) {
	return s.analytics.LowStockItems(ctx)
}

// LowStockItemsAt reports items at or below threshold instead of their own
// low-stock thresholds. A negative threshold is rejected.
func (s *Service) LowStockItemsAt(ctx context.Context, threshold int) ([]domain.Item, error) {
	if threshold < 0 {
		return nil, apperror.NewValidation("threshold must not be negative").WithDetail("threshold", threshold)
	}
	return s.analytics.LowStockItemsAt(ctx, threshold)
}

func (s *Service) OutOfStockItems(ctx context.Context) ([]domain.Item, error) {
	return s.analytics.OutOfStockItems(ctx)
}

func (s *Service) ExpiringItems(ctx context.Context) ([]domain.ExpiringItem, error) {
	return s.analytics.ExpiringItems(ctx)
}

func (s *Service) SlowMovingItems(ctx context.Context) ([]domain.Item, error) {
	return s.analytics.SlowMovingItems(ctx)
}

func (s *Service) TopSellingItems(ctx context.Context, limit int, from, to *time.Time) ([]domain.TopSellingItem, error) {
	return s.analytics.TopSellingItems(ctx, limit, from, to)
}

func (s *Service) SalesReport(ctx context.Context, from, to time.Time) (*domain.SalesReport, error) {
	return s.analytics.SalesReport(ctx, from, to)
}

func (s *Service) IntegrityCheck(ctx context.Context) (*domain.IntegrityReport, error) {
	return s.analytics.IntegrityCheck(ctx)
}
