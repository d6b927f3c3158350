// Package service is the ledger engine's surface. It validates inputs, mints
// invoice numbers, delegates persistence to a store.Repository and keeps the
// cached dashboard in step with every mutation.
package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"ministore/internal/analytics"
	"ministore/internal/cache"
	"ministore/internal/domain"
	"ministore/internal/logger"
	"ministore/internal/store"
)

var tracer = otel.Tracer("ministore/service")

const DefaultDashboardTTL = 5 * time.Minute

type Service struct {
	repo      store.Repository
	analytics *analytics.Engine
	cache     cache.DashboardCache
	cacheTTL  time.Duration
	log       *logger.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithDashboardCache stores dashboard stats in c for ttl. A zero ttl keeps
// entries until the next mutation.
func WithDashboardCache(c cache.DashboardCache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
		s.cacheTTL = ttl
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a service over repo. When engine is nil an analytics engine is
// created over repo in the local time zone.
func New(repo store.Repository, engine *analytics.Engine, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		cache:    cache.NoopDashboardCache{},
		cacheTTL: DefaultDashboardTTL,
		log:      logger.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if engine == nil {
		engine = analytics.New(repo, analytics.WithClock(s.now))
	}
	s.analytics = engine
	s.log = s.log.WithComponent("service")
	return s
}

func (s *Service) Analytics() *analytics.Engine {
	return s.analytics
}

func (s *Service) Initialize(ctx context.Context) error {
	return s.repo.Initialize(ctx)
}

// Cleanup empties the backend and resets its id sequences.
func (s *Service) Cleanup(ctx context.Context) error {
	defer s.invalidateDashboard(ctx)
	return s.repo.Cleanup(ctx)
}

func (s *Service) HealthCheck(ctx context.Context) domain.HealthStatus {
	return s.repo.HealthCheck(ctx)
}

// SeedDemoData loads the demo catalog, skipping entries that already exist.
func (s *Service) SeedDemoData(ctx context.Context) error {
	defer s.invalidateDashboard(ctx)
	if err := store.Seed(ctx, s.repo); err != nil {
		return err
	}
	s.log.Infow("demo catalog seeded", "items", len(store.DemoItems()), "categories", len(store.DemoCategories))
	return nil
}

// invalidateDashboard drops the cached dashboard and advances its generation.
// Cache failures never fail the mutation that triggered them.
func (s *Service) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.DashboardKey); err != nil {
		s.log.Warnw("dashboard cache invalidation failed", "error", err)
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
