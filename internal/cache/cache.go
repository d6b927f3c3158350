// Package cache stores computed dashboard snapshots between mutations.
package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"ministore/internal/domain"
)

// DashboardKey is the single key the service caches dashboard stats under.
const DashboardKey = "ministore:dashboard"

// DashboardCache holds dashboard snapshots guarded by a generation counter.
// A writer reads Generation before computing and stores with
// SetIfGeneration, so a snapshot computed before an Invalidate is never
// stored after it.
type DashboardCache interface {
	Get(ctx context.Context, key string) (*domain.DashboardStats, bool, error)
	Generation(ctx context.Context) (uint64, error)
	// SetIfGeneration stores value only while the counter still reads gen and
	// reports whether it did.
	SetIfGeneration(ctx context.Context, key string, gen uint64, value *domain.DashboardStats, ttl time.Duration) (bool, error)
	// Invalidate advances the generation and drops keys.
	Invalidate(ctx context.Context, keys ...string) error
}

type NoopDashboardCache struct{}

func (NoopDashboardCache) Get(_ context.Context, _ string) (*domain.DashboardStats, bool, error) {
	return nil, false, nil
}

func (NoopDashboardCache) Generation(_ context.Context) (uint64, error) {
	return 0, nil
}

func (NoopDashboardCache) SetIfGeneration(_ context.Context, _ string, _ uint64, _ *domain.DashboardStats, _ time.Duration) (bool, error) {
	return false, nil
}

func (NoopDashboardCache) Invalidate(_ context.Context, _ ...string) error {
	return nil
}

type memoryEntry struct {
	value     *domain.DashboardStats
	expiresAt time.Time
}

// MemoryDashboardCache keeps entries in process. It serves single-process
// deployments without Redis.
type MemoryDashboardCache struct {
	mu      sync.Mutex
	now     func() time.Time
	gen     uint64
	entries map[string]memoryEntry
}

func NewMemoryDashboardCache() *MemoryDashboardCache {
	return &MemoryDashboardCache{now: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *MemoryDashboardCache) Get(_ context.Context, key string) (*domain.DashboardStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return cloneStats(entry.value), true, nil
}

func (c *MemoryDashboardCache) Generation(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *MemoryDashboardCache) SetIfGeneration(_ context.Context, key string, gen uint64, value *domain.DashboardStats, ttl time.Duration) (bool, error) {
	if value == nil {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false, nil
	}
	entry := memoryEntry{value: cloneStats(value)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return true, nil
}

func (c *MemoryDashboardCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

// cloneStats copies the snapshot down to its slices and customer names, so
// neither the caller nor the cache can see the other's edits.
func cloneStats(s *domain.DashboardStats) *domain.DashboardStats {
	out := *s
	out.TopSellingItems = slices.Clone(s.TopSellingItems)
	out.SalesByCategory = slices.Clone(s.SalesByCategory)
	out.RecentSales = slices.Clone(s.RecentSales)
	for i, sale := range out.RecentSales {
		if sale.CustomerName != nil {
			name := *sale.CustomerName
			out.RecentSales[i].CustomerName = &name
		}
	}
	return &out
}
