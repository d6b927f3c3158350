// Package filestore is the embedded backend: the in-memory store plus a JSON
// snapshot file rewritten after every successful mutation. A path ending in
// ".gz" is gzip compressed and ".zst" is zstd compressed.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"ministore/internal/apperror"
	"ministore/internal/domain"
	"ministore/internal/logger"
	"ministore/internal/store"
	"ministore/internal/store/memory"
)

const formatVersion = 1

type fileFormat struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	memory.Snapshot
}

// Store serializes mutations so each one is followed by exactly one file
// write. When the write fails the in-memory state is rolled back and the
// caller sees an internal error.
type Store struct {
	*memory.Store

	path string
	log  *logger.Logger

	mu        sync.Mutex
	lastSaved time.Time
	lastErr   error
}

var _ store.Repository = (*Store)(nil)

func New(path string, log *logger.Logger, opts ...memory.Option) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		Store: memory.New(opts...),
		path:  path,
		log:   log.WithComponent("filestore"),
	}
}

func (s *Store) Path() string {
	return s.path
}

// Initialize creates the data directory and loads the snapshot if one exists.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return apperror.NewInternal(fmt.Errorf("create data directory: %w", err))
	}

	snap, err := s.load()
	if errors.Is(err, os.ErrNotExist) {
		s.log.Infow("no snapshot found, starting empty", "path", s.path)
		return nil
	}
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("load snapshot %s: %w", s.path, err))
	}
	s.Store.Restore(snap)
	s.log.Infow("snapshot loaded", "path", s.path, "items", len(snap.Items), "sales", len(snap.Sales))
	return nil
}

func (s *Store) Cleanup(ctx context.Context) error {
	_, err := mutate(s, func() (struct{}, error) {
		return struct{}{}, s.Store.Cleanup(ctx)
	})
	return err
}

func (s *Store) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := s.Store.HealthCheck(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil {
		status.Status = domain.HealthDegraded
		status.Message = fmt.Sprintf("last snapshot write failed: %v", s.lastErr)
		return status
	}
	status.Message = fmt.Sprintf("file store %s: %s", s.path, status.Message)
	if !s.lastSaved.IsZero() {
		status.Message += ", last saved " + s.lastSaved.Format(time.RFC3339)
	}
	return status
}

func (s *Store) CreateItem(ctx context.Context, in domain.ItemInput) (*domain.Item, error) {
	return mutate(s, func() (*domain.Item, error) { return s.Store.CreateItem(ctx, in) })
}

func (s *Store) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error) {
	return mutate(s, func() (*domain.Item, error) { return s.Store.UpdateItem(ctx, id, patch) })
}

func (s *Store) DeleteItem(ctx context.Context, id int64) (*domain.Item, error) {
	return mutate(s, func() (*domain.Item, error) { return s.Store.DeleteItem(ctx, id) })
}

func (s *Store) AdjustStock(ctx context.Context, id int64, quantity int, op domain.StockOperation) (*domain.Item, error) {
	return mutate(s, func() (*domain.Item, error) { return s.Store.AdjustStock(ctx, id, quantity, op) })
}

func (s *Store) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	return mutate(s, func() (*domain.Category, error) { return s.Store.CreateCategory(ctx, name) })
}

func (s *Store) UpdateCategory(ctx context.Context, id int64, name string) (*domain.Category, error) {
	return mutate(s, func() (*domain.Category, error) { return s.Store.UpdateCategory(ctx, id, name) })
}

func (s *Store) DeleteCategory(ctx context.Context, id int64) (*domain.Category, error) {
	return mutate(s, func() (*domain.Category, error) { return s.Store.DeleteCategory(ctx, id) })
}

func (s *Store) CreateSale(ctx context.Context, ns domain.NewSale) (*domain.SaleWithItems, error) {
	return mutate(s, func() (*domain.SaleWithItems, error) { return s.Store.CreateSale(ctx, ns) })
}

func (s *Store) UpdateSale(ctx context.Context, id int64, patch domain.SalePatch) (*domain.Sale, error) {
	return mutate(s, func() (*domain.Sale, error) { return s.Store.UpdateSale(ctx, id, patch) })
}

func (s *Store) DeleteSale(ctx context.Context, id int64, restock bool) (*domain.Sale, error) {
	return mutate(s, func() (*domain.Sale, error) { return s.Store.DeleteSale(ctx, id, restock) })
}

// mutate runs fn and persists the result. A failed write restores the state
// captured before fn ran.
func mutate[T any](s *Store, fn func() (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.Store.Snapshot()
	out, err := fn()
	if err != nil {
		return out, err
	}
	if err := s.save(s.Store.Snapshot()); err != nil {
		s.Store.Restore(before)
		s.lastErr = err
		s.log.Errorw("snapshot write failed, change rolled back", "path", s.path, "error", err)
		var zero T
		return zero, apperror.NewInternal(fmt.Errorf("persist snapshot: %w", err))
	}
	s.lastErr = nil
	return out, nil
}

func (s *Store) load() (memory.Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return memory.Snapshot{}, err
	}
	data, err := decompress(s.path, raw)
	if err != nil {
		return memory.Snapshot{}, err
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return memory.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if f.Version > formatVersion {
		return memory.Snapshot{}, fmt.Errorf("snapshot version %d is newer than supported %d", f.Version, formatVersion)
	}
	return f.Snapshot, nil
}

// save writes to a temp file in the same directory and renames it over the
// snapshot, so a crash leaves either the old or the new file.
func (s *Store) save(snap memory.Snapshot) error {
	now := time.Now().UTC()
	data, err := json.MarshalIndent(fileFormat{Version: formatVersion, SavedAt: now, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data, err = compress(s.path, data)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	s.lastSaved = now
	return nil
}

func compress(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(data); err != nil {
			return nil, fmt.Errorf("gzip snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("gzip snapshot: %w", err)
		}
		return buf.Bytes(), nil
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	}
	return data, nil
}

func decompress(path string, data []byte) ([]byte, error) {
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip snapshot: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	}
	return data, nil
}
