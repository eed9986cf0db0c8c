package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/metrics"
)

// TableStore keeps exactly one live PerformanceTable behind an atomic pointer.
// Readers never lock; publishers are serialized so versions increase by one.
type TableStore struct {
	current atomic.Pointer[model.PerformanceTable]
	mu      sync.Mutex
	logger  logger.Logger
}

var (
	_ TableReader    = (*TableStore)(nil)
	_ TablePublisher = (*TableStore)(nil)
)

// NewTableStore creates an empty store.
func NewTableStore(opts ...Option) *TableStore {
	s := &TableStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("repository")
	}
	return s
}

// Current returns the live table, or nil before the first publication.
func (s *TableStore) Current() *model.PerformanceTable {
	return s.current.Load()
}

// Version returns the live table version, 0 when empty.
func (s *TableStore) Version() uint64 {
	if t := s.current.Load(); t != nil {
		return t.Version()
	}
	return 0
}

// Ranking returns a copy of the ranked stats for c, nil if none.
func (s *TableStore) Ranking(c types.Category) []model.CategoryStat {
	if t := s.current.Load(); t != nil {
		return t.Ranking(c)
	}
	return nil
}

// Best returns the top-ranked entry for c.
func (s *TableStore) Best(c types.Category) (model.CategoryStat, error) {
	if t := s.current.Load(); t != nil {
		if best, ok := t.Best(c); ok {
			return best, nil
		}
	}
	return model.CategoryStat{}, fmt.Errorf("ranking for %s: %w", c, ErrNotFound)
}

// Publish stamps t with the next version and swaps it in.
func (s *TableStore) Publish(ctx context.Context, t *model.PerformanceTable) (*model.PerformanceTable, error) {
	if t == nil {
		return nil, ErrNilTable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := t.WithVersion(s.Version() + 1)
	s.current.Store(next)
	s.observe(ctx, next, "performance table published")
	return next, nil
}

// Restore installs a previously published table, keeping its version. It is
// refused when the live table is already at that version or newer.
func (s *TableStore) Restore(ctx context.Context, t *model.PerformanceTable) error {
	if t == nil {
		return ErrNilTable
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if live := s.Version(); live >= t.Version() && live > 0 {
		return fmt.Errorf("%w: live %d, restored %d", ErrStalePublish, live, t.Version())
	}
	s.current.Store(t)
	s.observe(ctx, t, "performance table restored")
	return nil
}

func (s *TableStore) observe(ctx context.Context, t *model.PerformanceTable, msg string) {
	metrics.UpdatePerformanceTable(t.Version(), t.PublishedAt(), t.Entries())
	s.logger.Info(ctx, msg,
		logger.Uint64("version", t.Version()),
		logger.String("run_id", t.RunID()),
		logger.Int("entries", t.Entries()),
	)
}
