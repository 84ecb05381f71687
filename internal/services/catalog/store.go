package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"course-eligibility-engine/internal/utils"
)

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = errors.New("catalog not loaded")

// Store holds the current snapshot. Readers never block; Reload builds a new
// snapshot and swaps it in only when the build succeeds.
type Store struct {
	source      Source
	defaultLang string
	logger      *zap.Logger

	current  atomic.Pointer[Snapshot]
	reloadMu sync.Mutex
}

// NewStore creates a store. Call Reload before serving requests.
func NewStore(source Source, defaultLang string, logger *zap.Logger) *Store {
	return &Store{
		source:      source,
		defaultLang: defaultLang,
		logger:      utils.Component(logger, "catalog"),
	}
}

// NewStaticStore wraps an already built snapshot. Reload is a no-op error.
func NewStaticStore(snap *Snapshot) *Store {
	s := &Store{logger: zap.NewNop()}
	s.current.Store(snap)
	return s
}

// Current returns the active snapshot, or nil before the first load.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Snapshot returns the active snapshot or ErrNotLoaded.
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Reload loads the source and swaps the snapshot. On failure the previous
// snapshot stays active.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	if s.source == nil {
		return nil, fmt.Errorf("catalog store has no source")
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	s.logger.Info("Loading catalog", zap.String("source", s.source.Name()))

	raw, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to load catalog", zap.String("source", s.source.Name()), zap.Error(err))
		return nil, fmt.Errorf("failed to load catalog from %s: %w", s.source.Name(), err)
	}

	snap, err := Build(s.source.Name(), raw, s.defaultLang, s.logger)
	if err != nil {
		s.logger.Error("Failed to build catalog snapshot", zap.Error(err))
		return nil, err
	}

	previous := s.current.Swap(snap)

	stats := snap.Stats()
	fields := []zap.Field{
		zap.String("version", stats.Version),
		zap.Int("requirements", stats.Requirements),
		zap.Int("courses", stats.Courses),
		zap.Int("tagged", stats.Tagged),
		zap.Int("languages", stats.Languages),
		zap.Int("warnings", stats.Warnings),
		zap.Duration("duration", time.Since(start)),
	}
	if previous != nil {
		fields = append(fields, zap.String("previous_version", previous.Version))
	}
	s.logger.Info("Catalog loaded", fields...)

	return snap, nil
}
