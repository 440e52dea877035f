package rules

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yuno/sentinel/internal/models"
)

// Snapshot is a read-only, periodically-refreshed view of active rules,
// per spec.md §4.3/§4.4 ("creators are warned that new rules take effect
// after one refresh"). The Detector only ever reads through Snapshot; all
// writes go through Store and are picked up at the next refresh.
type Snapshot struct {
	store    *Store
	interval time.Duration
	log      *zap.Logger

	mu    sync.RWMutex
	rules []models.Rule
}

// NewSnapshot builds a Snapshot that refreshes every interval. Call Start to
// begin the background refresh loop; Rules() is safe to call before the
// first refresh completes (it returns an empty slice).
func NewSnapshot(store *Store, interval time.Duration, log *zap.Logger) *Snapshot {
	return &Snapshot{store: store, interval: interval, log: log}
}

// Refresh synchronously reloads the snapshot from the registry. Returns the
// error (if any) without modifying the current snapshot, so a transient
// registry failure never empties an otherwise-healthy snapshot.
func (s *Snapshot) Refresh(ctx context.Context) error {
	active, err := s.store.ListActive(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rules = active
	s.mu.Unlock()
	return nil
}

// Rules returns the current snapshot. The returned slice must not be
// mutated by the caller.
func (s *Snapshot) Rules() []models.Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules
}

// Start runs the refresh loop until ctx is cancelled.
func (s *Snapshot) Start(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("initial rule snapshot refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.log.Warn("rule snapshot refresh failed, keeping stale snapshot", zap.Error(err))
			}
		}
	}
}
