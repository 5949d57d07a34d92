// Package dedupe prevents the same logical push message from being
// displayed or double-tracked when the two native channels both deliver it.
package dedupe

import (
	"context"
	"sync"

	"github.com/clix-so/clix-go/pkg/types"
)

// storageKey is the key-value store entry holding the persisted snapshot of
// recently seen message ids.
const storageKey = "clix_processed_message_ids"

// maxPersisted bounds the persisted snapshot. The in-memory set is bounded
// only by process lifetime; persistence is a best-effort bridge across
// restarts, so only the most recent ids are kept.
const maxPersisted = 128

// Suppressor is a process-local set of seen message ids. The mutex makes
// the check-then-mark step atomic, so concurrent background and foreground
// deliveries of the same redelivered message can race only on telemetry,
// never on display: whichever call marks first wins and the loser observes
// the id as seen.
//
// Ids are never evicted except by Clear. False suppression of a
// legitimately repeated id across restarts is acceptable; double display is
// not.
type Suppressor struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	order  []string
	store  types.KeyValueStore
	logger types.Logger
}

// NewSuppressor creates a Suppressor backed by the given store for
// best-effort persistence. The store may be nil, in which case the set is
// purely in-memory.
func NewSuppressor(store types.KeyValueStore, logger types.Logger) *Suppressor {
	return &Suppressor{
		seen:   make(map[string]struct{}),
		store:  store,
		logger: logger,
	}
}

// Load seeds the in-memory set from the persisted snapshot. A read failure
// degrades to an empty set.
func (s *Suppressor) Load(ctx context.Context) {
	if s.store == nil {
		return
	}

	var ids []string
	found, err := s.store.Get(ctx, storageKey, &ids)
	if err != nil {
		s.logger.Warn("failed to load processed message ids, starting empty", "error", err)
		return
	}
	if !found {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.seen[id]; !ok {
			s.seen[id] = struct{}{}
			s.order = append(s.order, id)
		}
	}
}

// HasSeen reports whether id has already begun a display/tracking pass.
func (s *Suppressor) HasSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// MarkSeen records id as seen and persists the snapshot best-effort.
func (s *Suppressor) MarkSeen(ctx context.Context, id string) {
	s.mu.Lock()
	snapshot := s.markLocked(id)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
}

// CheckAndMark atomically checks and records id in a single step. It
// returns true when the id was already seen, in which case the caller must
// skip display.
func (s *Suppressor) CheckAndMark(ctx context.Context, id string) (alreadySeen bool) {
	s.mu.Lock()
	if _, ok := s.seen[id]; ok {
		s.mu.Unlock()
		return true
	}
	snapshot := s.markLocked(id)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return false
}

// Clear empties the set and removes the persisted snapshot. Used on SDK
// reset and cleanup.
func (s *Suppressor) Clear(ctx context.Context) {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.order = nil
	s.mu.Unlock()

	if s.store == nil {
		return
	}
	if err := s.store.Remove(ctx, storageKey); err != nil {
		s.logger.Warn("failed to clear persisted message ids", "error", err)
	}
}

// markLocked inserts id and returns the snapshot to persist. Caller holds
// the mutex.
func (s *Suppressor) markLocked(id string) []string {
	if _, ok := s.seen[id]; !ok {
		s.seen[id] = struct{}{}
		s.order = append(s.order, id)
	}

	start := 0
	if len(s.order) > maxPersisted {
		start = len(s.order) - maxPersisted
	}
	snapshot := make([]string, len(s.order)-start)
	copy(snapshot, s.order[start:])
	return snapshot
}

// persist writes the snapshot to the store. Failures are logged and
// ignored: persistence is strictly best-effort.
func (s *Suppressor) persist(ctx context.Context, snapshot []string) {
	if s.store == nil {
		return
	}
	if err := s.store.Set(ctx, storageKey, snapshot); err != nil {
		s.logger.Warn("failed to persist processed message ids", "error", err)
	}
}
