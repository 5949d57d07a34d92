// Package session tracks application session boundaries. A session ends
// when the app spends longer than the configured timeout in the
// background; the next foreground (or SDK start) then begins a new session
// and fires a SESSION_START event attributed to the notification tap that
// caused it, if any.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/clix-so/clix-go/pkg/types"
)

// lastActivityKey is the persisted watermark compared against the clock on
// every boundary decision.
const lastActivityKey = "clix_session_last_activity"

// minTimeout is the enforced floor for the session timeout. Anything
// shorter would declare a new session on every momentary backgrounding.
const minTimeout = 5 * time.Second

// defaultGraceDelay is how long the foreground transition waits for a
// near-simultaneous tap handler to populate the pending message id. This
// is a heuristic, not a synchronization guarantee.
const defaultGraceDelay = 100 * time.Millisecond

// Tracker observes app foreground/background transitions and elapsed time
// to decide when a new session begins.
type Tracker struct {
	store    types.KeyValueStore
	emitter  types.EventEmitter
	appState types.AppStateSource
	clock    types.Clock
	logger   types.Logger
	timeout  time.Duration
	grace    time.Duration
	sleepFn  func(time.Duration)

	mu               sync.Mutex
	pendingMessageID string
	lastAppState     types.AppState
	unsubscribe      types.Unsubscribe
}

// Option is a functional option for configuring a Tracker.
type Option func(*Tracker)

// WithGraceDelay overrides the foreground grace delay.
func WithGraceDelay(d time.Duration) Option {
	return func(t *Tracker) { t.grace = d }
}

// WithSleepFunc overrides the sleep function used for the grace delay.
// Intended for tests to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(t *Tracker) { t.sleepFn = fn }
}

// NewTracker creates a Tracker. The timeout is clamped to the 5 s floor.
func NewTracker(store types.KeyValueStore, emitter types.EventEmitter, appState types.AppStateSource, timeout time.Duration, clock types.Clock, logger types.Logger, opts ...Option) *Tracker {
	if timeout < minTimeout {
		timeout = minTimeout
	}

	t := &Tracker{
		store:        store,
		emitter:      emitter,
		appState:     appState,
		clock:        clock,
		logger:       logger,
		timeout:      timeout,
		grace:        defaultGraceDelay,
		sleepFn:      time.Sleep,
		lastAppState: appState.CurrentState(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start subscribes to app-state transitions and runs the initial boundary
// decision. The subscription failure is the one error this package lets
// escape: without it the tracker cannot observe transitions at all.
func (t *Tracker) Start(ctx context.Context) error {
	unsub, err := t.appState.Subscribe(t.handleAppStateChange)
	if err != nil {
		return types.NewAppError(types.ErrCodeInitSubscription, "failed to subscribe to app state changes", err)
	}
	t.mu.Lock()
	t.unsubscribe = unsub
	t.mu.Unlock()

	t.decideBoundary(ctx)
	return nil
}

// SetPendingMessageID records the notification tap awaiting attribution.
// Last write wins; the value has no effect on session state until the next
// boundary decision consumes it.
func (t *Tracker) SetPendingMessageID(messageID string) {
	t.mu.Lock()
	t.pendingMessageID = messageID
	t.mu.Unlock()
}

// Cleanup unsubscribes from app-state notifications. The tracker holds no
// further state until Start is called again.
func (t *Tracker) Cleanup() {
	t.mu.Lock()
	unsub := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Reset clears the persisted watermark and any pending attribution. The
// next boundary decision behaves like a cold start.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	t.pendingMessageID = ""
	t.mu.Unlock()
	return t.store.Remove(ctx, lastActivityKey)
}

// handleAppStateChange applies the state machine on each transition:
// background stamps the watermark; background-to-foreground waits the
// grace delay then re-runs the boundary decision.
func (t *Tracker) handleAppStateChange(next types.AppState) {
	t.mu.Lock()
	last := t.lastAppState
	t.lastAppState = next
	t.mu.Unlock()

	ctx := context.Background()

	switch {
	case last == types.AppStateBackground && next == types.AppStateActive:
		// Let a racing tap handler populate the pending message id first.
		t.sleepFn(t.grace)
		t.decideBoundary(ctx)
	case next == types.AppStateBackground:
		t.stampActivity(ctx)
	}
}

// decideBoundary applies the elapsed-time check shared by Start and the
// foreground transition. Within the timeout the existing session continues
// silently; otherwise a new session starts.
func (t *Tracker) decideBoundary(ctx context.Context) {
	var lastActivity int64
	found, err := t.store.Get(ctx, lastActivityKey, &lastActivity)
	if err != nil {
		// Read failures degrade to "not found": a fresh session starts.
		t.logger.Warn("failed to read session watermark", "error", err)
		found = false
	}

	if found {
		elapsed := t.clock.Now().UnixMilli() - lastActivity
		if elapsed <= t.timeout.Milliseconds() {
			t.mu.Lock()
			t.pendingMessageID = ""
			t.mu.Unlock()
			t.stampActivity(ctx)
			t.logger.Debug("continuing existing session", "elapsed_ms", elapsed)
			return
		}
	}

	t.startNewSession(ctx)
}

// startNewSession consumes the pending attribution, stamps the watermark,
// and fires SESSION_START. A tracking failure is logged and ignored;
// telemetry must never break session handling.
func (t *Tracker) startNewSession(ctx context.Context) {
	t.mu.Lock()
	messageID := t.pendingMessageID
	t.pendingMessageID = ""
	t.mu.Unlock()

	t.stampActivity(ctx)

	if err := t.emitter.TrackEvent(ctx, types.EventSessionStart, map[string]any{}, messageID, "", ""); err != nil {
		t.logger.Error("failed to track session start", "error", err)
		return
	}
	t.logger.Debug("session start tracked", "message_id", messageID)
}

// stampActivity writes the watermark. Write failures are logged and
// ignored; the next decision simply sees a stale watermark.
func (t *Tracker) stampActivity(ctx context.Context) {
	if err := t.store.Set(ctx, lastActivityKey, t.clock.Now().UnixMilli()); err != nil {
		t.logger.Warn("failed to persist session watermark", "error", err)
	}
}
