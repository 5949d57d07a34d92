// Package dispatch routes inbound messages from the native channels
// through normalization, duplicate suppression, display, and tracking.
// Every entry point is a terminal error boundary: a fault in any stage is
// logged and the remaining stages still run; nothing propagates to the
// host application.
package dispatch

import (
	"context"

	"github.com/clix-so/clix-go/internal/dedupe"
	"github.com/clix-so/clix-go/internal/payload"
	"github.com/clix-so/clix-go/internal/present"
	"github.com/clix-so/clix-go/pkg/types"
)

// ForegroundHook is the integrator hook for foreground deliveries. A false
// return vetoes display and tracking for the message.
type ForegroundHook func(ctx context.Context, data map[string]any) bool

// MessageHook is the integrator hook for background deliveries and taps.
type MessageHook func(ctx context.Context, data map[string]any)

// TokenHook is the integrator hook for push token rotation.
type TokenHook func(ctx context.Context, token string)

// Hooks are the optional integrator extension points. All hooks are
// isolated: a panic inside one is recovered and logged, never propagated.
type Hooks struct {
	OnForegroundMessage  ForegroundHook
	OnBackgroundMessage  MessageHook
	OnNotificationOpened MessageHook
	OnTokenRefresh       TokenHook
}

// PendingAttributor receives the message id of a tap awaiting session
// attribution (implemented by session.Tracker).
type PendingAttributor interface {
	SetPendingMessageID(messageID string)
}

// TokenSink persists a refreshed push token and reports it upstream
// (implemented by device.Service).
type TokenSink interface {
	SavePushToken(ctx context.Context, token string) error
}

// Dispatcher is the entry point for all native channel callbacks.
type Dispatcher struct {
	suppressor *dedupe.Suppressor
	presenter  *present.Presenter
	emitter    types.EventEmitter
	sessions   PendingAttributor
	navigator  types.Navigator
	tokens     TokenSink
	logger     types.Logger

	hooks          Hooks
	autoLandingURL bool
}

// NewDispatcher creates a Dispatcher. Automatic landing-URL navigation
// starts enabled; integrators opt out via SetAutoHandleLandingURL.
func NewDispatcher(
	suppressor *dedupe.Suppressor,
	presenter *present.Presenter,
	emitter types.EventEmitter,
	sessions PendingAttributor,
	navigator types.Navigator,
	tokens TokenSink,
	logger types.Logger,
) *Dispatcher {
	return &Dispatcher{
		suppressor:     suppressor,
		presenter:      presenter,
		emitter:        emitter,
		sessions:       sessions,
		navigator:      navigator,
		tokens:         tokens,
		logger:         logger,
		autoLandingURL: true,
	}
}

// SetHooks replaces the integrator hooks. Must be called before the
// channel subscriptions are wired, typically during initialization.
func (d *Dispatcher) SetHooks(hooks Hooks) {
	d.hooks = hooks
}

// SetAutoHandleLandingURL toggles automatic landing-URL navigation on tap.
func (d *Dispatcher) SetAutoHandleLandingURL(enabled bool) {
	d.autoLandingURL = enabled
}

// OnBackgroundMessage handles a message delivered while the app is
// backgrounded. When the transport carried its own notification block the
// platform has already displayed it, so only tracking runs.
func (d *Dispatcher) OnBackgroundMessage(ctx context.Context, msg types.RawMessage) {
	d.logger.Debug("handling background message", "message_id", msg.MessageID)

	d.runHook("background message", func() {
		if d.hooks.OnBackgroundMessage != nil {
			d.hooks.OnBackgroundMessage(ctx, msg.Data)
		}
	})

	p, err := payload.Normalize(msg.Data)
	if err != nil {
		d.logger.Warn("no clix payload in background message", "message_id", msg.MessageID, "error", err)
		return
	}

	if d.suppressor.CheckAndMark(ctx, p.MessageID) {
		d.logger.Debug("message already processed, skipping duplicate", "message_id", p.MessageID)
		return
	}

	if msg.Notification == nil {
		d.presenter.Display(ctx, p, nil, msg.Data)
	}

	d.trackReceived(ctx, p)
}

// OnForegroundMessage handles a message delivered while the app is
// foregrounded. The integrator hook may veto display by returning false.
func (d *Dispatcher) OnForegroundMessage(ctx context.Context, msg types.RawMessage) {
	d.logger.Debug("handling foreground message", "message_id", msg.MessageID)

	display := true
	d.runHook("foreground message", func() {
		if d.hooks.OnForegroundMessage != nil {
			display = d.hooks.OnForegroundMessage(ctx, msg.Data)
		}
	})
	if !display {
		d.logger.Debug("foreground message suppressed by integrator hook", "message_id", msg.MessageID)
		return
	}

	p, err := payload.Normalize(msg.Data)
	if err != nil {
		d.logger.Warn("no clix payload in foreground message", "message_id", msg.MessageID, "error", err)
		return
	}

	if d.suppressor.CheckAndMark(ctx, p.MessageID) {
		d.logger.Debug("message already processed, skipping duplicate", "message_id", p.MessageID)
		return
	}

	d.presenter.Display(ctx, p, msg.Notification, msg.Data)
	d.trackReceived(ctx, p)
}

// OnNotificationTap handles a user tap on a displayed notification. A tap
// can arrive without a prior received event (OS-generated notification
// from a silent push); without a payload only the hook runs.
func (d *Dispatcher) OnNotificationTap(ctx context.Context, msg types.RawMessage) {
	d.logger.Debug("handling notification tap", "message_id", msg.MessageID)

	d.runHook("notification opened", func() {
		if d.hooks.OnNotificationOpened != nil {
			d.hooks.OnNotificationOpened(ctx, msg.Data)
		}
	})

	p, err := payload.Normalize(msg.Data)
	if err != nil {
		d.logger.Debug("no clix payload in tapped notification", "message_id", msg.MessageID, "error", err)
	} else {
		d.sessions.SetPendingMessageID(p.MessageID)
		d.trackTapped(ctx, p)
	}

	if d.autoLandingURL {
		d.navigate(ctx, p, msg.Data)
	}
}

// OnInitialNotification handles the cold-start tap: the app was launched
// from a quit state via a notification. Semantics match OnNotificationTap.
func (d *Dispatcher) OnInitialNotification(ctx context.Context, msg *types.RawMessage) {
	if msg == nil {
		return
	}
	d.logger.Debug("app launched from notification", "message_id", msg.MessageID)
	d.OnNotificationTap(ctx, *msg)
}

// OnTokenRefresh handles push token rotation: integrator hook first, then
// persistence and upstream registration.
func (d *Dispatcher) OnTokenRefresh(ctx context.Context, token string) {
	d.runHook("token refresh", func() {
		if d.hooks.OnTokenRefresh != nil {
			d.hooks.OnTokenRefresh(ctx, token)
		}
	})

	d.logger.Debug("push token refreshed")
	if err := d.tokens.SavePushToken(ctx, token); err != nil {
		d.logger.Error("failed to handle token refresh", "error", err)
	}
}

// runHook executes an integrator hook, recovering any panic so a
// misbehaving integrator cannot crash the pipeline.
func (d *Dispatcher) runHook(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("integrator hook panicked", "hook", name, "panic", r)
		}
	}()
	fn()
}

func (d *Dispatcher) trackReceived(ctx context.Context, p *types.NotificationPayload) {
	err := d.emitter.TrackEvent(ctx, types.EventPushReceived, map[string]any{}, p.MessageID, p.UserJourneyID, p.UserJourneyNodeID)
	if err != nil {
		d.logger.Error("failed to track push received", "message_id", p.MessageID, "error", err)
		return
	}
	d.logger.Debug("push received tracked", "message_id", p.MessageID)
}

func (d *Dispatcher) trackTapped(ctx context.Context, p *types.NotificationPayload) {
	err := d.emitter.TrackEvent(ctx, types.EventPushTapped, map[string]any{}, p.MessageID, p.UserJourneyID, p.UserJourneyNodeID)
	if err != nil {
		d.logger.Error("failed to track push tapped", "message_id", p.MessageID, "error", err)
		return
	}
	d.logger.Debug("push tapped tracked", "message_id", p.MessageID)
}

// navigate opens the landing URL resolved from the payload or the raw data
// fallbacks. Navigation failures are logged and swallowed.
func (d *Dispatcher) navigate(ctx context.Context, p *types.NotificationPayload, data map[string]any) {
	url := payload.LandingURL(p, data)
	if url == "" {
		return
	}

	d.logger.Debug("opening landing url", "url", url)
	if err := d.navigator.OpenURL(ctx, url); err != nil {
		d.logger.Error("failed to open landing url", "url", url, "error", err)
	}
}
