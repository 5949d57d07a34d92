package types

import (
	"context"
	"time"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the real system time (always UTC).
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger defines the structured logging interface used throughout the SDK.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// KeyValueStore is the durable scoped storage consumed for the dedup
// snapshot, the session watermark, and the config snapshot. Get must
// tolerate keys that were never set: it reports found=false rather than an
// error. Values are JSON-serializable.
type KeyValueStore interface {
	// Get decodes the value for key into dest. found is false when the key
	// was never set (dest is left untouched).
	Get(ctx context.Context, key string, dest any) (found bool, err error)

	// Set stores the JSON encoding of value under key.
	Set(ctx context.Context, key string, value any) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// EventEmitter receives named tracking events. Delivery is best-effort:
// implementations log their own failures and callers in the notification
// hot path never let a returned error abort processing.
type EventEmitter interface {
	TrackEvent(ctx context.Context, name EventName, properties map[string]any, messageID, userJourneyID, userJourneyNodeID string) error
}

// NotificationDisplayer is the platform notification-display API.
type NotificationDisplayer interface {
	Display(ctx context.Context, cfg DisplayConfig) error
	RequestPermission(ctx context.Context, opts PermissionOptions) (PermissionSettings, error)
}

// Navigator opens a landing URL in the host application.
type Navigator interface {
	OpenURL(ctx context.Context, url string) error
}

// Unsubscribe releases a subscription returned by a lifecycle or channel
// source. Calling it more than once is a no-op.
type Unsubscribe func()

// AppStateSource emits foreground/background transition events.
type AppStateSource interface {
	// CurrentState returns the app state at call time.
	CurrentState() AppState

	// Subscribe registers a handler for state transitions. The handler is
	// invoked with the new state.
	Subscribe(handler func(AppState)) (Unsubscribe, error)
}

// MessageHandler processes a raw message delivered by a native channel.
type MessageHandler func(ctx context.Context, msg RawMessage)

// TokenHandler processes a refreshed push token.
type TokenHandler func(ctx context.Context, token string)

// MessageChannel is the native message transport. It delivers raw payloads
// on background-receive, foreground-receive, tap, and token-refresh hooks,
// and exposes the cold-start notification for app launches caused by a tap.
type MessageChannel interface {
	// SetBackgroundHandler installs the background-delivery handler. The
	// platform allows exactly one; later calls replace earlier ones.
	SetBackgroundHandler(h MessageHandler)

	// OnForegroundMessage registers a handler for messages received while
	// the app is foregrounded.
	OnForegroundMessage(h MessageHandler) (Unsubscribe, error)

	// OnNotificationTap registers a handler for notification taps.
	OnNotificationTap(h MessageHandler) (Unsubscribe, error)

	// OnTokenRefresh registers a handler for push token rotation.
	OnTokenRefresh(h TokenHandler) (Unsubscribe, error)

	// InitialNotification returns the notification that launched the app
	// from a quit state, or nil if the app started cold.
	InitialNotification(ctx context.Context) (*RawMessage, error)
}
