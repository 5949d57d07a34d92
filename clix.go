// Package clix is the Clix push notification SDK. A host application
// constructs a Client with its platform collaborators (message channel,
// lifecycle source, displayer, navigator), initializes it once, and the
// SDK takes over notification processing: payload normalization, duplicate
// suppression, display, tap handling, session boundary tracking, and
// delivery telemetry.
package clix

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/clix-so/clix-go/internal/api"
	"github.com/clix-so/clix-go/internal/config"
	"github.com/clix-so/clix-go/internal/dedupe"
	"github.com/clix-so/clix-go/internal/device"
	"github.com/clix-so/clix-go/internal/dispatch"
	"github.com/clix-so/clix-go/internal/events"
	"github.com/clix-so/clix-go/internal/present"
	"github.com/clix-so/clix-go/internal/session"
	"github.com/clix-so/clix-go/internal/storage"
	"github.com/clix-so/clix-go/pkg/types"
)

// Version is the SDK version reported in device registrations and the
// User-Agent of every API call.
const Version = "1.0.0"

// configSnapshotKey stores the settings the SDK was last initialized with,
// for support diagnostics.
const configSnapshotKey = "clix_config"

// Config re-exports the SDK configuration so integrators construct it
// without importing internal packages.
type Config = config.Config

// LoadConfig builds a Config from the environment, including an optional
// .env file.
func LoadConfig() (*Config, error) {
	return config.Load()
}

// DeviceInfo describes the host application and platform. The integrator
// fills it once at construction; the SDK adds its own identity fields.
type DeviceInfo struct {
	Platform       string
	Model          string
	Manufacturer   string
	OSName         string
	OSVersion      string
	LocaleRegion   string
	LocaleLanguage string
	Timezone       string
	AppName        string
	AppVersion     string
	PushTokenType  string
}

// Deps are the collaborators the host platform supplies. Messages,
// AppState, and Displayer are mandatory; the rest default to working
// implementations.
type Deps struct {
	// Messages is the native push transport.
	Messages types.MessageChannel

	// AppState reports foreground/background transitions.
	AppState types.AppStateSource

	// Displayer is the platform notification-display API.
	Displayer types.NotificationDisplayer

	// Navigator opens landing URLs. When nil, automatic navigation is
	// disabled regardless of configuration.
	Navigator types.Navigator

	// Device describes the host application and platform.
	Device DeviceInfo

	// Store overrides the default SQLite store. Optional.
	Store types.KeyValueStore

	// HTTPClient overrides the default HTTP client for API calls. Optional.
	HTTPClient *http.Client

	// Logger overrides the default slog JSON logger. Optional.
	Logger types.Logger

	// Clock overrides the real clock. Optional.
	Clock types.Clock
}

// Handlers are the optional integrator extension points invoked during
// message processing. A panicking handler is isolated and logged; it never
// breaks the pipeline.
type Handlers struct {
	// OnForegroundMessage runs before a foreground delivery is processed.
	// Returning false suppresses display and tracking for the message.
	OnForegroundMessage func(ctx context.Context, data map[string]any) bool

	// OnBackgroundMessage runs when a message arrives in the background.
	OnBackgroundMessage func(ctx context.Context, data map[string]any)

	// OnNotificationTapped runs when the user taps a notification.
	OnNotificationTapped func(ctx context.Context, data map[string]any)

	// OnTokenRefresh runs when the push token rotates.
	OnTokenRefresh func(ctx context.Context, token string)
}

// Client is the SDK entry point. All methods are safe for concurrent use.
type Client struct {
	cfg    config.Config
	logger types.Logger
	level  *slog.LevelVar

	store    types.KeyValueStore
	ownStore io.Closer

	suppressor *dedupe.Suppressor
	devices    *device.Service
	emitter    *events.Service
	sessions   *session.Tracker
	dispatcher *dispatch.Dispatcher
	displayer  types.NotificationDisplayer
	messages   types.MessageChannel

	mu          sync.Mutex
	initialized bool
	unsubs      []types.Unsubscribe
}

// New wires a Client from the configuration and platform collaborators.
// No I/O happens here beyond opening the local store; backend communication
// starts with Initialize.
func New(cfg *config.Config, deps Deps) (*Client, error) {
	if cfg == nil {
		return nil, types.NewAppError(types.ErrCodeConfigMissing, "configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Messages == nil || deps.AppState == nil || deps.Displayer == nil {
		return nil, types.NewAppError(types.ErrCodeConfigMissing,
			"Messages, AppState, and Displayer collaborators are required", nil)
	}

	logger := deps.Logger
	var level *slog.LevelVar
	if logger == nil {
		logger, level = newLogger(cfg.LogLevel)
	}

	clock := deps.Clock
	if clock == nil {
		clock = types.RealClock{}
	}

	c := &Client{
		cfg:       *cfg,
		logger:    logger,
		level:     level,
		store:     deps.Store,
		displayer: deps.Displayer,
		messages:  deps.Messages,
	}

	if c.store == nil {
		sqlite, err := storage.OpenSQLite(cfg.StoragePath, cfg.ProjectID, logger)
		if err != nil {
			return nil, err
		}
		c.store = sqlite
		c.ownStore = sqlite
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	apiClient := api.NewClient(httpClient, api.Config{
		Endpoint:     cfg.Endpoint,
		ProjectID:    cfg.ProjectID,
		APIKey:       cfg.APIKey,
		UserAgent:    "clix-go/" + Version,
		ExtraHeaders: cfg.ExtraHeaders,
	}, logger)

	c.devices = device.NewService(c.store, api.NewDeviceAPI(apiClient, logger), device.Info{
		Platform:       deps.Device.Platform,
		Model:          deps.Device.Model,
		Manufacturer:   deps.Device.Manufacturer,
		OSName:         deps.Device.OSName,
		OSVersion:      deps.Device.OSVersion,
		LocaleRegion:   deps.Device.LocaleRegion,
		LocaleLanguage: deps.Device.LocaleLanguage,
		Timezone:       deps.Device.Timezone,
		AppName:        deps.Device.AppName,
		AppVersion:     deps.Device.AppVersion,
		SDKVersion:     Version,
		PushTokenType:  deps.Device.PushTokenType,
	}, logger)
	c.emitter = events.NewService(api.NewEventAPI(apiClient, logger), c.devices, logger)
	c.suppressor = dedupe.NewSuppressor(c.store, logger)
	c.sessions = session.NewTracker(c.store, c.emitter, deps.AppState, cfg.SessionTimeout, clock, logger)

	navigator := deps.Navigator
	if navigator == nil {
		navigator = noopNavigator{logger: logger}
	}
	presenter := present.NewPresenter(deps.Displayer, clock, logger)
	c.dispatcher = dispatch.NewDispatcher(c.suppressor, presenter, c.emitter, c.sessions, navigator, c.devices, logger)
	c.dispatcher.SetAutoHandleLandingURL(cfg.AutoHandleLandingURL && deps.Navigator != nil)

	return c, nil
}

// Initialize starts the SDK: it wires the channel subscriptions, starts
// session tracking, drains the cold-start notification, and registers the
// device. It is the only entry point that fails outward; once it returns
// nil all message processing is self-contained. Calling it again is a
// no-op.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		c.logger.Debug("sdk already initialized")
		return nil
	}

	c.persistConfigSnapshot(ctx)
	c.suppressor.Load(ctx)

	if err := c.subscribeChannels(); err != nil {
		c.teardownLocked()
		return err
	}

	if err := c.sessions.Start(ctx); err != nil {
		c.teardownLocked()
		return err
	}

	// Cold-start tap: the app may have been launched from a notification.
	if msg, err := c.messages.InitialNotification(ctx); err != nil {
		c.logger.Warn("failed to read initial notification", "error", err)
	} else {
		c.dispatcher.OnInitialNotification(ctx, msg)
	}

	// Registration is best-effort: a dead network at launch must not keep
	// the SDK from processing notifications.
	if err := c.devices.Register(ctx, false); err != nil {
		c.logger.Warn("device registration failed, will retry on next token refresh", "error", err)
	}

	c.initialized = true
	c.logger.Info("clix sdk initialized", "project_id", c.cfg.ProjectID, "version", Version)
	return nil
}

// subscribeChannels wires the dispatcher into the native message channel.
// Caller holds the mutex.
func (c *Client) subscribeChannels() error {
	c.messages.SetBackgroundHandler(c.dispatcher.OnBackgroundMessage)

	subscriptions := []struct {
		name      string
		subscribe func() (types.Unsubscribe, error)
	}{
		{"foreground message", func() (types.Unsubscribe, error) {
			return c.messages.OnForegroundMessage(c.dispatcher.OnForegroundMessage)
		}},
		{"notification tap", func() (types.Unsubscribe, error) {
			return c.messages.OnNotificationTap(c.dispatcher.OnNotificationTap)
		}},
		{"token refresh", func() (types.Unsubscribe, error) {
			return c.messages.OnTokenRefresh(c.dispatcher.OnTokenRefresh)
		}},
	}

	for _, sub := range subscriptions {
		unsub, err := sub.subscribe()
		if err != nil {
			return types.NewAppError(types.ErrCodeInitSubscription,
				"failed to subscribe to "+sub.name+" events", err)
		}
		c.unsubs = append(c.unsubs, unsub)
	}
	return nil
}

// persistConfigSnapshot records the non-secret settings for diagnostics.
// Failures are logged and ignored.
func (c *Client) persistConfigSnapshot(ctx context.Context) {
	snapshot := map[string]any{
		"project_id":      c.cfg.ProjectID,
		"endpoint":        c.cfg.Endpoint,
		"session_timeout": c.cfg.SessionTimeout.String(),
		"sdk_version":     Version,
	}
	if err := c.store.Set(ctx, configSnapshotKey, snapshot); err != nil {
		c.logger.Warn("failed to persist config snapshot", "error", err)
	}
}

// Cleanup stops message processing: channel subscriptions and session
// tracking are torn down. The local store stays open so a later
// Initialize can resume. Idempotent.
func (c *Client) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized && len(c.unsubs) == 0 {
		return
	}
	c.teardownLocked()
	c.logger.Info("clix sdk cleaned up")
}

// teardownLocked releases subscriptions and session tracking. Caller holds
// the mutex.
func (c *Client) teardownLocked() {
	for _, unsub := range c.unsubs {
		unsub()
	}
	c.unsubs = nil
	c.sessions.Cleanup()
	c.initialized = false
}

// Close cleans up and releases the local store. The Client must not be
// used afterwards.
func (c *Client) Close() error {
	c.Cleanup()
	if c.ownStore != nil {
		return c.ownStore.Close()
	}
	return nil
}

// Reset clears all local SDK state: device identity, push token history,
// the dedup set, and the session watermark. The next Initialize behaves
// like a first install.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.devices.Reset(ctx); err != nil {
		return err
	}
	c.suppressor.Clear(ctx)
	if err := c.sessions.Reset(ctx); err != nil {
		return err
	}
	if err := c.store.Remove(ctx, configSnapshotKey); err != nil {
		return err
	}
	c.logger.Info("clix sdk state reset")
	return nil
}

// SetHandlers installs the integrator extension points. Call before
// Initialize so no delivery races the installation.
func (c *Client) SetHandlers(h Handlers) {
	c.dispatcher.SetHooks(dispatch.Hooks{
		OnForegroundMessage:  h.OnForegroundMessage,
		OnBackgroundMessage:  h.OnBackgroundMessage,
		OnNotificationOpened: h.OnNotificationTapped,
		OnTokenRefresh:       h.OnTokenRefresh,
	})
}

// SetAutoHandleLandingURL toggles automatic landing-URL navigation on tap.
func (c *Client) SetAutoHandleLandingURL(enabled bool) {
	c.dispatcher.SetAutoHandleLandingURL(enabled)
}

// SetLogLevel changes the log verbosity at runtime. It has no effect when
// the integrator supplied its own logger.
func (c *Client) SetLogLevel(level string) {
	if c.level != nil {
		c.level.Set(parseLevel(level))
	}
}

// SetUserID associates the integrator's user id with this device.
func (c *Client) SetUserID(ctx context.Context, userID string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.devices.SetProjectUserID(ctx, userID)
}

// RemoveUserID detaches the integrator's user id from this device.
func (c *Client) RemoveUserID(ctx context.Context) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.devices.RemoveProjectUserID(ctx)
}

// SetUserProperty sets a single user property.
func (c *Client) SetUserProperty(ctx context.Context, name string, value any) error {
	return c.SetUserProperties(ctx, map[string]any{name: value})
}

// SetUserProperties sets multiple user properties in one call.
func (c *Client) SetUserProperties(ctx context.Context, properties map[string]any) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.devices.UpdateUserProperties(ctx, properties)
}

// RemoveUserProperty removes a single user property.
func (c *Client) RemoveUserProperty(ctx context.Context, name string) error {
	return c.RemoveUserProperties(ctx, []string{name})
}

// RemoveUserProperties removes the named user properties.
func (c *Client) RemoveUserProperties(ctx context.Context, names []string) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.devices.RemoveUserProperties(ctx, names)
}

// TrackEvent sends a custom tracking event.
func (c *Client) TrackEvent(ctx context.Context, name string, properties map[string]any) error {
	if err := c.requireInitialized(); err != nil {
		return err
	}
	return c.emitter.TrackEvent(ctx, types.EventName(name), properties, "", "", "")
}

// GetDeviceID returns the stable device id, generating one on first use.
func (c *Client) GetDeviceID(ctx context.Context) (string, error) {
	return c.devices.CurrentDeviceID(ctx)
}

// GetPushToken returns the current push token, or empty when none has been
// issued yet.
func (c *Client) GetPushToken(ctx context.Context) (string, error) {
	return c.devices.CurrentToken(ctx)
}

// RequestPermission asks the platform for notification permission and
// reports the outcome upstream. The reporting failure is logged, not
// returned; the integrator cares about the user's answer.
func (c *Client) RequestPermission(ctx context.Context, opts types.PermissionOptions) (types.PermissionSettings, error) {
	if err := c.requireInitialized(); err != nil {
		return types.PermissionSettings{}, err
	}

	settings, err := c.displayer.RequestPermission(ctx, opts)
	if err != nil {
		return types.PermissionSettings{}, types.NewAppError(types.ErrCodePermissionFailed,
			"notification permission request failed", err)
	}

	if err := c.devices.SetPushPermission(ctx, settings.Status.Granted()); err != nil {
		c.logger.Warn("failed to report push permission", "error", err)
	}
	return settings, nil
}

func (c *Client) requireInitialized() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return types.NewAppError(types.ErrCodeNotInitialized, "clix sdk is not initialized", nil)
	}
	return nil
}

// noopNavigator stands in when the host supplies no Navigator. Automatic
// navigation is disabled in that case, so this only fires if the
// integrator re-enables it explicitly.
type noopNavigator struct {
	logger types.Logger
}

func (n noopNavigator) OpenURL(_ context.Context, url string) error {
	n.logger.Warn("no navigator configured, dropping landing url", "url", url)
	return nil
}
