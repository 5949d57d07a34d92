// Package device owns the on-device identity: the generated device id, the
// push token history, and registration of both with the Clix backend.
package device

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/clix-so/clix-go/pkg/types"
)

const (
	deviceIDKey       = "clix_device_id"
	currentTokenKey   = "clix_current_push_token"
	previousTokensKey = "clix_push_tokens"

	// maxStoredTokens bounds the retained token history.
	maxStoredTokens = 5
)

// API is the outbound device registration transport (implemented by
// api.DeviceAPI).
type API interface {
	UpsertDevice(ctx context.Context, device types.Device) error
	UpdatePushToken(ctx context.Context, deviceID, token, tokenType string) error
	UpdatePushPermission(ctx context.Context, deviceID string, granted bool) error
	SetProjectUserID(ctx context.Context, deviceID, projectUserID string) error
	RemoveProjectUserID(ctx context.Context, deviceID string) error
	UpsertUserProperties(ctx context.Context, deviceID string, properties []types.UserProperty) error
	RemoveUserProperties(ctx context.Context, deviceID string, names []string) error
}

// Info describes the host application and platform, supplied by the
// integrator at SDK construction.
type Info struct {
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
	SDKVersion     string
	PushTokenType  string
}

// Service manages device identity and push token state.
type Service struct {
	store  types.KeyValueStore
	api    API
	info   Info
	logger types.Logger

	// flight collapses concurrent registration and token updates (init
	// and token-refresh paths can overlap) into a single upstream call.
	flight singleflight.Group

	mu       sync.Mutex
	deviceID string
}

// NewService creates a device Service.
func NewService(store types.KeyValueStore, api API, info Info, logger types.Logger) *Service {
	return &Service{
		store:  store,
		api:    api,
		info:   info,
		logger: logger,
	}
}

// CurrentDeviceID returns the stable device id, generating and persisting
// a new one on first use.
func (s *Service) CurrentDeviceID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deviceID != "" {
		return s.deviceID, nil
	}

	var stored string
	found, err := s.store.Get(ctx, deviceIDKey, &stored)
	if err != nil {
		return "", err
	}
	if found && stored != "" {
		s.deviceID = stored
		return stored, nil
	}

	id := uuid.NewString()
	if err := s.store.Set(ctx, deviceIDKey, id); err != nil {
		return "", err
	}
	s.deviceID = id
	s.logger.Debug("generated new device id", "device_id", id)
	return id, nil
}

// Register upserts the device with the backend. Concurrent calls share a
// single upstream request.
func (s *Service) Register(ctx context.Context, pushPermissionGranted bool) error {
	_, err, _ := s.flight.Do("register", func() (any, error) {
		deviceID, err := s.CurrentDeviceID(ctx)
		if err != nil {
			return nil, err
		}

		token, _ := s.CurrentToken(ctx)
		device := types.Device{
			ID:                      deviceID,
			Platform:                s.info.Platform,
			Model:                   s.info.Model,
			Manufacturer:            s.info.Manufacturer,
			OSName:                  s.info.OSName,
			OSVersion:               s.info.OSVersion,
			LocaleRegion:            s.info.LocaleRegion,
			LocaleLanguage:          s.info.LocaleLanguage,
			Timezone:                s.info.Timezone,
			AppName:                 s.info.AppName,
			AppVersion:              s.info.AppVersion,
			SDKType:                 "go",
			SDKVersion:              s.info.SDKVersion,
			IsPushPermissionGranted: pushPermissionGranted,
			PushToken:               token,
		}
		if token != "" {
			device.PushTokenType = s.tokenType()
		}
		return nil, s.api.UpsertDevice(ctx, device)
	})
	return err
}

// SavePushToken persists a refreshed token locally and reports it
// upstream. Duplicate concurrent refreshes for the same token collapse
// into one upstream call.
func (s *Service) SavePushToken(ctx context.Context, token string) error {
	if err := s.storeToken(ctx, token); err != nil {
		return err
	}

	deviceID, err := s.CurrentDeviceID(ctx)
	if err != nil {
		return err
	}

	_, err, _ = s.flight.Do("push_token:"+token, func() (any, error) {
		return nil, s.api.UpdatePushToken(ctx, deviceID, token, s.tokenType())
	})
	return err
}

// CurrentToken returns the last saved push token, or empty when none.
func (s *Service) CurrentToken(ctx context.Context) (string, error) {
	var token string
	found, err := s.store.Get(ctx, currentTokenKey, &token)
	if err != nil || !found {
		return "", err
	}
	return token, nil
}

// PreviousTokens returns the bounded token history, most recent last.
func (s *Service) PreviousTokens(ctx context.Context) ([]string, error) {
	var tokens []string
	found, err := s.store.Get(ctx, previousTokensKey, &tokens)
	if err != nil || !found {
		return nil, err
	}
	return tokens, nil
}

// SetPushPermission reports the permission state upstream.
func (s *Service) SetPushPermission(ctx context.Context, granted bool) error {
	deviceID, err := s.CurrentDeviceID(ctx)
	if err != nil {
		return err
	}
	return s.api.UpdatePushPermission(ctx, deviceID, granted)
}

// SetProjectUserID associates the integrator's user id with this device.
func (s *Service) SetProjectUserID(ctx context.Context, projectUserID string) error {
	deviceID, err := s.CurrentDeviceID(ctx)
	if err != nil {
		return err
	}
	return s.api.SetProjectUserID(ctx, deviceID, projectUserID)
}

// RemoveProjectUserID detaches the integrator's user id from this device.
func (s *Service) RemoveProjectUserID(ctx context.Context) error {
	deviceID, err := s.CurrentDeviceID(ctx)
	if err != nil {
		return err
	}
	return s.api.RemoveProjectUserID(ctx, deviceID)
}

// UpdateUserProperties upserts user properties, typing each value.
func (s *Service) UpdateUserProperties(ctx context.Context, properties map[string]any) error {
	deviceID, err := s.CurrentDeviceID(ctx)
	if err != nil {
		return err
	}

	typed := make([]types.UserProperty, 0, len(properties))
	for name, value := range properties {
		typed = append(typed, types.UserPropertyOf(name, value))
	}
	return s.api.UpsertUserProperties(ctx, deviceID, typed)
}

// RemoveUserProperties removes the named user properties.
func (s *Service) RemoveUserProperties(ctx context.Context, names []string) error {
	deviceID, err := s.CurrentDeviceID(ctx)
	if err != nil {
		return err
	}
	return s.api.RemoveUserProperties(ctx, deviceID, names)
}

// Reset clears the local device identity and token history. The next
// CurrentDeviceID call mints a fresh id.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.deviceID = ""
	s.mu.Unlock()

	for _, key := range []string{deviceIDKey, currentTokenKey, previousTokensKey} {
		if err := s.store.Remove(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// storeToken saves the current token and appends it to the bounded
// history, dropping any earlier occurrence of the same token.
func (s *Service) storeToken(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, currentTokenKey, token); err != nil {
		return err
	}

	tokens, err := s.PreviousTokens(ctx)
	if err != nil {
		s.logger.Warn("failed to load token history, starting fresh", "error", err)
		tokens = nil
	}

	filtered := tokens[:0]
	for _, t := range tokens {
		if t != token {
			filtered = append(filtered, t)
		}
	}
	filtered = append(filtered, token)
	if len(filtered) > maxStoredTokens {
		filtered = filtered[len(filtered)-maxStoredTokens:]
	}

	return s.store.Set(ctx, previousTokensKey, filtered)
}

func (s *Service) tokenType() string {
	if s.info.PushTokenType != "" {
		return s.info.PushTokenType
	}
	return "FCM"
}
