// Package events implements the tracking-event service: it cleans event
// properties, stamps the device identity, and forwards events to the Clix
// event API. Delivery is best-effort by design.
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/clix-so/clix-go/pkg/types"
)

// timestampLayout is the wire format for time-valued event properties.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DeviceIDProvider supplies the device identity stamped on every event.
type DeviceIDProvider interface {
	CurrentDeviceID(ctx context.Context) (string, error)
}

// API is the outbound event transport (implemented by api.EventAPI).
type API interface {
	SendEvent(ctx context.Context, deviceID string, name types.EventName, properties map[string]any, messageID, userJourneyID, userJourneyNodeID string) error
}

// Service implements types.EventEmitter on top of the event API.
type Service struct {
	api     API
	devices DeviceIDProvider
	logger  types.Logger
}

var _ types.EventEmitter = (*Service)(nil)

// NewService creates an event Service.
func NewService(api API, devices DeviceIDProvider, logger types.Logger) *Service {
	return &Service{
		api:     api,
		devices: devices,
		logger:  logger,
	}
}

// TrackEvent cleans the properties, resolves the device id, and sends the
// event. The error is returned for callers that want it, but hot-path
// callers treat tracking as fire-and-forget and only log it.
func (s *Service) TrackEvent(ctx context.Context, name types.EventName, properties map[string]any, messageID, userJourneyID, userJourneyNodeID string) error {
	s.logger.Debug("tracking event", "name", name, "message_id", messageID)

	deviceID, err := s.devices.CurrentDeviceID(ctx)
	if err != nil {
		s.logger.Error("failed to resolve device id for event", "name", name, "error", err)
		return err
	}

	if err := s.api.SendEvent(ctx, deviceID, name, cleanProperties(properties), messageID, userJourneyID, userJourneyNodeID); err != nil {
		s.logger.Error("failed to track event", "name", name, "device_id", deviceID, "error", err)
		return err
	}

	s.logger.Debug("event tracked", "name", name, "device_id", deviceID)
	return nil
}

// cleanProperties coerces property values into the wire-safe subset:
// scalars pass through, times are formatted, everything else is
// stringified. Nil values are preserved so the backend can record explicit
// clears.
func cleanProperties(properties map[string]any) map[string]any {
	if properties == nil {
		return map[string]any{}
	}

	clean := make(map[string]any, len(properties))
	for key, value := range properties {
		if value == nil {
			clean[key] = nil
			continue
		}

		switch v := value.(type) {
		case time.Time:
			clean[key] = v.UTC().Format(timestampLayout)
		case string, bool,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			clean[key] = v
		default:
			clean[key] = fmt.Sprint(v)
		}
	}
	return clean
}
