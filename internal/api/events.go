package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/clix-so/clix-go/pkg/types"
)

// eventRequest is the wire envelope for the events endpoint. Events are
// sent one per request; the array form matches the batch-capable backend
// contract.
type eventRequest struct {
	Events []eventBody `json:"events"`
}

type eventBody struct {
	DeviceID      string        `json:"device_id"`
	Name          string        `json:"name"`
	EventProperty eventProperty `json:"event_property"`
}

type eventProperty struct {
	CustomProperties  map[string]any `json:"custom_properties"`
	MessageID         string         `json:"message_id,omitempty"`
	UserJourneyID     string         `json:"user_journey_id,omitempty"`
	UserJourneyNodeID string         `json:"user_journey_node_id,omitempty"`
}

// EventAPI sends tracking events to the Clix backend. Bodies are gzip
// compressed: event uploads are the SDK's highest-volume call.
type EventAPI struct {
	client *Client
	logger types.Logger
}

// NewEventAPI creates an EventAPI over the shared client.
func NewEventAPI(client *Client, logger types.Logger) *EventAPI {
	return &EventAPI{client: client, logger: logger}
}

// SendEvent posts a single tracking event.
func (a *EventAPI) SendEvent(ctx context.Context, deviceID string, name types.EventName, properties map[string]any, messageID, userJourneyID, userJourneyNodeID string) error {
	body := eventRequest{
		Events: []eventBody{{
			DeviceID: deviceID,
			Name:     string(name),
			EventProperty: eventProperty{
				CustomProperties:  properties,
				MessageID:         messageID,
				UserJourneyID:     userJourneyID,
				UserJourneyNodeID: userJourneyNodeID,
			},
		}},
	}

	compressed, err := gzipJSON(body)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode event request", err)
	}

	req, err := a.client.newRequest(ctx, http.MethodPost, "/events", compressed)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Encoding", "gzip")

	return a.client.send(req, compressed)
}

// gzipJSON marshals v and gzip-compresses the result.
func gzipJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
