// Package payload normalizes raw wire messages into typed notification
// payloads. Normalization is a pure function: no I/O, no state, no side
// effects. The wire-to-internal field mapping lives in the wirePayload
// struct tags so call sites never touch raw keys.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clix-so/clix-go/pkg/types"
)

// DataKey is the key under which the Clix sub-object is embedded in the
// transport's data payload.
const DataKey = "clix"

var (
	// ErrNoPayload indicates the message data carries no Clix sub-object.
	ErrNoPayload = errors.New("no clix entry in message data")

	// ErrMalformed indicates the Clix sub-object could not be decoded.
	ErrMalformed = errors.New("malformed clix payload")

	// ErrMissingMessageID indicates the payload has no message_id. Such a
	// payload can be neither deduplicated nor tracked and is always invalid.
	ErrMissingMessageID = errors.New("clix payload missing message_id")
)

// wirePayload mirrors the snake_case wire schema. Unknown wire fields are
// dropped by the JSON decoder.
type wirePayload struct {
	MessageID         string         `json:"message_id"`
	Title             string         `json:"title"`
	Body              string         `json:"body"`
	ImageURL          string         `json:"image_url"`
	LandingURL        string         `json:"landing_url"`
	CampaignID        string         `json:"campaign_id"`
	TrackingID        string         `json:"tracking_id"`
	UserJourneyID     string         `json:"user_journey_id"`
	UserJourneyNodeID string         `json:"user_journey_node_id"`
	Actions           []wireAction   `json:"actions"`
	CustomProperties  map[string]any `json:"custom_properties"`
}

type wireAction struct {
	Label    string `json:"label"`
	ActionID string `json:"action_id"`
}

// Normalize extracts and validates the Clix payload from a message's data
// map. The sub-object may be a nested map or a JSON-encoded string.
//
// A missing message_id always invalidates the payload. Missing title/body
// does not: tracking proceeds with a degraded payload and the presenter
// resolves display text from the transport block or a placeholder.
func Normalize(data map[string]any) (*types.NotificationPayload, error) {
	if data == nil {
		return nil, ErrNoPayload
	}

	entry, ok := data[DataKey]
	if !ok || entry == nil {
		return nil, ErrNoPayload
	}

	var raw []byte
	switch v := entry.(type) {
	case string:
		raw = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		raw = encoded
	}

	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if wire.MessageID == "" {
		return nil, ErrMissingMessageID
	}

	p := &types.NotificationPayload{
		MessageID:         wire.MessageID,
		Title:             wire.Title,
		Body:              wire.Body,
		ImageURL:          wire.ImageURL,
		LandingURL:        wire.LandingURL,
		CampaignID:        wire.CampaignID,
		TrackingID:        wire.TrackingID,
		UserJourneyID:     wire.UserJourneyID,
		UserJourneyNodeID: wire.UserJourneyNodeID,
		CustomProperties:  wire.CustomProperties,
	}
	for _, a := range wire.Actions {
		p.Actions = append(p.Actions, types.NotificationAction{
			Label:    a.Label,
			ActionID: a.ActionID,
		})
	}

	return p, nil
}

// ValidImageURL reports whether an image URL is usable for display: it must
// be non-empty and http(s)-prefixed. Anything else (ftp, file, relative
// paths) is rejected before reaching the platform display API.
func ValidImageURL(url string) bool {
	return url != "" && strings.HasPrefix(url, "http")
}

// LandingURL resolves the tap destination from a normalized payload and the
// raw data map, in that order of preference. The raw fallbacks cover pushes
// composed outside Clix that still carry a destination.
func LandingURL(p *types.NotificationPayload, data map[string]any) string {
	if p != nil && p.LandingURL != "" {
		return p.LandingURL
	}
	for _, key := range []string{"landing_url", "url", "link", "click_action"} {
		if v, ok := data[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
