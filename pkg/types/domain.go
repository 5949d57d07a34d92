// Package types defines the domain model shared across the SDK: the
// normalized push payload, display configuration, tracking event names,
// and the collaborator interfaces consumed by the processing pipeline.
package types

import "fmt"

// EventName identifies a tracking event sent to the Clix event API.
type EventName string

const (
	// EventPushReceived is tracked once per deduplicated inbound push message.
	EventPushReceived EventName = "PUSH_NOTIFICATION_RECEIVED"

	// EventPushTapped is tracked when the user taps a displayed notification.
	EventPushTapped EventName = "PUSH_NOTIFICATION_TAPPED"

	// EventSessionStart is tracked when the session tracker declares a new
	// session boundary. It carries the pending tap attribution, if any.
	EventSessionStart EventName = "SESSION_START"
)

// NotificationPayload is the SDK-specific content extracted from a push
// message, distinct from the transport's own notification block. It is
// constructed once per inbound message by the payload normalizer and is
// never mutated afterwards.
type NotificationPayload struct {
	MessageID         string
	Title             string
	Body              string
	ImageURL          string
	LandingURL        string
	CampaignID        string
	TrackingID        string
	UserJourneyID     string
	UserJourneyNodeID string
	Actions           []NotificationAction
	CustomProperties  map[string]any
}

// String returns a short diagnostic form. Body and custom properties are
// omitted to keep log lines bounded.
func (p *NotificationPayload) String() string {
	return fmt.Sprintf("NotificationPayload(messageId: %s, campaignId: %s)", p.MessageID, p.CampaignID)
}

// Equals reports whether two payloads refer to the same logical message.
func (p *NotificationPayload) Equals(other *NotificationPayload) bool {
	return other != nil && p.MessageID == other.MessageID
}

// NotificationAction is a custom action declared in the payload. Actions
// missing either field are dropped during display-config construction.
type NotificationAction struct {
	Label    string
	ActionID string
}

// TransportNotification is the native transport's own notification block
// (title/body chosen by the push provider rather than the Clix payload).
// When present on a background delivery the platform auto-displays it and
// the SDK must not display a second notification for the same message.
type TransportNotification struct {
	Title string
	Body  string
}

// RawMessage is a message as delivered by a native channel, before
// normalization. Data holds the provider's key-value payload; the Clix
// sub-object lives under the "clix" key, either as a nested map or as a
// JSON-encoded string.
type RawMessage struct {
	MessageID    string
	Notification *TransportNotification
	Data         map[string]any
}

// AppState is a coarse application lifecycle state as reported by the host
// platform's lifecycle source.
type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateBackground AppState = "background"
	AppStateInactive   AppState = "inactive"
)

// DisplayAction is a tappable action attached to a displayed notification.
type DisplayAction struct {
	ID    string
	Label string
}

// DefaultActionID is the press action every displayed notification carries.
const DefaultActionID = "default"

// DisplayConfig is the platform-neutral description of a notification to
// display. The platform displayer maps it onto native chrome (big-picture
// style and large icon on Android, attachment on iOS).
type DisplayConfig struct {
	ID       string
	Title    string
	Body     string
	Channel  string
	Group    string
	ImageURL string
	Actions  []DisplayAction
	Data     map[string]any
}

// HasImage reports whether an image attachment was resolved for display.
func (c DisplayConfig) HasImage() bool { return c.ImageURL != "" }

// PermissionStatus is the outcome of a notification permission request.
type PermissionStatus string

const (
	PermissionAuthorized  PermissionStatus = "authorized"
	PermissionProvisional PermissionStatus = "provisional"
	PermissionDenied      PermissionStatus = "denied"
	PermissionNotAsked    PermissionStatus = "not_determined"
)

// Granted reports whether the status allows notifications to be shown.
func (s PermissionStatus) Granted() bool {
	return s == PermissionAuthorized || s == PermissionProvisional
}

// PermissionOptions selects the capabilities requested from the platform.
type PermissionOptions struct {
	Alert bool
	Badge bool
	Sound bool
}

// PermissionSettings is the platform's response to a permission request.
type PermissionSettings struct {
	Status PermissionStatus
}

// Device describes the installation registered with the Clix backend.
type Device struct {
	ID                      string `json:"id"`
	Platform                string `json:"platform"`
	Model                   string `json:"model"`
	Manufacturer            string `json:"manufacturer"`
	OSName                  string `json:"os_name"`
	OSVersion               string `json:"os_version"`
	LocaleRegion            string `json:"locale_region"`
	LocaleLanguage          string `json:"locale_language"`
	Timezone                string `json:"timezone"`
	AppName                 string `json:"app_name"`
	AppVersion              string `json:"app_version"`
	SDKType                 string `json:"sdk_type"`
	SDKVersion              string `json:"sdk_version"`
	IsPushPermissionGranted bool   `json:"is_push_permission_granted"`
	PushToken               string `json:"push_token,omitempty"`
	PushTokenType           string `json:"push_token_type,omitempty"`
}

// UserProperty is a typed user property forwarded to the device API.
type UserProperty struct {
	Name      string `json:"name"`
	ValueType string `json:"value_type"`
	Value     any    `json:"value"`
}

// UserPropertyOf builds a UserProperty with the value type inferred from the
// Go type of value (boolean, number, or string; everything else is
// stringified).
func UserPropertyOf(name string, value any) UserProperty {
	switch v := value.(type) {
	case bool:
		return UserProperty{Name: name, ValueType: "BOOLEAN", Value: v}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return UserProperty{Name: name, ValueType: "NUMBER", Value: v}
	case string:
		return UserProperty{Name: name, ValueType: "STRING", Value: v}
	default:
		return UserProperty{Name: name, ValueType: "STRING", Value: fmt.Sprint(value)}
	}
}
