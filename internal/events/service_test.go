package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clix-so/clix-go/pkg/types"
)

// nopLogger implements types.Logger as a no-op for tests.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}
func (nopLogger) With(args ...any) types.Logger { return nopLogger{} }

type sentEvent struct {
	deviceID   string
	name       types.EventName
	properties map[string]any
	messageID  string
	journeyID  string
	nodeID     string
}

type stubAPI struct {
	sent []sentEvent
	err  error
}

func (a *stubAPI) SendEvent(_ context.Context, deviceID string, name types.EventName, properties map[string]any, messageID, userJourneyID, userJourneyNodeID string) error {
	a.sent = append(a.sent, sentEvent{
		deviceID:   deviceID,
		name:       name,
		properties: properties,
		messageID:  messageID,
		journeyID:  userJourneyID,
		nodeID:     userJourneyNodeID,
	})
	return a.err
}

type stubDevices struct {
	id  string
	err error
}

func (d stubDevices) CurrentDeviceID(_ context.Context) (string, error) {
	return d.id, d.err
}

func TestTrackEvent_StampsDeviceAndForwards(t *testing.T) {
	api := &stubAPI{}
	svc := NewService(api, stubDevices{id: "dev_1"}, nopLogger{})

	err := svc.TrackEvent(context.Background(), types.EventPushReceived, nil, "m1", "j1", "n1")
	require.NoError(t, err)

	require.Len(t, api.sent, 1)
	got := api.sent[0]
	assert.Equal(t, "dev_1", got.deviceID)
	assert.Equal(t, types.EventPushReceived, got.name)
	assert.Equal(t, "m1", got.messageID)
	assert.Equal(t, "j1", got.journeyID)
	assert.Equal(t, "n1", got.nodeID)
	assert.NotNil(t, got.properties)
}

func TestTrackEvent_DeviceIDFailure(t *testing.T) {
	api := &stubAPI{}
	svc := NewService(api, stubDevices{err: errors.New("no device")}, nopLogger{})

	err := svc.TrackEvent(context.Background(), types.EventSessionStart, nil, "", "", "")
	assert.Error(t, err)
	assert.Empty(t, api.sent)
}

func TestTrackEvent_APIFailureIsReturned(t *testing.T) {
	api := &stubAPI{err: errors.New("upstream down")}
	svc := NewService(api, stubDevices{id: "dev_1"}, nopLogger{})

	err := svc.TrackEvent(context.Background(), types.EventPushTapped, nil, "m1", "", "")
	assert.Error(t, err)
}

func TestCleanProperties(t *testing.T) {
	when := time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC)

	got := cleanProperties(map[string]any{
		"str":    "v",
		"num":    42,
		"flt":    1.5,
		"bool":   true,
		"nil":    nil,
		"time":   when,
		"struct": struct{ A int }{A: 1},
	})

	assert.Equal(t, "v", got["str"])
	assert.Equal(t, 42, got["num"])
	assert.Equal(t, 1.5, got["flt"])
	assert.Equal(t, true, got["bool"])
	assert.Contains(t, got, "nil")
	assert.Nil(t, got["nil"])
	assert.Equal(t, "2026-08-29T10:30:00.000Z", got["time"])
	assert.Equal(t, "{1}", got["struct"])
}
