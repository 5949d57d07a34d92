package present

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

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

// stubDisplayer records display calls.
type stubDisplayer struct {
	calls []types.DisplayConfig
	err   error
}

func (d *stubDisplayer) Display(_ context.Context, cfg types.DisplayConfig) error {
	d.calls = append(d.calls, cfg)
	return d.err
}

func (d *stubDisplayer) RequestPermission(_ context.Context, _ types.PermissionOptions) (types.PermissionSettings, error) {
	return types.PermissionSettings{Status: types.PermissionAuthorized}, nil
}

func newTestPresenter(d *stubDisplayer) *Presenter {
	return NewPresenter(d, fixedClock{now: time.UnixMilli(1724900000000).UTC()}, nopLogger{})
}

func TestBuildDisplayConfig_PayloadText(t *testing.T) {
	pr := newTestPresenter(&stubDisplayer{})
	p := &types.NotificationPayload{MessageID: "m1", Title: "T", Body: "B"}

	cfg := pr.BuildDisplayConfig(p, nil, nil)

	assert.Equal(t, "m1", cfg.ID)
	assert.Equal(t, "T", cfg.Title)
	assert.Equal(t, "B", cfg.Body)
	assert.Equal(t, DefaultChannelID, cfg.Channel)
	assert.Equal(t, GroupID, cfg.Group)
}

func TestBuildDisplayConfig_TransportBlockWins(t *testing.T) {
	pr := newTestPresenter(&stubDisplayer{})
	p := &types.NotificationPayload{MessageID: "m1", Title: "payload title", Body: "payload body"}
	transport := &types.TransportNotification{Title: "transport title", Body: "transport body"}

	cfg := pr.BuildDisplayConfig(p, transport, nil)

	assert.Equal(t, "transport title", cfg.Title)
	assert.Equal(t, "transport body", cfg.Body)
}

func TestBuildDisplayConfig_PlaceholderWhenNoText(t *testing.T) {
	pr := newTestPresenter(&stubDisplayer{})
	p := &types.NotificationPayload{MessageID: "m1"}

	cfg := pr.BuildDisplayConfig(p, nil, nil)

	assert.Equal(t, "New Message", cfg.Title)
	assert.Empty(t, cfg.Body)
}

func TestBuildDisplayConfig_RejectsInvalidImageURL(t *testing.T) {
	pr := newTestPresenter(&stubDisplayer{})

	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.clix.so/x.png", "https://cdn.clix.so/x.png"},
		{"ftp://x.png", ""},
		{"", ""},
	}

	for _, tt := range tests {
		p := &types.NotificationPayload{MessageID: "m1", ImageURL: tt.url}
		cfg := pr.BuildDisplayConfig(p, nil, nil)
		assert.Equal(t, tt.want, cfg.ImageURL, "url=%q", tt.url)
	}
}

func TestBuildDisplayConfig_Actions(t *testing.T) {
	pr := newTestPresenter(&stubDisplayer{})
	p := &types.NotificationPayload{
		MessageID: "m1",
		Actions: []types.NotificationAction{
			{Label: "Reply", ActionID: "reply"},
			{Label: "No id"},
			{ActionID: "no_label"},
		},
	}

	cfg := pr.BuildDisplayConfig(p, nil, nil)

	require.Len(t, cfg.Actions, 2)
	assert.Equal(t, types.DefaultActionID, cfg.Actions[0].ID)
	assert.Equal(t, types.DisplayAction{ID: "reply", Label: "Reply"}, cfg.Actions[1])
}

func TestBuildDisplayConfig_FallbackIDFromClock(t *testing.T) {
	pr := newTestPresenter(&stubDisplayer{})
	p := &types.NotificationPayload{}

	cfg := pr.BuildDisplayConfig(p, nil, nil)

	assert.Equal(t, "1724900000000", cfg.ID)
}

func TestDisplay_InvokesPlatformOnce(t *testing.T) {
	d := &stubDisplayer{}
	pr := newTestPresenter(d)
	p := &types.NotificationPayload{MessageID: "m1", Title: "T", Body: "B"}

	pr.Display(context.Background(), p, nil, map[string]any{"clix": "..."})

	require.Len(t, d.calls, 1)
	assert.Equal(t, "m1", d.calls[0].ID)
}

func TestDisplay_PlatformErrorIsSwallowed(t *testing.T) {
	d := &stubDisplayer{err: errors.New("platform exploded")}
	pr := newTestPresenter(d)
	p := &types.NotificationPayload{MessageID: "m1", Title: "T", Body: "B"}

	assert.NotPanics(t, func() {
		pr.Display(context.Background(), p, nil, nil)
	})
	assert.Len(t, d.calls, 1)
}
