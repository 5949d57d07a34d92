package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clix-so/clix-go/internal/storage"
	"github.com/clix-so/clix-go/pkg/types"
)

// nopLogger implements types.Logger as a no-op for tests.
type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}
func (nopLogger) With(args ...any) types.Logger { return nopLogger{} }

// stubAPI records device API calls. block, when non-nil, delays UpsertDevice
// so tests can overlap concurrent registrations.
type stubAPI struct {
	mu          sync.Mutex
	upserts     []types.Device
	tokenCalls  []string
	permissions []bool
	userIDs     []string
	block       chan struct{}
}

func (a *stubAPI) UpsertDevice(_ context.Context, device types.Device) error {
	if a.block != nil {
		<-a.block
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.upserts = append(a.upserts, device)
	return nil
}

func (a *stubAPI) UpdatePushToken(_ context.Context, _, token, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokenCalls = append(a.tokenCalls, token)
	return nil
}

func (a *stubAPI) UpdatePushPermission(_ context.Context, _ string, granted bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.permissions = append(a.permissions, granted)
	return nil
}

func (a *stubAPI) SetProjectUserID(_ context.Context, _, projectUserID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userIDs = append(a.userIDs, projectUserID)
	return nil
}

func (a *stubAPI) RemoveProjectUserID(context.Context, string) error          { return nil }
func (a *stubAPI) UpsertUserProperties(context.Context, string, []types.UserProperty) error {
	return nil
}
func (a *stubAPI) RemoveUserProperties(context.Context, string, []string) error { return nil }

func newService(api *stubAPI) (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	svc := NewService(store, api, Info{
		Platform:   "android",
		SDKVersion: "1.0.0",
	}, nopLogger{})
	return svc, store
}

func TestCurrentDeviceID_StableAcrossCalls(t *testing.T) {
	svc, store := newService(&stubAPI{})
	ctx := context.Background()

	first, err := svc.CurrentDeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(first))

	second, err := svc.CurrentDeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh service over the same store resolves the same id.
	other := NewService(store, &stubAPI{}, Info{}, nopLogger{})
	third, err := other.CurrentDeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestRegister_BuildsDeviceFromInfoAndToken(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newService(api)
	ctx := context.Background()

	require.NoError(t, svc.SavePushToken(ctx, "tok_1"))
	require.NoError(t, svc.Register(ctx, true))

	require.Len(t, api.upserts, 1)
	got := api.upserts[0]
	assert.Equal(t, "android", got.Platform)
	assert.Equal(t, "go", got.SDKType)
	assert.Equal(t, "1.0.0", got.SDKVersion)
	assert.Equal(t, "tok_1", got.PushToken)
	assert.Equal(t, "FCM", got.PushTokenType)
	assert.True(t, got.IsPushPermissionGranted)
}

func TestRegister_ConcurrentCallsCollapse(t *testing.T) {
	api := &stubAPI{block: make(chan struct{})}
	svc, _ := newService(api)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.Register(ctx, false)
		}()
	}

	// Let the goroutines pile up behind the in-flight upsert.
	time.Sleep(50 * time.Millisecond)
	close(api.block)
	wg.Wait()

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Len(t, api.upserts, 1, "concurrent registrations share one upstream call")
}

func TestSavePushToken_HistoryIsBoundedAndDeduplicated(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newService(api)
	ctx := context.Background()

	for _, token := range []string{"t1", "t2", "t3", "t1", "t4", "t5", "t6"} {
		require.NoError(t, svc.SavePushToken(ctx, token))
	}

	current, err := svc.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t6", current)

	history, err := svc.PreviousTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t3", "t1", "t4", "t5", "t6"}, history)
}

func TestSetPushPermission(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newService(api)

	require.NoError(t, svc.SetPushPermission(context.Background(), true))
	assert.Equal(t, []bool{true}, api.permissions)
}

func TestReset_MintsFreshIdentity(t *testing.T) {
	api := &stubAPI{}
	svc, _ := newService(api)
	ctx := context.Background()

	first, err := svc.CurrentDeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.SavePushToken(ctx, "tok_1"))

	require.NoError(t, svc.Reset(ctx))

	second, err := svc.CurrentDeviceID(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	current, err := svc.CurrentToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, current)
}
