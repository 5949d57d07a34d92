package storage

import (
	"context"
	"path/filepath"
	"testing"

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

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clix.db")
	store, err := OpenSQLite(path, "proj_test", nopLogger{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "clix_session_last_activity", int64(1724900000000)))

	var got int64
	found, err := store.Get(ctx, "clix_session_last_activity", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1724900000000), got)
}

func TestSQLiteStore_MissingKeyIsNotAnError(t *testing.T) {
	store := openTestStore(t)

	var got string
	found, err := store.Get(context.Background(), "never_set", &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestSQLiteStore_Overwrite(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "token", "tok_1"))
	require.NoError(t, store.Set(ctx, "token", "tok_2"))

	var got string
	found, err := store.Get(ctx, "token", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "tok_2", got)
}

func TestSQLiteStore_RemoveAbsentKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Remove(ctx, "k"))

	var got string
	found, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_StructValues(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	in := types.Device{ID: "dev_1", Platform: "android", SDKType: "go"}
	require.NoError(t, store.Set(ctx, "clix_device", in))

	var out types.Device
	found, err := store.Get(ctx, "clix_device", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestSQLiteStore_ProjectScoping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clix.db")
	a, err := OpenSQLite(path, "proj_a", nopLogger{})
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Set(ctx, "k", "from_a"))
	a.Close()

	b, err := OpenSQLite(path, "proj_b", nopLogger{})
	require.NoError(t, err)
	defer b.Close()

	var got string
	found, err := b.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found, "keys must be scoped per project")
}

func TestMemoryStore_MatchesStoreSemantics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var got []string
	found, err := store.Get(ctx, "ids", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "ids", []string{"a", "b"}))
	found, err = store.Get(ctx, "ids", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, got)

	require.NoError(t, store.Remove(ctx, "ids"))
	assert.Zero(t, store.Len())
}
