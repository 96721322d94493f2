package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "checkpoints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_GetAbsentKey(t *testing.T) {
	store := newTestStore(t)

	value, err := store.Get(context.Background(), "processing-progress")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestStore_SetGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "processing-progress", []byte(`{"video_identity":"v1"}`)))

	value, err := store.Get(ctx, "processing-progress")
	require.NoError(t, err)
	assert.JSONEq(t, `{"video_identity":"v1"}`, string(value))

	// Overwrite replaces, no partial updates.
	require.NoError(t, store.Set(ctx, "processing-progress", []byte(`{"video_identity":"v2"}`)))
	value, err = store.Get(ctx, "processing-progress")
	require.NoError(t, err)
	assert.JSONEq(t, `{"video_identity":"v2"}`, string(value))

	require.NoError(t, store.Delete(ctx, "processing-progress"))
	value, err = store.Get(ctx, "processing-progress")
	require.NoError(t, err)
	assert.Nil(t, value)

	// Deleting again is fine.
	require.NoError(t, store.Delete(ctx, "processing-progress"))
}

func TestStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "checkpoints.db")
	ctx := context.Background()

	store, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "k", []byte("durable")))
	require.NoError(t, store.Close())

	reopened, err := NewStore(dbPath)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	value, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("durable"), value)
}
