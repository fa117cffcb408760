package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobmatcher/jm-portal/internal/ports"
)

func TestSlotStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := New(path)
	ctx := context.Background()

	_, err := store.Get(ctx, "jm_auth")
	assert.ErrorIs(t, err, ports.ErrSlotNotFound)

	payload := []byte(`{"role":"user","token":"tok-1","user":null}`)
	require.NoError(t, store.Set(ctx, "jm_auth", payload))
	require.NoError(t, store.Set(ctx, "other", []byte("x")))

	got, err := New(path).Get(ctx, "jm_auth")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Delete(ctx, "jm_auth"))
	_, err = store.Get(ctx, "jm_auth")
	assert.ErrorIs(t, err, ports.ErrSlotNotFound)

	got, err = store.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got)
}

func TestSlotStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o600))
	store := New(path)
	ctx := context.Background()

	_, err := store.Get(ctx, "jm_auth")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrSlotNotFound)

	require.NoError(t, store.Set(ctx, "jm_auth", []byte("{}")))
	got, err := store.Get(ctx, "jm_auth")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got)
}

func TestSlotStore_DeleteMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "none.json"))
	assert.NoError(t, store.Delete(context.Background(), "jm_auth"))
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err), "delete must not create the file")
}

func TestSlotStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "session.json"))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Set(context.Background(), "k", []byte("v")))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
