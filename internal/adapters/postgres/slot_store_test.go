package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jobmatcher/jm-portal/internal/errors"
	"github.com/jobmatcher/jm-portal/internal/ports"
	"github.com/jobmatcher/jm-portal/internal/testutil"
)

func TestSlotStore_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewSlotStore(db)
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")

	_, err := store.Get(ctx, "jm_auth")
	assert.ErrorIs(t, err, ports.ErrSlotNotFound)

	require.NoError(t, store.Set(ctx, "jm_auth", []byte(`{"role":"guest","token":null,"user":null}`)))
	require.NoError(t, store.Set(ctx, "jm_auth", []byte(`{"role":"user","token":"t","user":null}`)))

	got, err := store.Get(ctx, "jm_auth")
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","token":"t","user":null}`, string(got))

	require.NoError(t, store.Delete(ctx, "jm_auth"))
	_, err = store.Get(ctx, "jm_auth")
	assert.ErrorIs(t, err, ports.ErrSlotNotFound)
}

func TestSlotStore_MissingTableIsUnavailable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := NewSlotStore(db)

	_, err := store.Get(context.Background(), "jm_auth")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err), "got %v", err)
}

func TestSlotStore_SetRejectsEmptyKey(t *testing.T) {
	store := &SlotStore{}
	err := store.Set(context.Background(), "", []byte("x"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestNewSlotStore_RequiresDB(t *testing.T) {
	assert.Panics(t, func() { NewSlotStore(nil) })
}
