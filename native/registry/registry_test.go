package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fusionswap/core/state"
	"fusionswap/storage"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	tx := state.NewManager(storage.NewMemDB()).Begin()
	t.Cleanup(tx.Discard)
	return New(tx)
}

func TestRegisterAndDeregister(t *testing.T) {
	reg := newRegistry(t)
	resolver := [20]byte{7}

	active, err := reg.IsActiveResolver(resolver)
	require.NoError(t, err)
	require.False(t, active)

	rec, err := reg.Register(resolver, " desk-1 ", 100)
	require.NoError(t, err)
	require.Equal(t, "desk-1", rec.Label)
	require.Equal(t, uint64(100), rec.RegisteredAt)

	active, err = reg.IsActiveResolver(resolver)
	require.NoError(t, err)
	require.True(t, active)

	rec, err = reg.Deregister(resolver, 200)
	require.NoError(t, err)
	require.False(t, rec.Active)
	require.Equal(t, uint64(100), rec.RegisteredAt)

	active, err = reg.IsActiveResolver(resolver)
	require.NoError(t, err)
	require.False(t, active)

	_, err = reg.Register(resolver, "", 300)
	require.NoError(t, err)
	list, err := reg.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].Active)
	require.Equal(t, uint64(300), list[0].UpdatedAt)
}

func TestDeregisterUnknown(t *testing.T) {
	reg := newRegistry(t)
	_, err := reg.Deregister([20]byte{1}, 1)
	require.ErrorIs(t, err, ErrUnknownResolver)
	_, err = reg.Register([20]byte{}, "", 1)
	require.Error(t, err)
}
