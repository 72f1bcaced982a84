package staking

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsStableOneBasedIndices(t *testing.T) {
	reg := NewRegistry(newMemState())
	alice, bob := addr(1), addr(2)

	idx, err := reg.IndexOf(alice)
	require.NoError(t, err)
	require.Zero(t, idx)

	idx, created, err := reg.RegisterIfAbsent(alice)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, uint64(1), idx)

	idx, created, err = reg.RegisterIfAbsent(alice)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, uint64(1), idx)

	idx, created, err = reg.RegisterIfAbsent(bob)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, uint64(2), idx)

	count, err := reg.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestRegistryRequiresState(t *testing.T) {
	var reg *Registry
	_, err := reg.IndexOf(addr(1))
	require.ErrorIs(t, err, errNilState)
	_, _, err = NewRegistry(nil).RegisterIfAbsent(addr(1))
	require.ErrorIs(t, err, errNilState)
}
