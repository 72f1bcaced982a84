package crypto

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var raw [AddressLength]byte
	raw[0] = 0x01
	raw[19] = 0xAB

	addr := FromArray(raw)
	encoded := addr.String()
	require.Contains(t, encoded, string(DevPrefix)+"1")

	decoded, err := ParseAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded.Array())

	fromHex, err := ParseAddress("0x01000000000000000000000000000000000000ab")
	require.NoError(t, err)
	require.Equal(t, raw, fromHex.Array())
}

func TestParseAddressRejectsMalformedInput(t *testing.T) {
	_, err := ParseAddress("")
	require.Error(t, err)

	_, err = ParseAddress("0x1234")
	require.Error(t, err)

	other := MustNewAddress(AddressPrefix("cosmos"), make([]byte, AddressLength))
	_, err = ParseAddress(other.String())
	require.Error(t, err)
}

func TestZeroAddress(t *testing.T) {
	var zero [AddressLength]byte
	require.True(t, FromArray(zero).IsZero())

	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.False(t, key.PubKey().Address().IsZero())
}

func TestKeystoreRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "operator.keystore")
	require.NoError(t, SaveToKeystore(path, key, "secret"))

	loaded, err := LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), loaded.PubKey().Address().String())

	_, err = LoadFromKeystore(path, "wrong")
	require.Error(t, err)
}
