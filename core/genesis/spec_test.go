package genesis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"devtoken/crypto"
)

func testAddress(b byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	raw[0] = b
	return crypto.MustNewAddress(crypto.DevPrefix, raw)
}

func TestDefaultGenesisResolves(t *testing.T) {
	owner := testAddress(9)
	plan, err := Default(owner).Resolve()
	require.NoError(t, err)
	require.Equal(t, "DVTK", plan.Metadata.Symbol)
	require.Equal(t, owner.Array(), plan.Owner)
	require.Len(t, plan.Allocations, 1)
	require.Equal(t, "50000000000000000000000", plan.Total().String())
}

func TestWriteLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "genesis.yaml")
	require.NoError(t, Write(path, Default(testAddress(1))))

	spec, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "DevToken", spec.Token.Name)
	require.Equal(t, testAddress(1).String(), spec.Owner)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	doc := "token:\n  name: DevToken\n  symbol: DVTK\n  decimals: 18\nowner: " + testAddress(1).String() + "\nvalidators: []\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestResolveValidation(t *testing.T) {
	owner := testAddress(1)
	cases := map[string]func(*Spec){
		"missing owner":   func(s *Spec) { s.Owner = "" },
		"zero owner":      func(s *Spec) { s.Owner = "0x0000000000000000000000000000000000000000" },
		"bad symbol":      func(s *Spec) { s.Token.Symbol = "" },
		"bad amount":      func(s *Spec) { s.Alloc[owner.String()] = "12abc" },
		"negative amount": func(s *Spec) { s.Alloc[owner.String()] = "-5" },
		"bad address":     func(s *Spec) { s.Alloc["nope"] = "1" },
		"duplicate": func(s *Spec) {
			s.Alloc["0x01"+strings.Repeat("00", 19)] = "1"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			spec := Default(owner)
			mutate(spec)
			_, err := spec.Resolve()
			require.Error(t, err)
		})
	}
}

func TestAllocationsSorted(t *testing.T) {
	spec := Default(testAddress(5))
	spec.Alloc[testAddress(2).String()] = "1_000"
	spec.Alloc[testAddress(7).String()] = "3"

	plan, err := spec.Resolve()
	require.NoError(t, err)
	require.Len(t, plan.Allocations, 3)
	require.Equal(t, testAddress(2).Array(), plan.Allocations[0].Address)
	require.Equal(t, int64(1000), plan.Allocations[0].Amount.Int64())
	require.Equal(t, testAddress(7).Array(), plan.Allocations[2].Address)
}

func TestResolveNormalisesTokenNames(t *testing.T) {
	spec := Default(testAddress(9))
	// Fullwidth letters and a decomposed accent fold to their canonical form.
	spec.Token.Name = " Dev\uFF34oke\u0301n "
	spec.Token.Symbol = "\uFF44vtk"
	plan, err := spec.Resolve()
	require.NoError(t, err)
	require.Equal(t, "DevTok\u00e9n", plan.Metadata.Name)
	require.Equal(t, "DVTK", plan.Metadata.Symbol)
}
