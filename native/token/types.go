package token

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	DefaultName     = "DevToken"
	DefaultSymbol   = "DVTK"
	DefaultDecimals = uint8(18)
)

// Metadata describes the token. It is written once at genesis.
type Metadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// DefaultMetadata returns the DevToken metadata.
func DefaultMetadata() Metadata {
	return Metadata{Name: DefaultName, Symbol: DefaultSymbol, Decimals: DefaultDecimals}
}

// Validate checks that the metadata is usable.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("token: name must not be empty")
	}
	symbol := strings.TrimSpace(m.Symbol)
	if symbol == "" {
		return fmt.Errorf("token: symbol must not be empty")
	}
	if symbol != strings.ToUpper(symbol) {
		return fmt.Errorf("token %s: symbol must be upper case", symbol)
	}
	if m.Decimals > 36 {
		return fmt.Errorf("token %s: decimals %d out of range", symbol, m.Decimals)
	}
	return nil
}

// Unit returns 10^decimals, the number of base units in one whole token.
func (m Metadata) Unit() *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(m.Decimals)), nil)
}

// Info is a read-only snapshot of the token surface.
type Info struct {
	Metadata
	TotalSupply *big.Int
	Owner       [20]byte
}
