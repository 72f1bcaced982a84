package state

import (
	"math/big"

	"devtoken/native/token"
)

type storedMetadata struct {
	Name     string
	Symbol   string
	Decimals uint8
}

func (m *Manager) TokenMetadata() (*token.Metadata, error) {
	var stored storedMetadata
	ok, err := m.getRLP(tokenMetadataKey, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &token.Metadata{Name: stored.Name, Symbol: stored.Symbol, Decimals: stored.Decimals}, nil
}

func (m *Manager) PutTokenMetadata(meta *token.Metadata) error {
	if meta == nil {
		m.delete(tokenMetadataKey)
		return nil
	}
	return m.putRLP(tokenMetadataKey, &storedMetadata{Name: meta.Name, Symbol: meta.Symbol, Decimals: meta.Decimals})
}

// TokenOwner returns the current owner, or the zero address when the token
// has none.
func (m *Manager) TokenOwner() ([20]byte, error) {
	var owner [20]byte
	_, err := m.getRLP(tokenOwnerKey, &owner)
	return owner, err
}

func (m *Manager) PutTokenOwner(owner [20]byte) error {
	if owner == ([20]byte{}) {
		m.delete(tokenOwnerKey)
		return nil
	}
	return m.putRLP(tokenOwnerKey, owner)
}

func (m *Manager) TotalSupply() (*big.Int, error) {
	return m.getAmount(tokenSupplyKey)
}

func (m *Manager) PutTotalSupply(supply *big.Int) error {
	return m.putAmount(tokenSupplyKey, supply)
}

func (m *Manager) Balance(addr [20]byte) (*big.Int, error) {
	return m.getAmount(balanceKey(addr))
}

func (m *Manager) PutBalance(addr [20]byte, amount *big.Int) error {
	return m.putAmount(balanceKey(addr), amount)
}

func (m *Manager) Allowance(owner, spender [20]byte) (*big.Int, error) {
	return m.getAmount(allowanceKey(owner, spender))
}

func (m *Manager) PutAllowance(owner, spender [20]byte, amount *big.Int) error {
	return m.putAmount(allowanceKey(owner, spender), amount)
}

func (m *Manager) getAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	if _, err := m.getRLP(key, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// putAmount deletes the key for zero amounts so empty accounts leave no trace.
func (m *Manager) putAmount(key []byte, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		m.delete(key)
		return nil
	}
	if amount.Sign() < 0 {
		return errNegativeAmount
	}
	return m.putRLP(key, amount)
}
