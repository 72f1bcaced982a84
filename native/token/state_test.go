package token

import "math/big"

type allowanceKey struct {
	owner   [20]byte
	spender [20]byte
}

type memState struct {
	meta       *Metadata
	owner      [20]byte
	supply     *big.Int
	balances   map[[20]byte]*big.Int
	allowances map[allowanceKey]*big.Int
}

func newMemState() *memState {
	return &memState{
		balances:   make(map[[20]byte]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func copyInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func (m *memState) TokenMetadata() (*Metadata, error) {
	if m.meta == nil {
		return nil, nil
	}
	meta := *m.meta
	return &meta, nil
}

func (m *memState) PutTokenMetadata(meta *Metadata) error {
	copied := *meta
	m.meta = &copied
	return nil
}

func (m *memState) TokenOwner() ([20]byte, error) { return m.owner, nil }

func (m *memState) PutTokenOwner(owner [20]byte) error {
	m.owner = owner
	return nil
}

func (m *memState) TotalSupply() (*big.Int, error) { return copyInt(m.supply), nil }

func (m *memState) PutTotalSupply(supply *big.Int) error {
	m.supply = copyInt(supply)
	return nil
}

func (m *memState) Balance(addr [20]byte) (*big.Int, error) { return copyInt(m.balances[addr]), nil }

func (m *memState) PutBalance(addr [20]byte, amount *big.Int) error {
	m.balances[addr] = copyInt(amount)
	return nil
}

func (m *memState) Allowance(owner, spender [20]byte) (*big.Int, error) {
	return copyInt(m.allowances[allowanceKey{owner, spender}]), nil
}

func (m *memState) PutAllowance(owner, spender [20]byte, amount *big.Int) error {
	m.allowances[allowanceKey{owner, spender}] = copyInt(amount)
	return nil
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}
