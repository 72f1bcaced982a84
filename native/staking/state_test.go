package staking

import (
	"errors"
	"fmt"
	"math/big"
)

type slotKey struct {
	addr [20]byte
	slot uint64
}

// memState is an in-memory engineState used by the package tests.
type memState struct {
	indices map[[20]byte]uint64
	count   uint64
	lengths map[[20]byte]uint64
	slots   map[slotKey]*Stake
}

func newMemState() *memState {
	return &memState{
		indices: make(map[[20]byte]uint64),
		lengths: make(map[[20]byte]uint64),
		slots:   make(map[slotKey]*Stake),
	}
}

func (m *memState) StakeholderIndex(addr [20]byte) (uint64, error) { return m.indices[addr], nil }

func (m *memState) PutStakeholderIndex(addr [20]byte, index uint64) error {
	m.indices[addr] = index
	return nil
}

func (m *memState) StakeholderCount() (uint64, error) { return m.count, nil }

func (m *memState) PutStakeholderCount(count uint64) error {
	m.count = count
	return nil
}

func (m *memState) StakeCount(addr [20]byte) (uint64, error) { return m.lengths[addr], nil }

func (m *memState) PutStakeCount(addr [20]byte, count uint64) error {
	m.lengths[addr] = count
	return nil
}

func (m *memState) StakeSlot(addr [20]byte, slot uint64) (*Stake, bool, error) {
	stake, ok := m.slots[slotKey{addr, slot}]
	if !ok {
		return nil, false, nil
	}
	return stake.Clone(), true, nil
}

func (m *memState) PutStakeSlot(addr [20]byte, slot uint64, stake *Stake) error {
	m.slots[slotKey{addr, slot}] = stake.Clone()
	return nil
}

// memLedger burns on lock and mints on release, like the token ledger.
type memLedger struct {
	balances map[[20]byte]*big.Int
	supply   *big.Int
	failMint bool
}

func newMemLedger() *memLedger {
	return &memLedger{balances: make(map[[20]byte]*big.Int), supply: big.NewInt(0)}
}

func (l *memLedger) fund(addr [20]byte, amount int64) {
	l.credit(addr, big.NewInt(amount))
}

func (l *memLedger) credit(addr [20]byte, amount *big.Int) {
	bal := l.balance(addr)
	l.balances[addr] = bal.Add(bal, amount)
	l.supply.Add(l.supply, amount)
}

func (l *memLedger) balance(addr [20]byte) *big.Int {
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (l *memLedger) BalanceOf(addr [20]byte) (*big.Int, error) { return l.balance(addr), nil }

func (l *memLedger) Lock(addr [20]byte, amount *big.Int) error {
	bal := l.balance(addr)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("burn exceeds balance")
	}
	l.balances[addr] = bal.Sub(bal, amount)
	l.supply.Sub(l.supply, amount)
	return nil
}

func (l *memLedger) Release(addr [20]byte, amount *big.Int) error {
	l.credit(addr, amount)
	return nil
}

func (l *memLedger) MintReward(addr [20]byte, amount *big.Int) error {
	if l.failMint {
		return errors.New("mint disabled")
	}
	l.credit(addr, amount)
	return nil
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}
