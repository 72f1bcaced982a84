package state

import (
	"errors"
	"math/big"

	"devtoken/native/staking"
)

var (
	errNegativeAmount = errors.New("state: negative amounts cannot be stored")
	errNegativeSince  = errors.New("state: stake timestamp before the unix epoch")
)

type storedStake struct {
	State  uint8
	Owner  [20]byte
	Amount *big.Int
	Since  uint64
}

func newStoredStake(stake *staking.Stake) (*storedStake, error) {
	if stake.Amount != nil && stake.Amount.Sign() < 0 {
		return nil, errNegativeAmount
	}
	if stake.Since < 0 {
		return nil, errNegativeSince
	}
	stored := &storedStake{
		State:  uint8(stake.State),
		Owner:  stake.Owner,
		Amount: big.NewInt(0),
		Since:  uint64(stake.Since),
	}
	if stake.Amount != nil {
		stored.Amount = new(big.Int).Set(stake.Amount)
	}
	return stored, nil
}

func (s *storedStake) toStake() *staking.Stake {
	stake := &staking.Stake{
		State:  staking.StakeState(s.State),
		Owner:  s.Owner,
		Amount: big.NewInt(0),
		Since:  int64(s.Since),
	}
	if s.Amount != nil {
		stake.Amount = new(big.Int).Set(s.Amount)
	}
	return stake
}

func (m *Manager) getUint64(key []byte) (uint64, error) {
	var value uint64
	_, err := m.getRLP(key, &value)
	return value, err
}

func (m *Manager) StakeholderIndex(addr [20]byte) (uint64, error) {
	return m.getUint64(stakeholderKey(addr))
}

func (m *Manager) PutStakeholderIndex(addr [20]byte, index uint64) error {
	return m.putRLP(stakeholderKey(addr), index)
}

func (m *Manager) StakeholderCount() (uint64, error) {
	return m.getUint64(stakeholderCountKey)
}

func (m *Manager) PutStakeholderCount(count uint64) error {
	return m.putRLP(stakeholderCountKey, count)
}

func (m *Manager) StakeCount(addr [20]byte) (uint64, error) {
	return m.getUint64(stakeCountKey(addr))
}

func (m *Manager) PutStakeCount(addr [20]byte, count uint64) error {
	return m.putRLP(stakeCountKey(addr), count)
}

func (m *Manager) StakeSlot(addr [20]byte, slot uint64) (*staking.Stake, bool, error) {
	var stored storedStake
	ok, err := m.getRLP(stakeSlotKey(addr, slot), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return stored.toStake(), true, nil
}

func (m *Manager) PutStakeSlot(addr [20]byte, slot uint64, stake *staking.Stake) error {
	if stake == nil {
		return errors.New("state: nil stake")
	}
	stored, err := newStoredStake(stake)
	if err != nil {
		return err
	}
	return m.putRLP(stakeSlotKey(addr, slot), stored)
}
