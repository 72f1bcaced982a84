package staking

import (
	"fmt"
	"iter"
	"math/big"

	"github.com/holiman/uint256"
)

type storeState interface {
	StakeCount(addr [20]byte) (uint64, error)
	PutStakeCount(addr [20]byte, count uint64) error
	StakeSlot(addr [20]byte, slot uint64) (*Stake, bool, error)
	PutStakeSlot(addr [20]byte, slot uint64, stake *Stake) error
}

// Store keeps each account's stake slots as an append-only arena. Slot indices
// are stable: exhausted slots are tombstoned in place and never reused.
type Store struct {
	state storeState
}

// NewStore binds a record store to its backing state.
func NewStore(state storeState) *Store {
	return &Store{state: state}
}

// Append adds a new active slot at the end of addr's collection and returns
// its 0-based position.
func (s *Store) Append(addr [20]byte, amount *big.Int, since int64) (uint64, error) {
	if s == nil || s.state == nil {
		return 0, errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return 0, ErrAmountOverflow
	}
	slot, err := s.state.StakeCount(addr)
	if err != nil {
		return 0, err
	}
	if err := s.state.PutStakeSlot(addr, slot, NewActiveStake(addr, amount, since)); err != nil {
		return 0, err
	}
	if err := s.state.PutStakeCount(addr, slot+1); err != nil {
		return 0, err
	}
	return slot, nil
}

// Len returns the number of slots recorded for addr, tombstones included.
func (s *Store) Len(addr [20]byte) (uint64, error) {
	if s == nil || s.state == nil {
		return 0, errNilState
	}
	return s.state.StakeCount(addr)
}

// Get returns a copy of the slot at position slot, tombstoned or not.
func (s *Store) Get(addr [20]byte, slot uint64) (*Stake, error) {
	if s == nil || s.state == nil {
		return nil, errNilState
	}
	count, err := s.state.StakeCount(addr)
	if err != nil {
		return nil, err
	}
	if slot >= count {
		return nil, fmt.Errorf("%w: slot %d of %d", ErrSlotNotFound, slot, count)
	}
	stake, ok, err := s.state.StakeSlot(addr, slot)
	if err != nil {
		return nil, err
	}
	if !ok || stake == nil {
		return nil, fmt.Errorf("%w: slot %d missing", errMissingSlot, slot)
	}
	return stake.Clone(), nil
}

// Update rewrites the amount and accrual start of an active slot. An amount of
// zero tombstones the slot.
func (s *Store) Update(addr [20]byte, slot uint64, amount *big.Int, since int64) error {
	if amount == nil || amount.Sign() < 0 {
		return errNegativeAmount
	}
	stake, err := s.Get(addr, slot)
	if err != nil {
		return err
	}
	if !stake.Active() {
		return errTombstoned
	}
	if amount.Sign() == 0 {
		stake.Tombstone(since)
	} else {
		stake.Amount = new(big.Int).Set(amount)
		stake.Since = since
	}
	return s.state.PutStakeSlot(addr, slot, stake)
}

// Summarize yields every slot of addr in insertion order, tombstones included,
// together with the reward claimable at now. The sequence reads state lazily
// and can be ranged over repeatedly; it never mutates state.
func (s *Store) Summarize(addr [20]byte, now int64) iter.Seq2[SlotSummary, error] {
	return func(yield func(SlotSummary, error) bool) {
		if s == nil || s.state == nil {
			yield(SlotSummary{}, errNilState)
			return
		}
		count, err := s.state.StakeCount(addr)
		if err != nil {
			yield(SlotSummary{}, err)
			return
		}
		for slot := uint64(0); slot < count; slot++ {
			stake, ok, err := s.state.StakeSlot(addr, slot)
			if err != nil {
				yield(SlotSummary{}, err)
				return
			}
			if !ok || stake == nil {
				yield(SlotSummary{}, fmt.Errorf("%w: slot %d missing", errMissingSlot, slot))
				return
			}
			claimable := big.NewInt(0)
			if stake.Active() {
				claimable = Claimable(stake.Amount, stake.Since, now)
			}
			if !yield(SlotSummary{Slot: slot, Stake: stake.Clone(), Claimable: claimable}, nil) {
				return
			}
		}
	}
}
