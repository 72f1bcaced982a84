package staking

import "math/big"

// StakeState tags a stake slot as live or permanently emptied.
type StakeState uint8

const (
	// StakeActive slots hold a positive principal owned by the collection's account.
	StakeActive StakeState = iota
	// StakeTombstoned slots were fully withdrawn. The state is terminal.
	StakeTombstoned
)

func (s StakeState) String() string {
	switch s {
	case StakeActive:
		return "active"
	case StakeTombstoned:
		return "tombstoned"
	default:
		return "unknown"
	}
}

// Stake is one unit of locked value inside an account's stake collection.
//
// Active slots always carry a non-zero owner and a positive amount; tombstoned
// slots always carry the zero owner and a zero amount. Use NewActiveStake and
// Tombstone rather than setting the fields by hand.
type Stake struct {
	State  StakeState `json:"state"`
	Owner  [20]byte   `json:"owner"`
	Amount *big.Int   `json:"amount"`
	Since  int64      `json:"since"`
}

// NewActiveStake builds a live slot.
func NewActiveStake(owner [20]byte, amount *big.Int, since int64) *Stake {
	return &Stake{
		State:  StakeActive,
		Owner:  owner,
		Amount: new(big.Int).Set(amount),
		Since:  since,
	}
}

// Active reports whether the slot still holds principal.
func (s *Stake) Active() bool {
	return s != nil && s.State == StakeActive
}

// Tombstone empties the slot in place and restarts its timer at since.
func (s *Stake) Tombstone(since int64) {
	s.State = StakeTombstoned
	s.Owner = [20]byte{}
	s.Amount = big.NewInt(0)
	s.Since = since
}

// Clone returns a deep copy of the stake.
func (s *Stake) Clone() *Stake {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Amount != nil {
		clone.Amount = new(big.Int).Set(s.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}

// SlotSummary pairs a slot with the reward it could claim at evaluation time.
type SlotSummary struct {
	Slot      uint64   `json:"slot"`
	Stake     *Stake   `json:"stake"`
	Claimable *big.Int `json:"claimable"`
}

// Summary is the read-only view of an account's staking position.
type Summary struct {
	Address     [20]byte      `json:"address"`
	TotalAmount *big.Int      `json:"totalAmount"`
	Stakes      []SlotSummary `json:"stakes"`
}

// Receipt describes a freshly created stake slot.
type Receipt struct {
	Slot   uint64   `json:"slot"`
	Index  uint64   `json:"index"`
	Amount *big.Int `json:"amount"`
	Since  int64    `json:"since"`
}

// Withdrawal describes the funds returned by a withdrawal and the slot's
// resulting state.
type Withdrawal struct {
	Slot       uint64   `json:"slot"`
	Principal  *big.Int `json:"principal"`
	Reward     *big.Int `json:"reward"`
	Remaining  *big.Int `json:"remaining"`
	Tombstoned bool     `json:"tombstoned"`
}

// Total returns principal plus reward.
func (w *Withdrawal) Total() *big.Int {
	if w == nil {
		return big.NewInt(0)
	}
	total := new(big.Int)
	if w.Principal != nil {
		total.Add(total, w.Principal)
	}
	if w.Reward != nil {
		total.Add(total, w.Reward)
	}
	return total
}
