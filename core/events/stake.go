package events

import (
	"math/big"
	"strconv"

	"devtoken/core/types"
)

const (
	// TypeStakeStaked is emitted when an account locks tokens into a new stake slot.
	TypeStakeStaked = "stake.staked"
	// TypeStakeWithdrawn is emitted when principal and accrued reward leave a slot.
	TypeStakeWithdrawn = "stake.withdrawn"
)

// StakeStaked captures a successful stake. Index identifies the stakeholder in
// the registry and therefore repeats across stakes by the same account; Slot
// is the position of the new stake within the account's collection.
type StakeStaked struct {
	Account [20]byte
	Amount  *big.Int
	Index   uint64
	Slot    uint64
	Since   int64
}

// EventType satisfies the Event interface.
func (StakeStaked) EventType() string { return TypeStakeStaked }

// Event converts the structured payload into a broadcastable event.
func (e StakeStaked) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeStaked,
		Attributes: map[string]string{
			"addr":   formatAddress(e.Account),
			"amount": formatAmount(e.Amount),
			"index":  formatUint(e.Index),
			"slot":   formatUint(e.Slot),
			"since":  formatInt(e.Since),
		},
	}
}

// StakeWithdrawn captures principal released from a slot together with the
// reward minted for the elapsed accrual window.
type StakeWithdrawn struct {
	Account    [20]byte
	Slot       uint64
	Amount     *big.Int
	Reward     *big.Int
	Remaining  *big.Int
	Tombstoned bool
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeStakeWithdrawn,
		Attributes: map[string]string{
			"addr":       formatAddress(e.Account),
			"slot":       formatUint(e.Slot),
			"amount":     formatAmount(e.Amount),
			"reward":     formatAmount(e.Reward),
			"remaining":  formatAmount(e.Remaining),
			"tombstoned": strconv.FormatBool(e.Tombstoned),
		},
	}
}
