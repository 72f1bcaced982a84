package events

import (
	"math/big"
	"strings"

	"devtoken/core/types"
)

const (
	TypeTokenTransfer             = "token.transfer"
	TypeTokenApproval             = "token.approval"
	TypeTokenMinted               = "token.minted"
	TypeTokenBurned               = "token.burned"
	TypeTokenOwnershipTransferred = "token.ownershipTransferred"

	// SupplyReasonStakeLock tags burns that lock principal into a stake.
	SupplyReasonStakeLock = "stake.lock"
	// SupplyReasonStakeRelease tags mints that return principal from a stake.
	SupplyReasonStakeRelease = "stake.release"
	// SupplyReasonStakeReward tags mints that pay accrued staking reward.
	SupplyReasonStakeReward = "stake.reward"
)

type TokenTransfer struct {
	From   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (TokenTransfer) EventType() string { return TypeTokenTransfer }

func (e TokenTransfer) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenTransfer,
		Attributes: map[string]string{
			"from":   formatAddress(e.From),
			"to":     formatAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

type TokenApproval struct {
	Owner   [20]byte
	Spender [20]byte
	Amount  *big.Int
}

func (TokenApproval) EventType() string { return TypeTokenApproval }

func (e TokenApproval) Event() *types.Event {
	return &types.Event{
		Type: TypeTokenApproval,
		Attributes: map[string]string{
			"owner":   formatAddress(e.Owner),
			"spender": formatAddress(e.Spender),
			"amount":  formatAmount(e.Amount),
		},
	}
}

// TokenMinted records new supply credited to an account. Reason is empty for
// administrative mints.
type TokenMinted struct {
	To     [20]byte
	Amount *big.Int
	Reason string
}

func (TokenMinted) EventType() string { return TypeTokenMinted }

func (e TokenMinted) Event() *types.Event {
	attrs := map[string]string{
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenMinted, Attributes: attrs}
}

type TokenBurned struct {
	From   [20]byte
	Amount *big.Int
	Reason string
}

func (TokenBurned) EventType() string { return TypeTokenBurned }

func (e TokenBurned) Event() *types.Event {
	attrs := map[string]string{
		"from":   formatAddress(e.From),
		"amount": formatAmount(e.Amount),
	}
	if reason := strings.TrimSpace(e.Reason); reason != "" {
		attrs["reason"] = reason
	}
	return &types.Event{Type: TypeTokenBurned, Attributes: attrs}
}

// TokenOwnershipTransferred is emitted when the mint authority changes hands.
// A zero NewOwner means ownership was renounced.
type TokenOwnershipTransferred struct {
	PreviousOwner [20]byte
	NewOwner      [20]byte
}

func (TokenOwnershipTransferred) EventType() string { return TypeTokenOwnershipTransferred }

func (e TokenOwnershipTransferred) Event() *types.Event {
	attrs := map[string]string{}
	if !zeroAddress(e.PreviousOwner) {
		attrs["previousOwner"] = formatAddress(e.PreviousOwner)
	}
	if !zeroAddress(e.NewOwner) {
		attrs["newOwner"] = formatAddress(e.NewOwner)
	}
	return &types.Event{Type: TypeTokenOwnershipTransferred, Attributes: attrs}
}
