package staking

import "errors"

// Errors returned by the staking engine. Callers match them with errors.Is;
// wrapped variants carry additional context.
var (
	ErrInvalidAmount       = errors.New("staking: amount must be positive")
	ErrInsufficientBalance = errors.New("staking: cannot stake more than you own")
	ErrSlotNotFound        = errors.New("staking: stake slot not found")
	ErrNotOwner            = errors.New("staking: stake slot not owned by caller")
	ErrInsufficientStake   = errors.New("staking: withdrawal exceeds staked amount")
	ErrZeroAddress         = errors.New("staking: zero address cannot stake")
	ErrAmountOverflow      = errors.New("staking: amount exceeds 256 bits")

	errNilState       = errors.New("staking engine: state not configured")
	errNilLedger      = errors.New("staking engine: ledger not configured")
	errTombstoned     = errors.New("staking: slot is tombstoned")
	errMissingSlot    = errors.New("staking: stake collection is corrupt")
	errNegativeAmount = errors.New("staking: negative amount")
)

// Reason returns a stable, lower-case identifier for err suitable for metric
// labels and API error codes. Unknown errors map to "internal".
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, errNegativeAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrSlotNotFound):
		return "slot_not_found"
	case errors.Is(err, ErrNotOwner), errors.Is(err, errTombstoned):
		return "not_owner"
	case errors.Is(err, ErrInsufficientStake):
		return "insufficient_stake"
	case errors.Is(err, ErrZeroAddress):
		return "zero_address"
	case errors.Is(err, ErrAmountOverflow):
		return "amount_overflow"
	default:
		return "internal"
	}
}
