package token

import "errors"

var (
	ErrInvalidAmount      = errors.New("token: amount must be positive")
	ErrInsufficientFunds  = errors.New("token: cannot transfer more than your account balance")
	ErrAllowanceExceeded  = errors.New("token: you cannot spend that much on this account")
	ErrApproveZeroAddress = errors.New("token: approve cannot be to zero address")
	ErrTransferZero       = errors.New("token: cannot transfer to or from zero address")
	ErrMintZeroAddress    = errors.New("token: cannot mint to zero address")
	ErrBurnZeroAddress    = errors.New("token: cannot burn from zero address")
	ErrBurnExceedsBalance = errors.New("token: burn amount exceeds balance")
	ErrNotOwner           = errors.New("token: caller is not the owner")
	ErrNewOwnerZero       = errors.New("token: new owner is the zero address")
	ErrAmountOverflow     = errors.New("token: amount exceeds 256 bits")

	errNilState = errors.New("token ledger: state not configured")
)

// Reason maps ledger errors to stable identifiers used by metrics and the API.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrBurnExceedsBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrAllowanceExceeded):
		return "allowance_exceeded"
	case errors.Is(err, ErrApproveZeroAddress), errors.Is(err, ErrTransferZero),
		errors.Is(err, ErrMintZeroAddress), errors.Is(err, ErrBurnZeroAddress),
		errors.Is(err, ErrNewOwnerZero):
		return "zero_address"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrAmountOverflow):
		return "amount_overflow"
	default:
		return "internal"
	}
}
