package token

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/holiman/uint256"

	"devtoken/core/events"
	"devtoken/observability"
)

type ledgerState interface {
	TokenMetadata() (*Metadata, error)
	PutTokenMetadata(meta *Metadata) error
	TokenOwner() ([20]byte, error)
	PutTokenOwner(owner [20]byte) error
	TotalSupply() (*big.Int, error)
	PutTotalSupply(supply *big.Int) error
	Balance(addr [20]byte) (*big.Int, error)
	PutBalance(addr [20]byte, amount *big.Int) error
	Allowance(owner, spender [20]byte) (*big.Int, error)
	PutAllowance(owner, spender [20]byte, amount *big.Int) error
}

// Ledger implements the fungible token: balances, allowances, owner gated
// supply changes and the lock/release hooks used by staking.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
	logger  *slog.Logger
}

// NewLedger returns a ledger with a no-op emitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}, logger: slog.Default()}
}

func (l *Ledger) SetState(state ledgerState) { l.state = state }

func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	l.emitter = emitter
}

func (l *Ledger) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	l.logger = logger
}

func (l *Ledger) emit(evt events.Event) {
	if l.emitter != nil {
		l.emitter.Emit(evt)
	}
}

func (l *Ledger) log() *slog.Logger {
	if l.logger == nil {
		return slog.Default()
	}
	return l.logger
}

func (l *Ledger) ready() error {
	if l == nil || l.state == nil {
		return errNilState
	}
	return nil
}

func isZero(addr [20]byte) bool {
	return addr == [20]byte{}
}

func checkPositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrAmountOverflow
	}
	return nil
}

// Initialize writes the token metadata and assigns the initial owner.
func (l *Ledger) Initialize(meta Metadata, owner [20]byte) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	if isZero(owner) {
		return ErrNewOwnerZero
	}
	existing, err := l.state.TokenMetadata()
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("token %s already initialised", existing.Symbol)
	}
	if err := l.state.PutTokenMetadata(&meta); err != nil {
		return err
	}
	if err := l.state.PutTokenOwner(owner); err != nil {
		return err
	}
	l.emit(events.TokenOwnershipTransferred{NewOwner: owner})
	return nil
}

// Info returns metadata, total supply and owner.
func (l *Ledger) Info() (*Info, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	meta, err := l.state.TokenMetadata()
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("token: not initialised")
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return nil, err
	}
	owner, err := l.state.TokenOwner()
	if err != nil {
		return nil, err
	}
	return &Info{Metadata: *meta, TotalSupply: supply, Owner: owner}, nil
}

func (l *Ledger) Owner() ([20]byte, error) {
	if err := l.ready(); err != nil {
		return [20]byte{}, err
	}
	return l.state.TokenOwner()
}

func (l *Ledger) TotalSupply() (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	supply, err := l.state.TotalSupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// BalanceOf returns the spendable balance of addr. Staked principal is not
// included.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	balance, err := l.state.Balance(addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return big.NewInt(0), nil
	}
	return balance, nil
}

func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}
	allowance, err := l.state.Allowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return big.NewInt(0), nil
	}
	return allowance, nil
}

func (l *Ledger) move(from, to [20]byte, amount *big.Int) error {
	fromBalance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if from == to {
		return nil
	}
	toBalance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := l.state.PutBalance(from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.PutBalance(to, new(big.Int).Add(toBalance, amount))
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if isZero(from) || isZero(to) {
		return ErrTransferZero
	}
	if err := checkPositive(amount); err != nil {
		return err
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	l.emit(events.TokenTransfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	observability.Events().RecordTransfer("transfer")
	return nil
}

// Approve sets the allowance of spender over owner's balance. A zero amount
// revokes it.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if isZero(owner) || isZero(spender) {
		return ErrApproveZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return ErrAmountOverflow
	}
	if err := l.state.PutAllowance(owner, spender, new(big.Int).Set(amount)); err != nil {
		return err
	}
	l.emit(events.TokenApproval{Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
	return nil
}

// TransferFrom moves amount from from to to on behalf of spender, consuming
// the allowance.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if isZero(from) || isZero(to) {
		return ErrTransferZero
	}
	if err := checkPositive(amount); err != nil {
		return err
	}
	allowance, err := l.Allowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrAllowanceExceeded
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if err := l.state.PutAllowance(from, spender, new(big.Int).Sub(allowance, amount)); err != nil {
		return err
	}
	l.emit(events.TokenTransfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	observability.Events().RecordTransfer("transferFrom")
	return nil
}

func (l *Ledger) requireOwner(caller [20]byte) error {
	owner, err := l.state.TokenOwner()
	if err != nil {
		return err
	}
	if isZero(owner) || owner != caller {
		return ErrNotOwner
	}
	return nil
}

func (l *Ledger) mint(to [20]byte, amount *big.Int, reason string) error {
	if isZero(to) {
		return ErrMintZeroAddress
	}
	if err := checkPositive(amount); err != nil {
		return err
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	nextSupply := new(big.Int).Add(supply, amount)
	if _, overflow := uint256.FromBig(nextSupply); overflow {
		return ErrAmountOverflow
	}
	balance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	if err := l.state.PutBalance(to, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	if err := l.state.PutTotalSupply(nextSupply); err != nil {
		return err
	}
	l.emit(events.TokenMinted{To: to, Amount: new(big.Int).Set(amount), Reason: reason})
	observability.Events().RecordSupplyChange("mint", reason, amount)
	return nil
}

func (l *Ledger) burn(from [20]byte, amount *big.Int, reason string) error {
	if isZero(from) {
		return ErrBurnZeroAddress
	}
	if err := checkPositive(amount); err != nil {
		return err
	}
	balance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrBurnExceedsBalance
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	if supply.Cmp(amount) < 0 {
		return fmt.Errorf("token: supply %s below burn amount %s", supply, amount)
	}
	if err := l.state.PutBalance(from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := l.state.PutTotalSupply(new(big.Int).Sub(supply, amount)); err != nil {
		return err
	}
	l.emit(events.TokenBurned{From: from, Amount: new(big.Int).Set(amount), Reason: reason})
	observability.Events().RecordSupplyChange("burn", reason, amount)
	return nil
}

// Mint creates amount new tokens for to. Only the owner may mint.
func (l *Ledger) Mint(caller, to [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	return l.mint(to, amount, "")
}

// Burn destroys amount tokens held by from. Only the owner may burn.
func (l *Ledger) Burn(caller, from [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	return l.burn(from, amount, "")
}

// MintGenesis credits an allocation without the owner check. It is only used
// while applying genesis.
func (l *Ledger) MintGenesis(to [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.mint(to, amount, "genesis")
}

func (l *Ledger) TransferOwnership(caller, newOwner [20]byte) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	if isZero(newOwner) {
		return ErrNewOwnerZero
	}
	return l.setOwner(caller, newOwner)
}

// RenounceOwnership leaves the token without an owner. Mint and Burn are
// permanently disabled afterwards.
func (l *Ledger) RenounceOwnership(caller [20]byte) error {
	if err := l.ready(); err != nil {
		return err
	}
	if err := l.requireOwner(caller); err != nil {
		return err
	}
	return l.setOwner(caller, [20]byte{})
}

func (l *Ledger) setOwner(previous, next [20]byte) error {
	if err := l.state.PutTokenOwner(next); err != nil {
		return err
	}
	l.emit(events.TokenOwnershipTransferred{PreviousOwner: previous, NewOwner: next})
	l.log().Info("token ownership transferred",
		slog.String("component", "token"),
		slog.Bool("renounced", isZero(next)))
	return nil
}

// Lock removes amount from addr's spendable balance and from the supply.
func (l *Ledger) Lock(addr [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.burn(addr, amount, events.SupplyReasonStakeLock)
}

// Release returns previously locked principal to addr.
func (l *Ledger) Release(addr [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.mint(addr, amount, events.SupplyReasonStakeRelease)
}

// MintReward issues accrued staking reward to addr.
func (l *Ledger) MintReward(addr [20]byte, amount *big.Int) error {
	if err := l.ready(); err != nil {
		return err
	}
	return l.mint(addr, amount, events.SupplyReasonStakeReward)
}
