package staking

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/holiman/uint256"

	"devtoken/core/events"
	"devtoken/observability/metrics"
)

const (
	operationStake    = "stake"
	operationWithdraw = "withdraw"
)

// Ledger is the token ledger collaborator. Lock removes funds from the
// spendable balance (burn), Release returns locked principal (mint) and
// MintReward credits newly issued reward.
type Ledger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Lock(addr [20]byte, amount *big.Int) error
	Release(addr [20]byte, amount *big.Int) error
	MintReward(addr [20]byte, amount *big.Int) error
}

type engineState interface {
	registryState
	storeState
}

// Engine wires stake creation, withdrawal and inspection with the registry,
// the record store, the token ledger and event emission. It assumes callers
// serialise mutating requests; it performs no locking of its own.
type Engine struct {
	state    engineState
	registry *Registry
	store    *Store
	ledger   Ledger
	emitter  events.Emitter
	nowFn    func() int64
	logger   *slog.Logger
	metrics  *metrics.StakingMetrics
}

// NewEngine constructs a staking engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
		logger:  slog.Default(),
		metrics: metrics.Staking(),
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	e.registry = NewRegistry(state)
	e.store = NewStore(state)
}

// SetLedger configures the token ledger used to lock and release funds.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetLogger configures the structured logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	e.logger = logger
}

// Registry exposes the stakeholder registry bound to the engine state.
func (e *Engine) Registry() *Registry { return e.registry }

// Store exposes the stake record store bound to the engine state.
func (e *Engine) Store() *Store { return e.store }

func (e *Engine) emit(evt events.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.ledger == nil {
		return errNilLedger
	}
	return nil
}

func (e *Engine) reject(operation string, err error) error {
	e.metrics.ObserveOperation(operation, Reason(err))
	e.log().Debug("staking request rejected",
		slog.String("component", "staking"),
		slog.String("operation", operation),
		slog.String("reason", Reason(err)))
	return err
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// Stake locks amount from caller's balance into a new stake slot. The caller
// is registered as a stakeholder on first use. The returned receipt carries the
// new slot position and the caller's registry index.
func (e *Engine) Stake(caller [20]byte, amount *big.Int) (*Receipt, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, e.reject(operationStake, ErrInvalidAmount)
	}
	if isZeroAddress(caller) {
		return nil, e.reject(operationStake, ErrZeroAddress)
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return nil, e.reject(operationStake, ErrAmountOverflow)
	}
	balance, err := e.ledger.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if balance == nil || balance.Cmp(amount) < 0 {
		return nil, e.reject(operationStake, ErrInsufficientBalance)
	}

	now := e.now()
	if err := e.ledger.Lock(caller, amount); err != nil {
		return nil, fmt.Errorf("staking: lock funds: %w", err)
	}
	index, created, err := e.registry.RegisterIfAbsent(caller)
	if err != nil {
		return nil, err
	}
	slot, err := e.store.Append(caller, amount, now)
	if err != nil {
		return nil, err
	}

	e.emit(events.StakeStaked{
		Account: caller,
		Amount:  new(big.Int).Set(amount),
		Index:   index,
		Slot:    slot,
		Since:   now,
	})
	e.log().Debug("stake created",
		slog.String("component", "staking"),
		slog.Uint64("index", index),
		slog.Bool("newStakeholder", created),
		slog.Uint64("slot", slot),
		slog.String("amount", amount.String()))

	return &Receipt{Slot: slot, Index: index, Amount: new(big.Int).Set(amount), Since: now}, nil
}

// Withdraw releases amount of principal from the caller's slot together with
// the reward accrued on the slot's full balance since its timer last started.
// The timer restarts on every withdrawal; withdrawing the remaining balance
// tombstones the slot. A zero amount claims the reward alone.
func (e *Engine) Withdraw(caller [20]byte, amount *big.Int, slot uint64) (*Withdrawal, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, e.reject(operationWithdraw, ErrInvalidAmount)
	}
	stake, err := e.store.Get(caller, slot)
	if err != nil {
		return nil, e.reject(operationWithdraw, err)
	}
	if !stake.Active() || stake.Owner != caller {
		return nil, e.reject(operationWithdraw, ErrNotOwner)
	}
	if stake.Amount.Cmp(amount) < 0 {
		return nil, e.reject(operationWithdraw, ErrInsufficientStake)
	}

	now := e.now()
	reward := Claimable(stake.Amount, stake.Since, now)
	remaining := new(big.Int).Sub(stake.Amount, amount)

	if reward.Sign() > 0 {
		if err := e.ledger.MintReward(caller, reward); err != nil {
			return nil, fmt.Errorf("staking: mint reward: %w", err)
		}
	}
	if amount.Sign() > 0 {
		if err := e.ledger.Release(caller, amount); err != nil {
			return nil, fmt.Errorf("staking: release principal: %w", err)
		}
	}
	if err := e.store.Update(caller, slot, remaining, now); err != nil {
		return nil, err
	}

	tombstoned := remaining.Sign() == 0
	e.emit(events.StakeWithdrawn{
		Account:    caller,
		Slot:       slot,
		Amount:     new(big.Int).Set(amount),
		Reward:     new(big.Int).Set(reward),
		Remaining:  new(big.Int).Set(remaining),
		Tombstoned: tombstoned,
	})
	e.log().Debug("stake withdrawn",
		slog.String("component", "staking"),
		slog.Uint64("slot", slot),
		slog.String("amount", amount.String()),
		slog.String("reward", reward.String()),
		slog.Bool("tombstoned", tombstoned))

	return &Withdrawal{
		Slot:       slot,
		Principal:  new(big.Int).Set(amount),
		Reward:     reward,
		Remaining:  remaining,
		Tombstoned: tombstoned,
	}, nil
}

// ObserveCommittedStake records a stake in the metrics. Callers invoke it
// once the state holding the receipt has been committed.
func (e *Engine) ObserveCommittedStake(receipt *Receipt) error {
	if receipt == nil {
		return nil
	}
	e.metrics.ObserveOperation(operationStake, "ok")
	e.metrics.ObserveStake(receipt.Amount)
	return e.SyncStakeholders()
}

// ObserveCommittedWithdrawal records a committed withdrawal in the metrics.
func (e *Engine) ObserveCommittedWithdrawal(w *Withdrawal) {
	if w == nil {
		return
	}
	e.metrics.ObserveOperation(operationWithdraw, "ok")
	e.metrics.ObserveWithdrawal(w.Principal, w.Reward, w.Tombstoned)
}

// SyncStakeholders sets the stakeholder gauge from the registry counter.
func (e *Engine) SyncStakeholders() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	count, err := e.registry.Count()
	if err != nil {
		return err
	}
	e.metrics.SetStakeholders(count)
	return nil
}

// HasStake returns every slot of addr with its current claimable reward and
// the total principal still locked. It does not mutate state.
func (e *Engine) HasStake(addr [20]byte) (*Summary, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	now := e.now()
	summary := &Summary{Address: addr, TotalAmount: big.NewInt(0), Stakes: []SlotSummary{}}
	for entry, err := range e.store.Summarize(addr, now) {
		if err != nil {
			return nil, err
		}
		if entry.Stake.Active() {
			summary.TotalAmount.Add(summary.TotalAmount, entry.Stake.Amount)
		}
		summary.Stakes = append(summary.Stakes, entry)
	}
	return summary, nil
}

// RegistryIndexOf returns the stakeholder index of addr, or 0 if it never staked.
func (e *Engine) RegistryIndexOf(addr [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.registry.IndexOf(addr)
}
