package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"devtoken/core/events"
	"devtoken/core/genesis"
	nodestate "devtoken/core/state"
	"devtoken/native/staking"
	"devtoken/native/token"
	"devtoken/observability"
	"devtoken/observability/metrics"
	"devtoken/storage"
)

var errNilPlan = errors.New("core: genesis plan required")

// Node is the central controller. It owns the state journal, the token
// ledger and the staking engine, and applies every call as one atomic
// operation: the state commits in full or not at all, and events are
// published only after a successful commit.
type Node struct {
	mu        sync.Mutex
	state     *nodestate.Manager
	ledger    *token.Ledger
	staking   *staking.Engine
	buffer    *events.Buffer
	publisher events.Publisher
	clock     func() time.Time
	current   int64
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *metrics.NodeMetrics
}

// NewNode wires the ledger and staking engine on top of db.
func NewNode(db storage.Database) *Node {
	n := &Node{
		state:   nodestate.NewManager(db),
		ledger:  token.NewLedger(),
		buffer:  &events.Buffer{},
		clock:   time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer("devtoken/core"),
		metrics: metrics.Node(),
	}
	n.ledger.SetState(n.state)
	n.ledger.SetEmitter(n.buffer)

	n.staking = staking.NewEngine()
	n.staking.SetState(n.state)
	n.staking.SetLedger(n.ledger)
	n.staking.SetEmitter(n.buffer)
	n.staking.SetNowFunc(func() int64 { return n.current })
	return n
}

// SetPublisher configures where committed events are delivered.
func (n *Node) SetPublisher(publisher events.Publisher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.publisher = publisher
}

// SetClock overrides the time source; tests use it to move time forward.
func (n *Node) SetClock(clock func() time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if clock == nil {
		clock = time.Now
	}
	n.clock = clock
}

// SetMetrics replaces the operation metrics, e.g. with a private registry.
func (n *Node) SetMetrics(m *metrics.NodeMetrics) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if m == nil {
		m = metrics.Node()
	}
	n.metrics = m
}

func (n *Node) SetLogger(logger *slog.Logger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if logger == nil {
		logger = slog.Default()
	}
	n.logger = logger
	n.ledger.SetLogger(logger)
	n.staking.SetLogger(logger)
}

func (n *Node) begin(ctx context.Context, operation string) (context.Context, trace.Span, error) {
	ctx, span := n.tracer.Start(ctx, "node."+operation,
		trace.WithAttributes(attribute.String("devtoken.operation", operation)))
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return ctx, nil, err
	}
	n.current = n.clock().Unix()
	return ctx, span, nil
}

// execute runs fn against the journal under the node lock. now is read once
// per call so every step of the operation observes the same time.
func (n *Node) execute(ctx context.Context, operation string, fn func() error) error {
	return n.executeThen(ctx, operation, fn, nil)
}

// executeThen is execute with a hook that runs under the lock after the
// operation committed, or after a successful call that wrote nothing.
func (n *Node) executeThen(ctx context.Context, operation string, fn func() error, committed func()) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() { n.metrics.ObserveOperation(ctx, operation, outcome, time.Since(start)) }()

	ctx, span, err := n.begin(ctx, operation)
	if err != nil {
		outcome = metrics.OutcomeCanceled
		return err
	}
	defer span.End()

	n.buffer.Reset()
	if err := fn(); err != nil {
		n.rollback()
		span.SetStatus(codes.Error, err.Error())
		outcome = metrics.OutcomeRejected
		return err
	}
	if n.state.Pending() == 0 {
		n.buffer.Reset()
		if committed != nil {
			committed()
		}
		return nil
	}

	seq, err := n.state.Sequence()
	if err == nil {
		seq++
		err = n.state.PutSequence(seq)
	}
	if err == nil {
		err = n.state.Commit()
	}
	if err != nil {
		n.rollback()
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		n.logger.Error("state commit failed",
			slog.String("component", "node"),
			slog.String("operation", operation),
			slog.Any("error", err))
		outcome = metrics.OutcomeCommitFailed
		return fmt.Errorf("core: commit %s: %w", operation, err)
	}
	if committed != nil {
		committed()
	}

	records := events.Seal(seq, n.current, n.buffer.Events())
	n.buffer.Reset()
	span.SetAttributes(attribute.Int64("devtoken.sequence", int64(seq)), attribute.Int("devtoken.events", len(records)))
	if n.publisher != nil && len(records) > 0 {
		n.publisher.Publish(ctx, records)
	}
	for _, rec := range records {
		observability.Events().RecordPublished(rec.Event.Type)
	}
	return nil
}

func (n *Node) rollback() {
	n.state.Discard()
	n.buffer.Reset()
}

// query runs a read-only fn under the node lock.
func (n *Node) query(ctx context.Context, operation string, fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	start := time.Now()
	outcome := metrics.OutcomeOK
	defer func() { n.metrics.ObserveOperation(ctx, operation, outcome, time.Since(start)) }()

	_, span, err := n.begin(ctx, operation)
	if err != nil {
		outcome = metrics.OutcomeCanceled
		return err
	}
	defer span.End()
	if err := fn(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		outcome = metrics.OutcomeRejected
		return err
	}
	return nil
}

func (n *Node) syncStakeholders() {
	if err := n.staking.SyncStakeholders(); err != nil {
		n.logger.Warn("stakeholder gauge not updated",
			slog.String("component", "node"),
			slog.Any("error", err))
	}
}

// Stake locks amount of caller's balance into a new stake slot.
func (n *Node) Stake(ctx context.Context, caller [20]byte, amount *big.Int) (*staking.Receipt, error) {
	var receipt *staking.Receipt
	err := n.executeThen(ctx, "stake", func() error {
		var err error
		receipt, err = n.staking.Stake(caller, amount)
		return err
	}, func() {
		if err := n.staking.ObserveCommittedStake(receipt); err != nil {
			n.logger.Warn("stake metrics not updated", slog.String("component", "node"), slog.Any("error", err))
		}
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// Withdraw releases amount of principal plus accrued reward from slot.
func (n *Node) Withdraw(ctx context.Context, caller [20]byte, amount *big.Int, slot uint64) (*staking.Withdrawal, error) {
	var withdrawal *staking.Withdrawal
	err := n.executeThen(ctx, "withdraw", func() error {
		var err error
		withdrawal, err = n.staking.Withdraw(caller, amount, slot)
		return err
	}, func() {
		n.staking.ObserveCommittedWithdrawal(withdrawal)
	})
	if err != nil {
		return nil, err
	}
	return withdrawal, nil
}

func (n *Node) HasStake(ctx context.Context, addr [20]byte) (*staking.Summary, error) {
	var summary *staking.Summary
	err := n.query(ctx, "hasStake", func() error {
		var err error
		summary, err = n.staking.HasStake(addr)
		return err
	})
	return summary, err
}

func (n *Node) RegistryIndexOf(ctx context.Context, addr [20]byte) (uint64, error) {
	var index uint64
	err := n.query(ctx, "registryIndexOf", func() error {
		var err error
		index, err = n.staking.RegistryIndexOf(addr)
		return err
	})
	return index, err
}

func (n *Node) Balance(ctx context.Context, addr [20]byte) (*big.Int, error) {
	var balance *big.Int
	err := n.query(ctx, "balance", func() error {
		var err error
		balance, err = n.ledger.BalanceOf(addr)
		return err
	})
	return balance, err
}

func (n *Node) TokenInfo(ctx context.Context) (*token.Info, error) {
	var info *token.Info
	err := n.query(ctx, "tokenInfo", func() error {
		var err error
		info, err = n.ledger.Info()
		return err
	})
	return info, err
}

func (n *Node) Allowance(ctx context.Context, owner, spender [20]byte) (*big.Int, error) {
	var allowance *big.Int
	err := n.query(ctx, "allowance", func() error {
		var err error
		allowance, err = n.ledger.Allowance(owner, spender)
		return err
	})
	return allowance, err
}

func (n *Node) Transfer(ctx context.Context, from, to [20]byte, amount *big.Int) error {
	return n.execute(ctx, "transfer", func() error {
		return n.ledger.Transfer(from, to, amount)
	})
}

func (n *Node) Approve(ctx context.Context, owner, spender [20]byte, amount *big.Int) error {
	return n.execute(ctx, "approve", func() error {
		return n.ledger.Approve(owner, spender, amount)
	})
}

func (n *Node) TransferFrom(ctx context.Context, spender, from, to [20]byte, amount *big.Int) error {
	return n.execute(ctx, "transferFrom", func() error {
		return n.ledger.TransferFrom(spender, from, to, amount)
	})
}

func (n *Node) Mint(ctx context.Context, caller, to [20]byte, amount *big.Int) error {
	return n.execute(ctx, "mint", func() error {
		return n.ledger.Mint(caller, to, amount)
	})
}

func (n *Node) Burn(ctx context.Context, caller, from [20]byte, amount *big.Int) error {
	return n.execute(ctx, "burn", func() error {
		return n.ledger.Burn(caller, from, amount)
	})
}

func (n *Node) TransferOwnership(ctx context.Context, caller, newOwner [20]byte) error {
	return n.execute(ctx, "transferOwnership", func() error {
		return n.ledger.TransferOwnership(caller, newOwner)
	})
}

func (n *Node) RenounceOwnership(ctx context.Context, caller [20]byte) error {
	return n.execute(ctx, "renounceOwnership", func() error {
		return n.ledger.RenounceOwnership(caller)
	})
}

// ApplyGenesis initialises the token and mints the allocations in plan. It
// reports false without changes when the state was already initialised.
func (n *Node) ApplyGenesis(ctx context.Context, plan *genesis.Plan) (bool, error) {
	if plan == nil {
		return false, errNilPlan
	}
	applied := false
	err := n.executeThen(ctx, "genesis", func() error {
		existing, err := n.state.TokenMetadata()
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		if err := n.ledger.Initialize(plan.Metadata, plan.Owner); err != nil {
			return err
		}
		for _, alloc := range plan.Allocations {
			if err := n.ledger.MintGenesis(alloc.Address, alloc.Amount); err != nil {
				return fmt.Errorf("genesis allocation: %w", err)
			}
		}
		applied = true
		return nil
	}, n.syncStakeholders)
	if err != nil {
		return false, err
	}
	if applied {
		n.logger.Info("genesis applied",
			slog.String("component", "node"),
			slog.String("symbol", plan.Metadata.Symbol),
			slog.Int("allocations", len(plan.Allocations)),
			slog.String("supply", plan.Total().String()))
	}
	return applied, nil
}

// Fingerprint returns the BLAKE3 digest of all committed state writes.
func (n *Node) Fingerprint(ctx context.Context) ([32]byte, error) {
	var digest [32]byte
	err := n.query(ctx, "fingerprint", func() error {
		var err error
		digest, err = n.state.Fingerprint()
		return err
	})
	return digest, err
}

// Sequence returns the number of committed operations.
func (n *Node) Sequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := n.query(ctx, "sequence", func() error {
		var err error
		seq, err = n.state.Sequence()
		return err
	})
	return seq, err
}
