package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"devtoken/native/staking"
	"devtoken/native/token"
	"devtoken/storage"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[0] = b
	return a
}

func TestJournalVisibleBeforeCommit(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)

	require.NoError(t, manager.PutBalance(addr(1), big.NewInt(42)))
	balance, err := manager.Balance(addr(1))
	require.NoError(t, err)
	require.Equal(t, int64(42), balance.Int64())
	require.Equal(t, 0, db.Len())
	require.Equal(t, 1, manager.Pending())

	require.NoError(t, manager.Commit())
	require.Equal(t, 0, manager.Pending())

	fresh := NewManager(db)
	balance, err = fresh.Balance(addr(1))
	require.NoError(t, err)
	require.Equal(t, int64(42), balance.Int64())
}

func TestDiscardDropsStagedWrites(t *testing.T) {
	db := storage.NewMemDB()
	manager := NewManager(db)
	require.NoError(t, manager.PutBalance(addr(1), big.NewInt(5)))
	require.NoError(t, manager.Commit())

	require.NoError(t, manager.PutBalance(addr(1), big.NewInt(99)))
	require.NoError(t, manager.PutStakeholderCount(3))
	manager.Discard()

	balance, err := manager.Balance(addr(1))
	require.NoError(t, err)
	require.Equal(t, int64(5), balance.Int64())
	count, err := manager.StakeholderCount()
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestZeroAmountsAreDeleted(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	require.NoError(t, manager.PutBalance(addr(1), big.NewInt(5)))
	require.NoError(t, manager.Commit())
	require.NoError(t, manager.PutBalance(addr(1), big.NewInt(0)))
	require.NoError(t, manager.Commit())

	balance, err := manager.Balance(addr(1))
	require.NoError(t, err)
	require.Zero(t, balance.Sign())
	require.ErrorIs(t, manager.PutBalance(addr(1), big.NewInt(-1)), errNegativeAmount)
}

func TestTokenRecords(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	meta, err := manager.TokenMetadata()
	require.NoError(t, err)
	require.Nil(t, meta)

	require.NoError(t, manager.PutTokenMetadata(&token.Metadata{Name: "DevToken", Symbol: "DVTK", Decimals: 18}))
	require.NoError(t, manager.PutTokenOwner(addr(7)))
	require.NoError(t, manager.PutTotalSupply(big.NewInt(1000)))
	require.NoError(t, manager.PutAllowance(addr(1), addr(2), big.NewInt(12)))
	require.NoError(t, manager.Commit())

	meta, err = manager.TokenMetadata()
	require.NoError(t, err)
	require.Equal(t, token.DefaultMetadata(), *meta)
	owner, err := manager.TokenOwner()
	require.NoError(t, err)
	require.Equal(t, addr(7), owner)
	allowance, err := manager.Allowance(addr(1), addr(2))
	require.NoError(t, err)
	require.Equal(t, int64(12), allowance.Int64())
	reverse, err := manager.Allowance(addr(2), addr(1))
	require.NoError(t, err)
	require.Zero(t, reverse.Sign())

	require.NoError(t, manager.PutTokenOwner([20]byte{}))
	owner, err = manager.TokenOwner()
	require.NoError(t, err)
	require.Equal(t, [20]byte{}, owner)
}

func TestStakeSlotRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	owner := addr(3)

	_, ok, err := manager.StakeSlot(owner, 0)
	require.NoError(t, err)
	require.False(t, ok)

	active := staking.NewActiveStake(owner, big.NewInt(250), 1_700_000_000)
	require.NoError(t, manager.PutStakeSlot(owner, 0, active))
	tomb := active.Clone()
	tomb.Tombstone(1_700_003_600)
	require.NoError(t, manager.PutStakeSlot(owner, 1, tomb))
	require.NoError(t, manager.PutStakeCount(owner, 2))
	require.NoError(t, manager.Commit())

	got, ok, err := manager.StakeSlot(owner, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, got.Active())
	require.Equal(t, owner, got.Owner)
	require.Equal(t, int64(250), got.Amount.Int64())
	require.Equal(t, int64(1_700_000_000), got.Since)

	got, ok, err = manager.StakeSlot(owner, 1)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, got.Active())
	require.Equal(t, [20]byte{}, got.Owner)
	require.Zero(t, got.Amount.Sign())

	count, err := manager.StakeCount(owner)
	require.NoError(t, err)
	require.Equal(t, uint64(2), count)
}

func TestPutStakeSlotRejectsUnrepresentableValues(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	owner := addr(3)

	early := staking.NewActiveStake(owner, big.NewInt(10), -1)
	require.ErrorIs(t, manager.PutStakeSlot(owner, 0, early), errNegativeSince)
	negative := staking.NewActiveStake(owner, big.NewInt(-10), 5)
	require.ErrorIs(t, manager.PutStakeSlot(owner, 0, negative), errNegativeAmount)
	require.Zero(t, manager.Pending())

	epoch := staking.NewActiveStake(owner, big.NewInt(10), 0)
	require.NoError(t, manager.PutStakeSlot(owner, 0, epoch))
	got, ok, err := manager.StakeSlot(owner, 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Zero(t, got.Since)
}

func TestManagerDrivesStakingEngine(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	ledger := token.NewLedger()
	ledger.SetState(manager)
	require.NoError(t, ledger.Initialize(token.DefaultMetadata(), addr(1)))
	require.NoError(t, ledger.MintGenesis(addr(1), big.NewInt(1000)))

	now := int64(1_000_000)
	engine := staking.NewEngine()
	engine.SetState(manager)
	engine.SetLedger(ledger)
	engine.SetNowFunc(func() int64 { return now })

	receipt, err := engine.Stake(addr(1), big.NewInt(400))
	require.NoError(t, err)
	require.Equal(t, uint64(1), receipt.Index)
	require.NoError(t, manager.Commit())

	now += 10 * staking.RewardPeriodSeconds
	w, err := engine.Withdraw(addr(1), big.NewInt(400), 0)
	require.NoError(t, err)
	require.Equal(t, int64(4), w.Reward.Int64())
	require.True(t, w.Tombstoned)
	require.NoError(t, manager.Commit())

	balance, err := ledger.BalanceOf(addr(1))
	require.NoError(t, err)
	require.Equal(t, int64(1004), balance.Int64())
}

func TestFingerprintTracksCommits(t *testing.T) {
	left := NewManager(storage.NewMemDB())
	right := NewManager(storage.NewMemDB())

	empty, err := left.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, [32]byte{}, empty)

	for _, m := range []*Manager{left, right} {
		require.NoError(t, m.PutBalance(addr(1), big.NewInt(10)))
		require.NoError(t, m.PutStakeholderCount(1))
		require.NoError(t, m.Commit())
	}
	a, err := left.Fingerprint()
	require.NoError(t, err)
	b, err := right.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotEqual(t, [32]byte{}, a)

	require.NoError(t, right.PutBalance(addr(1), big.NewInt(11)))
	staged, err := right.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, a, staged)
	require.NoError(t, right.Commit())
	c, err := right.Fingerprint()
	require.NoError(t, err)
	require.NotEqual(t, a, c)

	// Empty commits leave the fingerprint alone.
	require.NoError(t, left.Commit())
	again, err := left.Fingerprint()
	require.NoError(t, err)
	require.Equal(t, a, again)
}

func TestSequenceCommitsWithWrites(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	seq, err := manager.Sequence()
	require.NoError(t, err)
	require.Zero(t, seq)

	require.NoError(t, manager.PutSequence(1))
	manager.Discard()
	seq, err = manager.Sequence()
	require.NoError(t, err)
	require.Zero(t, seq)

	require.NoError(t, manager.PutSequence(2))
	require.NoError(t, manager.Commit())
	seq, err = manager.Sequence()
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)
}
