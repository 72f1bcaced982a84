package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaimableIsLinearInWholeHours(t *testing.T) {
	const t0 = int64(1_700_000_000)
	amounts := []int64{0, 1, 999, 1000, 12_345, 1_000_000}
	for _, amount := range amounts {
		for hours := int64(0); hours <= 100; hours += 7 {
			got := Claimable(big.NewInt(amount), t0, t0+hours*RewardPeriodSeconds)
			want := amount * hours / 1000
			require.Equalf(t, want, got.Int64(), "amount=%d hours=%d", amount, hours)
		}
	}
}

func TestClaimableIgnoresPartialHours(t *testing.T) {
	amount := big.NewInt(100_000)
	require.Zero(t, Claimable(amount, 0, RewardPeriodSeconds-1).Sign())
	require.Equal(t, int64(100), Claimable(amount, 0, RewardPeriodSeconds).Int64())
	require.Equal(t, int64(100), Claimable(amount, 0, 2*RewardPeriodSeconds-1).Int64())
}

func TestClaimableClampsFutureSince(t *testing.T) {
	require.Zero(t, Claimable(big.NewInt(1_000_000), 10_000, 0).Sign())
	require.Zero(t, Claimable(big.NewInt(1_000_000), 10_000, 10_000).Sign())
	require.Zero(t, PeriodsElapsed(50, 10))
}

func TestClaimableRejectsEmptyAmounts(t *testing.T) {
	require.Zero(t, Claimable(nil, 0, 100*RewardPeriodSeconds).Sign())
	require.Zero(t, Claimable(big.NewInt(-5), 0, 100*RewardPeriodSeconds).Sign())
}

func TestClaimableScenarioValues(t *testing.T) {
	const t0 = int64(1_000)
	twentyHours := int64(72_000)
	require.Equal(t, int64(2), Claimable(big.NewInt(100), t0, t0+twentyHours).Int64())
	require.Equal(t, int64(4), Claimable(big.NewInt(100), t0, t0+2*twentyHours).Int64())
	require.Equal(t, int64(20), Claimable(big.NewInt(1000), t0+twentyHours, t0+2*twentyHours).Int64())
}

func TestClaimableHandlesWideAmounts(t *testing.T) {
	// 50,000 tokens with 18 decimals, one year of hours.
	amount, ok := new(big.Int).SetString("50000000000000000000000", 10)
	require.True(t, ok)
	hours := int64(24 * 365)
	got := Claimable(amount, 0, hours*RewardPeriodSeconds)

	want := new(big.Int).Mul(amount, big.NewInt(hours))
	want.Quo(want, big.NewInt(1000))
	require.Zero(t, want.Cmp(got))
}
