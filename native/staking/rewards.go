package staking

import "math/big"

const (
	// RewardPeriodSeconds is the accrual granularity. Partial periods earn nothing.
	RewardPeriodSeconds = 3600
	// RewardRateNumerator and RewardRateDenominator express the 0.1% hourly rate.
	RewardRateNumerator   = 1
	RewardRateDenominator = 1000
)

var (
	rewardNumerator   = big.NewInt(RewardRateNumerator)
	rewardDenominator = big.NewInt(RewardRateDenominator)
)

// PeriodsElapsed returns the number of whole reward periods between since and
// now. A timestamp in the future yields zero.
func PeriodsElapsed(since, now int64) int64 {
	if now <= since {
		return 0
	}
	return (now - since) / RewardPeriodSeconds
}

// Claimable computes the simple, non-compounding reward accrued by amount
// between since and now:
//
//	floor(amount * periods * numerator / denominator)
//
// Nil or non-positive amounts accrue nothing.
func Claimable(amount *big.Int, since, now int64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	periods := PeriodsElapsed(since, now)
	if periods == 0 {
		return big.NewInt(0)
	}
	reward := new(big.Int).Mul(amount, big.NewInt(periods))
	reward.Mul(reward, rewardNumerator)
	return reward.Quo(reward, rewardDenominator)
}
