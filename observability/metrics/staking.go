package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics tracks staking engine activity.
type StakingMetrics struct {
	operations   *prometheus.CounterVec
	stakedTokens prometheus.Counter
	released     prometheus.Counter
	rewards      prometheus.Counter
	stakeholders prometheus.Gauge
	tombstones   prometheus.Counter
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the lazily registered staking metrics.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "staking",
				Name:      "operations_total",
				Help:      "Staking operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			stakedTokens: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "staking",
				Name:      "locked_tokens_total",
				Help:      "Cumulative principal locked into stake slots (base units, lossy above 2^53).",
			}),
			released: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "staking",
				Name:      "released_tokens_total",
				Help:      "Cumulative principal released from stake slots (base units, lossy above 2^53).",
			}),
			rewards: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "staking",
				Name:      "rewards_minted_total",
				Help:      "Cumulative staking rewards minted (base units, lossy above 2^53).",
			}),
			stakeholders: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "devtoken",
				Subsystem: "staking",
				Name:      "stakeholders",
				Help:      "Number of accounts registered as stakeholders.",
			}),
			tombstones: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "devtoken",
				Subsystem: "staking",
				Name:      "slots_tombstoned_total",
				Help:      "Stake slots emptied by a full withdrawal.",
			}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.stakedTokens,
			stakingRegistry.released,
			stakingRegistry.rewards,
			stakingRegistry.stakeholders,
			stakingRegistry.tombstones,
		)
	})
	return stakingRegistry
}

// ObserveOperation counts an operation attempt. outcome is "ok" or a rejection reason.
func (m *StakingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *StakingMetrics) ObserveStake(amount *big.Int) {
	if m == nil {
		return
	}
	m.stakedTokens.Add(toFloat(amount))
}

func (m *StakingMetrics) ObserveWithdrawal(principal, reward *big.Int, tombstoned bool) {
	if m == nil {
		return
	}
	m.released.Add(toFloat(principal))
	m.rewards.Add(toFloat(reward))
	if tombstoned {
		m.tombstones.Inc()
	}
}

func (m *StakingMetrics) SetStakeholders(count uint64) {
	if m == nil {
		return
	}
	m.stakeholders.Set(float64(count))
}

func toFloat(v *big.Int) float64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// OperationCounter exposes the counter for one operation and outcome.
func (m *StakingMetrics) OperationCounter(operation, outcome string) prometheus.Counter {
	return m.operations.WithLabelValues(operation, outcome)
}

// StakeholderGauge exposes the registered stakeholder gauge.
func (m *StakingMetrics) StakeholderGauge() prometheus.Gauge {
	return m.stakeholders
}
