package core

import (
	"context"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"devtoken/core/genesis"
	"devtoken/crypto"
	"devtoken/observability/metrics"
	"devtoken/storage"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

// operationCounts collects the OTLP operation counter keyed by
// operation/outcome.
func operationCounts(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "devtoken.node.operations" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value("operation")
				outcome, _ := dp.Attributes.Value("outcome")
				out[op.AsString()+"/"+outcome.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestNodeExportsOperationMetrics(t *testing.T) {
	f := newFixture(t, nil)
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())
	registry := prometheus.NewRegistry()
	nodeMetrics := metrics.NewNodeMetrics(registry, provider)
	f.node.SetMetrics(nodeMetrics)

	ctx := context.Background()
	alice := account(2)
	f.fund(t, alice, 100)
	_, err := f.node.Stake(ctx, alice, big.NewInt(40))
	require.NoError(t, err)
	_, err = f.node.Stake(ctx, alice, big.NewInt(1_000))
	require.Error(t, err)
	_, err = f.node.Balance(ctx, alice)
	require.NoError(t, err)

	counts := operationCounts(t, reader)
	require.Equal(t, int64(1), counts["transfer/ok"])
	require.Equal(t, int64(1), counts["stake/ok"])
	require.Equal(t, int64(1), counts["stake/rejected"])
	require.Equal(t, int64(1), counts["balance/ok"])

	require.Equal(t, float64(1), counterValue(t, nodeMetrics.OperationCounter("stake", metrics.OutcomeRejected)))
	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	require.Contains(t, names, "devtoken_node_operation_duration_seconds")
}

func TestFailedCommitIsNotCountedAsStake(t *testing.T) {
	db := &failingDB{Database: storage.NewMemDB()}
	f := newFixture(t, db)
	nodeMetrics := metrics.NewNodeMetrics(prometheus.NewRegistry(), nil)
	f.node.SetMetrics(nodeMetrics)
	ctx := context.Background()
	alice := account(2)
	f.fund(t, alice, 500)

	okStakes := metrics.Staking().OperationCounter("stake", "ok")
	before := counterValue(t, okStakes)

	db.fail = true
	_, err := f.node.Stake(ctx, alice, big.NewInt(200))
	require.Error(t, err)
	require.Equal(t, before, counterValue(t, okStakes))
	require.Equal(t, float64(1), counterValue(t, nodeMetrics.OperationCounter("stake", metrics.OutcomeCommitFailed)))

	db.fail = false
	_, err = f.node.Stake(ctx, alice, big.NewInt(200))
	require.NoError(t, err)
	require.Equal(t, before+1, counterValue(t, okStakes))
}

func TestStakeholderGaugeSurvivesRestart(t *testing.T) {
	db := storage.NewMemDB()
	f := newFixture(t, db)
	ctx := context.Background()
	for _, b := range []byte{2, 3, 4} {
		f.fund(t, account(b), 10)
		_, err := f.node.Stake(ctx, account(b), big.NewInt(5))
		require.NoError(t, err)
	}
	gauge := metrics.Staking().StakeholderGauge()
	require.Equal(t, float64(3), gaugeValue(t, gauge))

	metrics.Staking().SetStakeholders(0)

	// Reopening the same database seeds the gauge from the registry even
	// though genesis is skipped.
	restarted := NewNode(db)
	plan, err := genesis.Default(crypto.FromArray(f.owner)).Resolve()
	require.NoError(t, err)
	applied, err := restarted.ApplyGenesis(ctx, plan)
	require.NoError(t, err)
	require.False(t, applied)
	require.Equal(t, float64(3), gaugeValue(t, gauge))
}
