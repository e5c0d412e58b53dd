package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Fusion/models"
)

func testProfile() models.RiskProfile {
	return models.RiskProfile{
		Equity:          10000,
		MaxRiskPerTrade: 0.01,
		MaxPositionSize: 0.10,
	}
}

func buySignal(confidence float64, risk models.RiskLevel) *models.MarketSignal {
	return &models.MarketSignal{
		Symbol: "EUR/USD",
		Overall: models.OverallSignal{
			Direction:  models.DirectionBuy,
			Confidence: confidence,
			RiskLevel:  risk,
		},
	}
}

func TestSizeBuySignal(t *testing.T) {
	m := NewManager(DefaultConfig(), testProfile(), nil)

	// entry 100, ATR 2: stop at 97, target at 105.
	sizing, err := m.Size(buySignal(1.0, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)

	assert.InDelta(t, 97.0, sizing.StopLoss, 1e-9)
	assert.InDelta(t, 105.0, sizing.TakeProfit, 1e-9)
	assert.InDelta(t, 5.0/3.0, sizing.RiskRewardRatio, 1e-9)

	// Risk budget 100 over a 3-point stop asks for 33.3 units, but the
	// 10% exposure cap allows only 10 units at this price.
	assert.InDelta(t, 10.0, sizing.PositionSize, 1e-9)
	assert.InDelta(t, 30.0, sizing.RiskPerTrade, 1e-9)
}

func TestSizeSellSignalMirrors(t *testing.T) {
	m := NewManager(DefaultConfig(), testProfile(), nil)

	sig := buySignal(1.0, models.RiskLow)
	sig.Overall.Direction = models.DirectionSell

	sizing, err := m.Size(sig, 100, 2, nil)
	require.NoError(t, err)
	assert.InDelta(t, 103.0, sizing.StopLoss, 1e-9)
	assert.InDelta(t, 95.0, sizing.TakeProfit, 1e-9)
}

func TestSizeConfidenceNeverGrows(t *testing.T) {
	m := NewManager(DefaultConfig(), testProfile(), nil)

	strong, err := m.Size(buySignal(0.9, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)
	weak, err := m.Size(buySignal(0.5, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)

	assert.Greater(t, strong.PositionSize, weak.PositionSize)
	// Even full confidence never exceeds the raw budget size.
	full, err := m.Size(buySignal(1.0, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, full.PositionSize, strong.PositionSize)
}

func TestSizeHighRiskHalves(t *testing.T) {
	m := NewManager(DefaultConfig(), testProfile(), nil)

	low, err := m.Size(buySignal(1.0, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)
	high, err := m.Size(buySignal(1.0, models.RiskHigh), 100, 2, nil)
	require.NoError(t, err)

	assert.InDelta(t, low.PositionSize*0.5, high.PositionSize, 1e-9)
}

func TestSizeDegenerateInputs(t *testing.T) {
	m := NewManager(DefaultConfig(), testProfile(), nil)

	tests := []struct {
		name  string
		sig   *models.MarketSignal
		entry float64
		atr   float64
	}{
		{"нулевой ATR", buySignal(1.0, models.RiskLow), 100, 0},
		{"negative ATR", buySignal(1.0, models.RiskLow), 100, -1},
		{"zero entry", buySignal(1.0, models.RiskLow), 0, 2},
		{"neutral direction", &models.MarketSignal{Overall: models.OverallSignal{Direction: models.DirectionNeutral}}, 100, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Size(tt.sig, tt.entry, tt.atr, nil)
			var degenerate *models.DegenerateRiskError
			require.ErrorAs(t, err, &degenerate)
		})
	}
}

func TestSizeLevelOverridesTarget(t *testing.T) {
	m := NewManager(DefaultConfig(), testProfile(), nil)

	// Resistance at 104.8 sits below the 105 target and still pays
	// 4.8/3 risk/reward, above the 1.5 floor.
	pred := &models.EnsemblePrediction{ResistanceLevels: []float64{104.8, 106.5}}
	sizing, err := m.Size(buySignal(1.0, models.RiskLow), 100, 2, pred)
	require.NoError(t, err)
	assert.InDelta(t, 104.8, sizing.TakeProfit, 1e-9)
	assert.InDelta(t, 4.8/3.0, sizing.RiskRewardRatio, 1e-9)

	// A level too close to the entry fails the risk/reward floor and the
	// ATR target stays.
	pred = &models.EnsemblePrediction{ResistanceLevels: []float64{103}}
	sizing, err = m.Size(buySignal(1.0, models.RiskLow), 100, 2, pred)
	require.NoError(t, err)
	assert.InDelta(t, 105.0, sizing.TakeProfit, 1e-9)
}

func TestSizePerformanceThrottles(t *testing.T) {
	tracker := NewTracker(252)
	// Twelve losing trades: negative Sharpe over a sufficient sample and
	// a drawdown past the 20% threshold.
	for i := 0; i < 12; i++ {
		r := -0.02
		if i%2 == 0 {
			r = -0.04
		}
		tracker.Record(models.TradeClose{Return: r, PnL: r * 1000})
	}

	throttled := NewManager(DefaultConfig(), testProfile(), tracker)
	plain := NewManager(DefaultConfig(), testProfile(), nil)

	a, err := throttled.Size(buySignal(1.0, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)
	b, err := plain.Size(buySignal(1.0, models.RiskLow), 100, 2, nil)
	require.NoError(t, err)

	assert.Less(t, a.PositionSize, b.PositionSize*0.5+1e-9)
}
