package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Fusion/models"
)

func fptr(v float64) *float64 { return &v }

// mlOnlyInput builds an input with an empty indicator snapshot, so the
// blended score is driven entirely by the ensemble side.
func mlOnlyInput(label models.PredictionLabel, conf float64) *TimeframeInput {
	return &TimeframeInput{
		Indicators: &models.IndicatorSet{},
		Close:      100,
		Ensemble:   &models.EnsemblePrediction{Prediction: label, ConfidenceScore: conf},
	}
}

func TestTechnicalScore(t *testing.T) {
	tests := []struct {
		name  string
		ind   models.IndicatorSet
		close float64
		want  float64
	}{
		{
			name:  "пустой снимок даёт ноль",
			ind:   models.IndicatorSet{},
			close: 100,
			want:  0,
		},
		{
			name: "bullish alignment",
			ind: models.IndicatorSet{
				SMA20: fptr(99), SMA50: fptr(98),
				MACD: &models.MACDValues{Line: 0.5, Signal: 0.2},
			},
			close: 100,
			want:  maWeight + macdWeight,
		},
		{
			name: "oversold reads bullish",
			ind: models.IndicatorSet{
				RSI:       fptr(25),
				Bollinger: &models.BollingerBands{Middle: 102, Upper: 104, Lower: 101},
			},
			close: 100,
			want:  rsiWeight + bollingerWeight,
		},
		{
			name: "strong trend saturates the clamp",
			ind: models.IndicatorSet{
				SMA20: fptr(99), SMA50: fptr(98),
				MACD: &models.MACDValues{Line: 0.5, Signal: 0.2},
				RSI:  fptr(25),
				ADX:  &models.ADXValues{ADX: 60},
			},
			close: 100,
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := technicalScore(&tt.ind, tt.close)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFuseAllTimeframesDown(t *testing.T) {
	e := NewEngine(DefaultConfig(), DefaultWeights())

	var inputs models.TimeframeMap[*TimeframeInput]
	_, err := e.Fuse("EUR/USD", inputs)

	var noSignal *models.NoSignalError
	require.ErrorAs(t, err, &noSignal)
	assert.Equal(t, "EUR/USD", noSignal.Symbol)
}

func TestFuseDirectionFlipNeedsConfirmation(t *testing.T) {
	e := NewEngine(DefaultConfig(), DefaultWeights())

	// Blended scores +0.20, -0.18, +0.30: the single opposite tick must
	// not flip an established direction.
	ticks := []struct {
		label models.PredictionLabel
		conf  float64
		want  models.Direction
	}{
		{models.LabelBullish, 0.40, models.DirectionBuy},
		{models.LabelBearish, 0.36, models.DirectionBuy},
		{models.LabelBullish, 0.60, models.DirectionBuy},
	}

	for i, tick := range ticks {
		var inputs models.TimeframeMap[*TimeframeInput]
		inputs.Set(models.TimeframeD1, mlOnlyInput(tick.label, tick.conf))

		sig, err := e.Fuse("EUR/USD", inputs)
		require.NoError(t, err)
		assert.Equal(t, tick.want, sig.Overall.Direction, "tick %d", i)
	}
}

func TestFuseSustainedFlipGoesThrough(t *testing.T) {
	e := NewEngine(DefaultConfig(), DefaultWeights())

	sequence := []struct {
		label models.PredictionLabel
		want  models.Direction
	}{
		{models.LabelBullish, models.DirectionBuy},
		{models.LabelBearish, models.DirectionBuy},  // first opposite tick held back
		{models.LabelBearish, models.DirectionSell}, // second confirms
	}

	for i, tick := range sequence {
		var inputs models.TimeframeMap[*TimeframeInput]
		inputs.Set(models.TimeframeH1, mlOnlyInput(tick.label, 0.8))

		sig, err := e.Fuse("GBP/USD", inputs)
		require.NoError(t, err)
		assert.Equal(t, tick.want, sig.Overall.Direction, "tick %d", i)
	}
}

func TestAggregateTieIsNeutral(t *testing.T) {
	e := NewEngine(DefaultConfig(), DefaultWeights())

	var perTF models.TimeframeMap[*models.TimeframeSignal]
	// H1 and H4 carry different weights; scale confidences so the votes
	// cancel exactly (0.20*0.5 == 0.25*0.4).
	perTF.Set(models.TimeframeH1, &models.TimeframeSignal{Direction: models.DirectionBuy, Confidence: 0.5})
	perTF.Set(models.TimeframeH4, &models.TimeframeSignal{Direction: models.DirectionSell, Confidence: 0.4})

	overall := e.aggregate(perTF, 0, 0)
	assert.Equal(t, models.DirectionNeutral, overall.Direction)
}

func TestAggregateDisagreementDiscountsConfidence(t *testing.T) {
	e := NewEngine(DefaultConfig(), DefaultWeights())

	var unanimous models.TimeframeMap[*models.TimeframeSignal]
	unanimous.Set(models.TimeframeH1, &models.TimeframeSignal{Direction: models.DirectionBuy, Confidence: 0.8})
	unanimous.Set(models.TimeframeH4, &models.TimeframeSignal{Direction: models.DirectionBuy, Confidence: 0.8})

	var split models.TimeframeMap[*models.TimeframeSignal]
	split.Set(models.TimeframeH1, &models.TimeframeSignal{Direction: models.DirectionNeutral, Confidence: 0.8})
	split.Set(models.TimeframeH4, &models.TimeframeSignal{Direction: models.DirectionBuy, Confidence: 0.8})

	full := e.aggregate(unanimous, 0, 0)
	partial := e.aggregate(split, 0, 0)

	assert.Equal(t, models.DirectionBuy, full.Direction)
	assert.Equal(t, models.DirectionBuy, partial.Direction)
	assert.Greater(t, full.Confidence, partial.Confidence)
	assert.Equal(t, int(full.Confidence*10+0.5), full.Strength)
}

func TestGradeRisk(t *testing.T) {
	tests := []struct {
		name   string
		atrPct float64
		manip  float64
		want   models.RiskLevel
	}{
		{"тихий рынок", 0.2, 0.1, models.RiskLow},
		{"elevated volatility", 0.6, 0.0, models.RiskMedium},
		{"manipulation evidence", 0.2, 0.4, models.RiskMedium},
		{"volatility spike", 0.9, 0.0, models.RiskHigh},
		{"heavy manipulation", 0.1, 0.7, models.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gradeRisk(tt.atrPct, tt.manip))
		})
	}
}
