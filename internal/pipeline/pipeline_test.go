package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Fusion/internal/ensemble"
	"github.com/Alias1177/Fusion/internal/fusion"
	"github.com/Alias1177/Fusion/internal/manipulation"
	"github.com/Alias1177/Fusion/internal/risk"
	"github.com/Alias1177/Fusion/models"
)

// fakeProvider serves deterministic synthetic bars per timeframe and can
// be told to fail selected timeframes.
type fakeProvider struct {
	fail map[models.Timeframe]bool
}

func (f *fakeProvider) GetCandles(_ context.Context, _ string, tf models.Timeframe, count int) ([]models.Candle, error) {
	if f.fail[tf] {
		return nil, errors.New("provider unavailable")
	}
	return generateTestCandles(tf, count), nil
}

// generateTestCandles builds a gently trending window with a sine
// overlay, the same shape the indicator tests use.
func generateTestCandles(tf models.Timeframe, count int) []models.Candle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, count)
	for i := 0; i < count; i++ {
		base := 100 + float64(i)*0.05 + 2*math.Sin(float64(i)/10)
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * tf.Duration()),
			Open:      base - 0.1,
			High:      base + 0.3,
			Low:       base - 0.3,
			Close:     base,
			Volume:    1000 + int64(i%100)*10,
		}
	}
	return out
}

func newTestPipeline(provider models.MarketDataProvider) *Pipeline {
	predictor := ensemble.NewPredictor(ensemble.NewRegistry(42))
	detector := manipulation.New(manipulation.DefaultConfig())
	fuser := fusion.NewEngine(fusion.DefaultConfig(), fusion.DefaultWeights())
	riskMgr := risk.NewManager(risk.DefaultConfig(), models.RiskProfile{
		Equity:          10000,
		MaxRiskPerTrade: 0.01,
		MaxPositionSize: 0.10,
	}, nil)
	return New(provider, predictor, detector, fuser, riskMgr)
}

func TestEvaluateAllTimeframes(t *testing.T) {
	p := newTestPipeline(&fakeProvider{})

	eval, err := p.Evaluate(context.Background(), "EUR/USD")
	require.NoError(t, err)
	require.NotNil(t, eval.Signal)

	assert.Empty(t, eval.Degraded)
	assert.NotEmpty(t, eval.Signal.ID)
	assert.Equal(t, "EUR/USD", eval.Signal.Symbol)
	for _, tf := range models.AllTimeframes() {
		assert.NotNil(t, eval.Signal.PerTimeframe.Get(tf), tf.String())
	}
}

func TestEvaluateDegradedTimeframeExcluded(t *testing.T) {
	p := newTestPipeline(&fakeProvider{fail: map[models.Timeframe]bool{
		models.TimeframeH4: true,
	}})

	eval, err := p.Evaluate(context.Background(), "EUR/USD")
	require.NoError(t, err)

	assert.Equal(t, []models.Timeframe{models.TimeframeH4}, eval.Degraded)
	assert.Nil(t, eval.Signal.PerTimeframe.Get(models.TimeframeH4))
	assert.NotNil(t, eval.Signal.PerTimeframe.Get(models.TimeframeH1))
}

func TestEvaluateNoUsableTimeframe(t *testing.T) {
	fail := map[models.Timeframe]bool{}
	for _, tf := range models.AllTimeframes() {
		fail[tf] = true
	}
	p := newTestPipeline(&fakeProvider{fail: fail})

	_, err := p.Evaluate(context.Background(), "EUR/USD")
	var noSignal *models.NoSignalError
	require.ErrorAs(t, err, &noSignal)
}

func TestEvaluateRepeatTicksReuseWindow(t *testing.T) {
	p := newTestPipeline(&fakeProvider{})

	first, err := p.Evaluate(context.Background(), "EUR/USD")
	require.NoError(t, err)
	// Второй тик видит те же бары: провайдер отдаёт перекрывающийся ответ.
	second, err := p.Evaluate(context.Background(), "EUR/USD")
	require.NoError(t, err)

	assert.Equal(t, first.Signal.Overall.Direction, second.Signal.Overall.Direction)
}

func TestEvaluateSizingPresentForDirectionalSignal(t *testing.T) {
	p := newTestPipeline(&fakeProvider{})

	eval, err := p.Evaluate(context.Background(), "EUR/USD")
	require.NoError(t, err)

	if eval.Signal.Overall.Direction == models.DirectionNeutral {
		assert.Nil(t, eval.Sizing)
		return
	}
	require.NotNil(t, eval.Sizing)
	assert.Greater(t, eval.Sizing.PositionSize, 0.0)
	assert.NotEqual(t, eval.Sizing.StopLoss, eval.Sizing.EntryPrice)
}
