package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Fusion/models"
)

func generateTestCandles(count int) []models.Candle {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, count)
	for i := 0; i < count; i++ {
		base := 100 + float64(i)*0.05 + 2*math.Sin(float64(i)/10)
		out[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      base - 0.1,
			High:      base + 0.3,
			Low:       base - 0.3,
			Close:     base,
			Volume:    1000 + int64(i%50)*10,
		}
	}
	return out
}

func TestSMAMatchesBruteForce(t *testing.T) {
	candles := generateTestCandles(250)
	e := Replay(candles)

	for _, period := range []int{SMAShortPeriod, SMAMidPeriod, SMALongPeriod} {
		got, err := e.SMA(period)
		require.NoError(t, err, "period %d", period)

		var sum float64
		for _, c := range candles[len(candles)-period:] {
			sum += c.Close
		}
		assert.InDelta(t, sum/float64(period), got, 1e-9, "period %d", period)
	}
}

func TestInsufficientDataBeforeWarmup(t *testing.T) {
	e := Replay(generateTestCandles(10))

	_, err := e.SMA(SMAShortPeriod)
	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, SMAShortPeriod, insufficient.Need)
	assert.Equal(t, 10, insufficient.Have)

	_, err = e.RSI()
	require.ErrorAs(t, err, &insufficient)
	_, err = e.MACD()
	require.ErrorAs(t, err, &insufficient)
	_, err = e.Ichimoku()
	require.ErrorAs(t, err, &insufficient)
}

func TestRSIBounds(t *testing.T) {
	e := Replay(generateTestCandles(100))
	rsi, err := e.RSI()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, rsi, 0.0)
	assert.LessOrEqual(t, rsi, 100.0)
}

func TestRSIMonotonicRiseIsHundred(t *testing.T) {
	// Без единого падения средний убыток равен нулю.
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := NewEngine()
	for i := 0; i < 30; i++ {
		price := 100 + float64(i)
		e.Update(models.Candle{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price, High: price + 0.5, Low: price - 0.5, Close: price,
		})
	}
	rsi, err := e.RSI()
	require.NoError(t, err)
	assert.Equal(t, 100.0, rsi)
}

func TestBollingerEnvelope(t *testing.T) {
	e := Replay(generateTestCandles(60))
	bb, err := e.Bollinger()
	require.NoError(t, err)
	assert.Greater(t, bb.Upper, bb.Middle)
	assert.Greater(t, bb.Middle, bb.Lower)

	sma, err := e.SMA(SMAShortPeriod)
	require.NoError(t, err)
	assert.InDelta(t, sma, bb.Middle, 1e-9)
}

func TestStochasticBounds(t *testing.T) {
	e := Replay(generateTestCandles(60))
	st, err := e.Stochastic()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.K, 0.0)
	assert.LessOrEqual(t, st.K, 100.0)
	assert.GreaterOrEqual(t, st.D, 0.0)
	assert.LessOrEqual(t, st.D, 100.0)
}

func TestATRPercentileBounds(t *testing.T) {
	e := Replay(generateTestCandles(120))
	pct, err := e.ATRPercentile()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 1.0)
}

func TestSnapshotNilBeforeWarmup(t *testing.T) {
	shortWindow := Replay(generateTestCandles(30)).Snapshot()
	assert.NotNil(t, shortWindow.SMA20)
	assert.Nil(t, shortWindow.SMA50)
	assert.Nil(t, shortWindow.SMA200)
	assert.Nil(t, shortWindow.MACD)
	assert.Nil(t, shortWindow.Ichimoku)

	full := Replay(generateTestCandles(250)).Snapshot()
	assert.NotNil(t, full.SMA200)
	assert.NotNil(t, full.MACD)
	assert.NotNil(t, full.Bollinger)
	assert.NotNil(t, full.ATR)
	assert.NotNil(t, full.Stochastic)
	assert.NotNil(t, full.ADX)
	assert.NotNil(t, full.Ichimoku)
}

func TestIchimokuSpanA(t *testing.T) {
	e := Replay(generateTestCandles(120))
	ich, err := e.Ichimoku()
	require.NoError(t, err)
	assert.InDelta(t, (ich.Conversion+ich.Base)/2, ich.SpanA, 1e-9)
}

func TestSlidingSMASurvivesRingEviction(t *testing.T) {
	// Больше окна кольца: старые бары вытесняются, суммы не расходятся.
	candles := generateTestCandles(400)
	e := Replay(candles)

	got, err := e.SMA(SMAShortPeriod)
	require.NoError(t, err)

	var sum float64
	for _, c := range candles[len(candles)-SMAShortPeriod:] {
		sum += c.Close
	}
	assert.InDelta(t, sum/SMAShortPeriod, got, 1e-8)
}
