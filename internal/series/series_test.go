package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Fusion/models"
)

func bar(ts time.Time, close float64) models.Candle {
	return models.Candle{Timestamp: ts, Open: close, High: close + 0.1, Low: close - 0.1, Close: close}
}

func TestAppendOrdering(t *testing.T) {
	s := New("EUR/USD", models.TimeframeH1, 0)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(bar(start, 100)))
	require.NoError(t, s.Append(bar(start.Add(time.Hour), 101)))

	// Дубликат и откат назад отвергаются.
	assert.Error(t, s.Append(bar(start.Add(time.Hour), 101)))
	assert.Error(t, s.Append(bar(start, 99)))
	assert.Equal(t, 2, s.Len())
}

func TestGapCountedNotFilled(t *testing.T) {
	s := New("EUR/USD", models.TimeframeH1, 0)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Append(bar(start, 100)))
	require.NoError(t, s.Append(bar(start.Add(time.Hour), 101)))
	// Пропуск двух баров: зазор фиксируется, окно не дополняется.
	require.NoError(t, s.Append(bar(start.Add(4*time.Hour), 102)))

	assert.Equal(t, 1, s.Gaps())
	assert.Equal(t, 3, s.Len())
}

func TestRollingEviction(t *testing.T) {
	s := New("EUR/USD", models.TimeframeM5, 5)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 8; i++ {
		require.NoError(t, s.Append(bar(start.Add(time.Duration(i)*5*time.Minute), 100+float64(i))))
	}

	assert.Equal(t, 5, s.Len())
	window := s.Candles()
	assert.InDelta(t, 103.0, window[0].Close, 1e-9)
	last, ok := s.Last()
	require.True(t, ok)
	assert.InDelta(t, 107.0, last.Close, 1e-9)
}
