package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Fusion/models"
)

func TestSnapshotEmpty(t *testing.T) {
	tracker := NewTracker(252)
	snap := tracker.Snapshot()

	assert.Zero(t, snap.TotalTrades)
	assert.Zero(t, snap.SharpeRatio)
	assert.Zero(t, snap.Drawdown.Maximum)
}

func TestSnapshotBasicStats(t *testing.T) {
	tracker := NewTracker(252)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	trades := []models.TradeClose{
		{TradeID: "1", Timeframe: models.TimeframeH1, Strategy: "fusion", Return: 0.02, PnL: 200, ClosedAt: base},
		{TradeID: "2", Timeframe: models.TimeframeH1, Strategy: "fusion", Return: -0.01, PnL: -100, ClosedAt: base.Add(24 * time.Hour)},
		{TradeID: "3", Timeframe: models.TimeframeH4, Strategy: "breakout", Return: 0.03, PnL: 300, ClosedAt: base.Add(48 * time.Hour)},
		{TradeID: "4", Timeframe: models.TimeframeH4, Strategy: "breakout", Return: 0.01, PnL: 100, ClosedAt: base.Add(72 * time.Hour)},
	}
	for _, tc := range trades {
		tracker.Record(tc)
	}

	snap := tracker.Snapshot()
	assert.Equal(t, 4, snap.TotalTrades)
	assert.InDelta(t, 0.75, snap.WinRate, 1e-9)
	assert.InDelta(t, 0.5, snap.WinRateByTimeframe.Get(models.TimeframeH1), 1e-9)
	assert.InDelta(t, 1.0, snap.WinRateByTimeframe.Get(models.TimeframeH4), 1e-9)
	assert.InDelta(t, 500.0, snap.ProfitLoss, 1e-9)
	assert.InDelta(t, 100.0, snap.ProfitLossByStrategy["fusion"], 1e-9)
	assert.InDelta(t, 400.0, snap.ProfitLossByStrategy["breakout"], 1e-9)
	assert.Greater(t, snap.SharpeRatio, 0.0)
}

func TestDrawdownCurrentNeverExceedsMaximum(t *testing.T) {
	// Равномерная просадка с частичным восстановлением.
	returns := []float64{0.05, 0.02, -0.08, -0.05, -0.03, 0.04, 0.02, -0.01, 0.06, 0.01}

	tracker := NewTracker(252)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range returns {
		tracker.Record(models.TradeClose{
			TradeID:  string(rune('a' + i)),
			Return:   r,
			PnL:      r * 1000,
			ClosedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		})
	}

	snap := tracker.Snapshot()
	dd := snap.Drawdown
	require.Greater(t, dd.Maximum, 0.0)
	assert.LessOrEqual(t, dd.Current, dd.Maximum)
	assert.LessOrEqual(t, dd.Average, dd.Maximum)
	assert.GreaterOrEqual(t, dd.DurationDays, 0.0)
}

func TestDrawdownFullRecoveryClearsCurrent(t *testing.T) {
	tracker := NewTracker(252)
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range []float64{0.02, -0.05, 0.10} {
		tracker.Record(models.TradeClose{Return: r, ClosedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	dd := tracker.Snapshot().Drawdown
	assert.Zero(t, dd.Current)
	assert.Greater(t, dd.Maximum, 0.0)
	assert.Zero(t, dd.DurationDays)
}

type memoryJournal struct {
	mu     sync.Mutex
	trades []models.TradeClose
}

func (j *memoryJournal) RecordTradeClose(_ context.Context, tc models.TradeClose) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, tc)
	return nil
}

func (j *memoryJournal) ListTradeCloses(_ context.Context, _ string) ([]models.TradeClose, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.trades, nil
}

func TestConsumeDrainsChannelAndMirrorsJournal(t *testing.T) {
	tracker := NewTracker(252)
	journal := &memoryJournal{}

	ch := make(chan models.TradeClose, 3)
	ch <- models.TradeClose{TradeID: "1", Return: 0.01}
	ch <- models.TradeClose{TradeID: "2", Return: -0.02}
	ch <- models.TradeClose{TradeID: "3", Return: 0.03}
	close(ch)

	tracker.Consume(context.Background(), ch, journal)

	assert.Equal(t, 3, tracker.Snapshot().TotalTrades)
	stored, err := journal.ListTradeCloses(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestSortinoIgnoresUpsideVolatility(t *testing.T) {
	steady := NewTracker(252)
	spiky := NewTracker(252)
	base := time.Now().UTC()

	// Same downside, wildly different upside.
	for i, r := range []float64{0.01, -0.01, 0.01, -0.01, 0.01} {
		steady.Record(models.TradeClose{Return: r, ClosedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	for i, r := range []float64{0.10, -0.01, 0.01, -0.01, 0.15} {
		spiky.Record(models.TradeClose{Return: r, ClosedAt: base.Add(time.Duration(i) * time.Hour)})
	}

	a := steady.Snapshot()
	b := spiky.Snapshot()
	// Sharpe punishes the spiky upside harder than Sortino does.
	assert.Greater(t, b.SortinoRatio/b.SharpeRatio, a.SortinoRatio/a.SharpeRatio)
}
