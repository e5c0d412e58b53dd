package risk

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// maxTrackedTrades bounds the in-memory trade history.
const maxTrackedTrades = 1000

// Tracker accumulates closed-trade events and derives the rolling
// performance statistics the sizing throttles read. Safe for concurrent
// use.
type Tracker struct {
	mu            sync.RWMutex
	trades        []models.TradeClose
	annualization float64
	logger        zerolog.Logger
}

// NewTracker creates a tracker. annualizationBars is the number of trade
// periods per year used to scale Sharpe and Sortino.
func NewTracker(annualizationBars float64) *Tracker {
	if annualizationBars <= 0 {
		annualizationBars = DefaultConfig().AnnualizationBars
	}
	return &Tracker{
		annualization: annualizationBars,
		logger:        log.With().Str("component", "performance").Logger(),
	}
}

// Record appends one closed trade.
func (t *Tracker) Record(tc models.TradeClose) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trades = append(t.trades, tc)
	if len(t.trades) > maxTrackedTrades {
		t.trades = t.trades[len(t.trades)-maxTrackedTrades:]
	}
	t.logger.Debug().
		Str("trade_id", tc.TradeID).
		Str("symbol", tc.Symbol).
		Float64("return", tc.Return).
		Msg("trade close recorded")
}

// Consume drains trade-close events from ch into the tracker, optionally
// mirroring each one into journal, until ch closes or ctx ends.
func (t *Tracker) Consume(ctx context.Context, ch <-chan models.TradeClose, journal models.TradeJournal) {
	for {
		select {
		case <-ctx.Done():
			return
		case tc, ok := <-ch:
			if !ok {
				return
			}
			t.Record(tc)
			if journal != nil {
				if err := journal.RecordTradeClose(ctx, tc); err != nil {
					t.logger.Error().Err(err).Str("trade_id", tc.TradeID).Msg("journal write failed")
				}
			}
		}
	}
}

// Snapshot computes the current performance view. With no trades it
// returns zeroed statistics rather than NaNs.
func (t *Tracker) Snapshot() models.PerformanceSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := models.PerformanceSnapshot{
		TotalTrades:          len(t.trades),
		ProfitLossByStrategy: make(map[string]float64),
	}
	if len(t.trades) == 0 {
		return snap
	}

	returns := make([]float64, len(t.trades))
	wins := 0
	var tfWins, tfTotals models.TimeframeMap[int]
	for i, tc := range t.trades {
		returns[i] = tc.Return
		snap.ProfitLoss += tc.PnL
		snap.ProfitLossByStrategy[tc.Strategy] += tc.PnL
		tfTotals[tc.Timeframe]++
		if tc.Return > 0 {
			wins++
			tfWins[tc.Timeframe]++
		}
	}
	snap.WinRate = float64(wins) / float64(len(t.trades))
	for tf := range tfTotals {
		if tfTotals[tf] > 0 {
			snap.WinRateByTimeframe[tf] = float64(tfWins[tf]) / float64(tfTotals[tf])
		}
	}

	snap.Drawdown = t.drawdown()
	snap.SharpeRatio = t.sharpe(returns)
	snap.SortinoRatio = t.sortino(returns)
	snap.CalmarRatio = t.calmar(returns, snap.Drawdown.Maximum)
	// Information ratio against a zero benchmark: the excess-return series
	// is the return series itself.
	snap.InformationRatio = t.sharpe(returns)
	return snap
}

// drawdown walks the compounded equity curve against its running peak.
func (t *Tracker) drawdown() models.DrawdownStats {
	var stats models.DrawdownStats

	equity := 1.0
	peak := 1.0
	peakAt := t.trades[0].ClosedAt
	var ddSum float64
	ddBars := 0

	for _, tc := range t.trades {
		equity *= 1 + tc.Return
		if equity >= peak {
			peak = equity
			peakAt = tc.ClosedAt
			continue
		}
		dd := (peak - equity) / peak
		if dd > stats.Maximum {
			stats.Maximum = dd
		}
		ddSum += dd
		ddBars++
	}

	if equity < peak {
		stats.Current = (peak - equity) / peak
		last := t.trades[len(t.trades)-1].ClosedAt
		stats.DurationDays = last.Sub(peakAt).Hours() / 24
	}
	if ddBars > 0 {
		stats.Average = ddSum / float64(ddBars)
	}
	return stats
}

func (t *Tracker) sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := meanOf(returns)
	sd := stdDevOf(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd * math.Sqrt(t.annualization)
}

// sortino penalizes only downside volatility.
func (t *Tracker) sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := meanOf(returns)
	var downSq float64
	downs := 0
	for _, r := range returns {
		if r < 0 {
			downSq += r * r
			downs++
		}
	}
	if downs == 0 {
		return 0
	}
	dd := math.Sqrt(downSq / float64(downs))
	if dd == 0 {
		return 0
	}
	return m / dd * math.Sqrt(t.annualization)
}

func (t *Tracker) calmar(returns []float64, maxDrawdown float64) float64 {
	if maxDrawdown == 0 {
		return 0
	}
	annualized := meanOf(returns) * t.annualization
	return annualized / maxDrawdown
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDevOf(values []float64, mean float64) float64 {
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
