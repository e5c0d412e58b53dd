package risk

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// Performance throttles: sizing halves once the strategy runs a negative
// Sharpe over a meaningful sample, and shrinks proportionally past a deep
// drawdown.
const (
	sharpeThrottleMinTrades = 10
	sharpeThrottleFactor    = 0.5
	drawdownThrottleBeyond  = 0.20
)

// DefaultConfig is the stock sizing parameterization: a 1.5 ATR stop, a
// 2.5 ATR target, and half size on HIGH risk signals.
func DefaultConfig() models.RiskConfig {
	return models.RiskConfig{
		ATRStopMultiplier:  1.5,
		TargetRatio:        2.5,
		MinRiskReward:      1.5,
		HighRiskMultiplier: 0.5,
		AnnualizationBars:  252,
	}
}

// Manager turns a fused signal into stop, target and position size under
// the account risk profile. Sizing shrinks with signal confidence and
// with poor recent performance; it never grows past the profile caps.
type Manager struct {
	cfg     models.RiskConfig
	profile models.RiskProfile
	tracker *Tracker
	logger  zerolog.Logger
}

// NewManager creates a manager; zero-value config fields fall back to
// defaults. tracker may be nil, disabling the performance throttles.
func NewManager(cfg models.RiskConfig, profile models.RiskProfile, tracker *Tracker) *Manager {
	def := DefaultConfig()
	if cfg.ATRStopMultiplier <= 0 {
		cfg.ATRStopMultiplier = def.ATRStopMultiplier
	}
	if cfg.TargetRatio <= 0 {
		cfg.TargetRatio = def.TargetRatio
	}
	if cfg.MinRiskReward <= 0 {
		cfg.MinRiskReward = def.MinRiskReward
	}
	if cfg.HighRiskMultiplier <= 0 {
		cfg.HighRiskMultiplier = def.HighRiskMultiplier
	}
	if cfg.AnnualizationBars <= 0 {
		cfg.AnnualizationBars = def.AnnualizationBars
	}
	return &Manager{
		cfg:     cfg,
		profile: profile,
		tracker: tracker,
		logger:  log.With().Str("component", "risk").Logger(),
	}
}

// Size computes the position for signal at the given entry price and ATR.
// prediction may carry support/resistance levels that override the ratio
// target when a level sits closer but still clears the minimum
// risk/reward. Returns DegenerateRiskError when a stop cannot be placed.
func (m *Manager) Size(signal *models.MarketSignal, entry, atr float64, prediction *models.EnsemblePrediction) (*models.PositionSizing, error) {
	stopDist := atr * m.cfg.ATRStopMultiplier
	targetDist := atr * m.cfg.TargetRatio
	if !finite(entry) || !finite(stopDist) || entry <= 0 || stopDist <= 0 {
		return nil, &models.DegenerateRiskError{Entry: entry, StopLoss: entry - stopDist}
	}

	var stop, target float64
	switch signal.Overall.Direction {
	case models.DirectionBuy:
		stop = entry - stopDist
		target = entry + targetDist
		if prediction != nil {
			target = m.overrideTarget(entry, stopDist, target, prediction.ResistanceLevels, true)
		}
	case models.DirectionSell:
		stop = entry + stopDist
		target = entry - targetDist
		if prediction != nil {
			target = m.overrideTarget(entry, stopDist, target, prediction.SupportLevels, false)
		}
	default:
		// Neutral signals are not tradeable; a stop cannot be oriented.
		return nil, &models.DegenerateRiskError{Entry: entry, StopLoss: entry}
	}
	if stop <= 0 {
		return nil, &models.DegenerateRiskError{Entry: entry, StopLoss: stop}
	}

	riskBudget := m.profile.Equity * m.profile.MaxRiskPerTrade
	size := riskBudget / stopDist

	// Exposure cap in instrument units.
	if m.profile.MaxPositionSize > 0 {
		maxUnits := m.profile.Equity * m.profile.MaxPositionSize / entry
		if size > maxUnits {
			size = maxUnits
		}
	}

	// Confidence only ever shrinks the position.
	size *= clamp01(signal.Overall.Confidence)
	if signal.Overall.RiskLevel == models.RiskHigh {
		size *= m.cfg.HighRiskMultiplier
	}
	size *= m.performanceThrottle()

	if !finite(size) || size < 0 {
		return nil, &models.DegenerateRiskError{Entry: entry, StopLoss: stop}
	}

	sizing := &models.PositionSizing{
		EntryPrice:      entry,
		PositionSize:    size,
		RiskPerTrade:    size * stopDist,
		StopLoss:        stop,
		TakeProfit:      target,
		RiskRewardRatio: math.Abs(target-entry) / stopDist,
	}

	m.logger.Debug().
		Str("symbol", signal.Symbol).
		Str("direction", string(signal.Overall.Direction)).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("target", target).
		Float64("size", size).
		Msg("position sized")
	return sizing, nil
}

// overrideTarget picks the nearest ensemble level as the take-profit when
// it is closer than the ratio target and still clears MinRiskReward.
// Level slices come nearest-first from the ensemble.
func (m *Manager) overrideTarget(entry, stopDist, target float64, levels []float64, upward bool) float64 {
	for _, level := range levels {
		var reward float64
		if upward {
			if level <= entry || level >= target {
				continue
			}
			reward = level - entry
		} else {
			if level >= entry || level <= target {
				continue
			}
			reward = entry - level
		}
		if reward/stopDist >= m.cfg.MinRiskReward {
			return level
		}
	}
	return target
}

// performanceThrottle shrinks sizing while the live track record is bad.
func (m *Manager) performanceThrottle() float64 {
	if m.tracker == nil {
		return 1
	}
	snap := m.tracker.Snapshot()

	factor := 1.0
	if snap.SharpeRatio < 0 && snap.TotalTrades >= sharpeThrottleMinTrades {
		factor *= sharpeThrottleFactor
	}
	if snap.Drawdown.Current > drawdownThrottleBeyond {
		factor *= 1 - snap.Drawdown.Current
	}
	return factor
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
