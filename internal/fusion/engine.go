package fusion

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// DefaultConfig is the stock fusion parameterization: an even
// technical/ML blend, a 0.15 direction threshold and a two-tick flip
// confirmation.
func DefaultConfig() models.FusionConfig {
	return models.FusionConfig{
		TechnicalWeight:     0.5,
		MLWeight:            0.5,
		DirectionThreshold:  0.15,
		ManipulationDamping: 0.3,
		ConfirmTicks:        2,
	}
}

// DefaultWeights weights the longer timeframes heavier; the daily view
// carries three times the five-minute one.
func DefaultWeights() models.TimeframeMap[float64] {
	var w models.TimeframeMap[float64]
	w.Set(models.TimeframeM5, 0.10)
	w.Set(models.TimeframeM15, 0.15)
	w.Set(models.TimeframeH1, 0.20)
	w.Set(models.TimeframeH4, 0.25)
	w.Set(models.TimeframeD1, 0.30)
	return w
}

// Engine fuses per-timeframe inputs into one MarketSignal per tick and
// keeps the per-symbol hysteresis state. Safe for concurrent use.
type Engine struct {
	cfg     models.FusionConfig
	weights models.TimeframeMap[float64]
	logger  zerolog.Logger

	mu    sync.Mutex
	state map[string]*hysteresisState
}

// NewEngine creates a fusion engine; zero-value config fields fall back
// to defaults.
func NewEngine(cfg models.FusionConfig, weights models.TimeframeMap[float64]) *Engine {
	def := DefaultConfig()
	if cfg.TechnicalWeight <= 0 && cfg.MLWeight <= 0 {
		cfg.TechnicalWeight = def.TechnicalWeight
		cfg.MLWeight = def.MLWeight
	}
	if cfg.DirectionThreshold <= 0 {
		cfg.DirectionThreshold = def.DirectionThreshold
	}
	if cfg.ManipulationDamping <= 0 {
		cfg.ManipulationDamping = def.ManipulationDamping
	}
	if cfg.ConfirmTicks <= 0 {
		cfg.ConfirmTicks = def.ConfirmTicks
	}

	var weightSum float64
	weights.ForEach(func(_ models.Timeframe, w float64) { weightSum += w })
	if weightSum <= 0 {
		weights = DefaultWeights()
	}

	return &Engine{
		cfg:     cfg,
		weights: weights,
		logger:  log.With().Str("component", "fusion").Logger(),
		state:   make(map[string]*hysteresisState),
	}
}

// Fuse joins the available timeframes of one tick into a MarketSignal.
// A nil input entry marks a degraded timeframe; when every entry is nil
// the tick yields NoSignalError.
func (e *Engine) Fuse(symbol string, inputs models.TimeframeMap[*TimeframeInput]) (*models.MarketSignal, error) {
	var perTF models.TimeframeMap[*models.TimeframeSignal]
	available := 0

	var atrPctSum, atrPctWeight, manipScore float64
	inputs.ForEach(func(tf models.Timeframe, in *TimeframeInput) {
		if in == nil || in.Indicators == nil || in.Ensemble == nil {
			return
		}
		sig, raw := e.scoreTimeframe(in)
		perTF.Set(tf, sig)
		available++

		w := e.weights.Get(tf)
		atrPctSum += w * in.ATRPercentile
		atrPctWeight += w
		if in.Manipulation != nil && in.Manipulation.Score > manipScore {
			manipScore = in.Manipulation.Score
		}

		e.logger.Debug().
			Str("symbol", symbol).
			Stringer("timeframe", tf).
			Float64("raw", raw).
			Str("direction", string(sig.Direction)).
			Float64("confidence", sig.Confidence).
			Msg("timeframe scored")
	})

	if available == 0 {
		return nil, &models.NoSignalError{Symbol: symbol}
	}

	atrPct := 0.0
	if atrPctWeight > 0 {
		atrPct = atrPctSum / atrPctWeight
	}

	overall := e.aggregate(perTF, atrPct, manipScore)
	overall.Direction = e.confirm(symbol, overall.Direction)

	return &models.MarketSignal{
		ID:           uuid.New().String(),
		Symbol:       symbol,
		Overall:      overall,
		PerTimeframe: perTF,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}
