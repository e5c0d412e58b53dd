package fusion

import (
	"math"

	"github.com/Alias1177/Fusion/models"
)

// Technical sub-signal weights. They sum above 1 on purpose: a fully
// aligned bar should saturate the clamp.
const (
	maWeight        = 0.30
	macdWeight      = 0.25
	rsiWeight       = 0.20
	bollingerWeight = 0.15

	rsiOversold   = 30
	rsiOverbought = 70

	// ADX trend scaling saturates here.
	adxCap = 50
)

// TimeframeInput is everything fusion needs from one timeframe on one
// tick. A nil Indicators or Ensemble means the timeframe degraded and
// must be excluded upstream.
type TimeframeInput struct {
	Indicators    *models.IndicatorSet
	Close         float64
	Ensemble      *models.EnsemblePrediction
	Manipulation  *models.ManipulationFlags
	ATRPercentile float64
}

// technicalScore folds the indicator snapshot into [-1,1]. Unavailable
// indicators simply contribute nothing.
func technicalScore(ind *models.IndicatorSet, close float64) float64 {
	score := 0.0

	if ind.SMA20 != nil && ind.SMA50 != nil {
		switch {
		case close > *ind.SMA20 && *ind.SMA20 > *ind.SMA50:
			score += maWeight
		case close < *ind.SMA20 && *ind.SMA20 < *ind.SMA50:
			score -= maWeight
		}
	}

	if ind.MACD != nil {
		if ind.MACD.Line > ind.MACD.Signal {
			score += macdWeight
		} else if ind.MACD.Line < ind.MACD.Signal {
			score -= macdWeight
		}
	}

	// RSI extremes read mean-reverting: oversold is a bullish signal.
	if ind.RSI != nil {
		if *ind.RSI < rsiOversold {
			score += rsiWeight
		} else if *ind.RSI > rsiOverbought {
			score -= rsiWeight
		}
	}

	// Same mean-reversion convention for band breaches.
	if ind.Bollinger != nil {
		if close < ind.Bollinger.Lower {
			score += bollingerWeight
		} else if close > ind.Bollinger.Upper {
			score -= bollingerWeight
		}
	}

	// A trending market amplifies whatever the sub-signals say.
	if ind.ADX != nil {
		score *= 1 + math.Min(ind.ADX.ADX, adxCap)/adxCap
	}

	return clamp(score, -1, 1)
}

// scoreTimeframe blends the technical and ensemble views of one
// timeframe into a TimeframeSignal plus the raw blended score.
func (e *Engine) scoreTimeframe(in *TimeframeInput) (*models.TimeframeSignal, float64) {
	tech := technicalScore(in.Indicators, in.Close)
	ml := ensembleScore(in.Ensemble)

	raw := e.cfg.TechnicalWeight*tech + e.cfg.MLWeight*ml

	// A flagged unsupported price move damps the whole timeframe rather
	// than dropping it.
	if in.Manipulation != nil && in.Manipulation.PriceManipulation {
		raw *= e.cfg.ManipulationDamping
	}
	raw = clamp(raw, -1, 1)

	direction := models.DirectionNeutral
	if raw > e.cfg.DirectionThreshold {
		direction = models.DirectionBuy
	} else if raw < -e.cfg.DirectionThreshold {
		direction = models.DirectionSell
	}

	agreement := 1 - math.Abs(tech-ml)/2

	return &models.TimeframeSignal{
		Direction:  direction,
		Confidence: clamp(math.Abs(raw)*in.Ensemble.ConfidenceScore*agreement, 0, 1),
		Agreement:  agreement,
	}, raw
}

func ensembleScore(p *models.EnsemblePrediction) float64 {
	switch p.Prediction {
	case models.LabelBullish:
		return p.ConfidenceScore
	case models.LabelBearish:
		return -p.ConfidenceScore
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
