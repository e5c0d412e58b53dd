package fusion

import (
	"math"

	"github.com/Alias1177/Fusion/models"
)

// Risk grading thresholds over the ATR percentile and the aggregated
// manipulation score.
const (
	atrHighPct   = 0.8
	atrMediumPct = 0.5

	manipHigh   = 0.6
	manipMedium = 0.3
)

// aggregate runs the weighted cross-timeframe vote. Nil entries are
// timeframes excluded on this tick; their weight is simply absent from
// the vote rather than redistributed.
func (e *Engine) aggregate(perTF models.TimeframeMap[*models.TimeframeSignal], atrPct, manipScore float64) models.OverallSignal {
	var buyVote, sellVote, totalWeight float64

	perTF.ForEach(func(tf models.Timeframe, sig *models.TimeframeSignal) {
		if sig == nil {
			return
		}
		w := e.weights.Get(tf)
		totalWeight += w
		switch sig.Direction {
		case models.DirectionBuy:
			buyVote += w * sig.Confidence
		case models.DirectionSell:
			sellVote += w * sig.Confidence
		}
	})

	direction := models.DirectionNeutral
	switch {
	case buyVote > sellVote:
		direction = models.DirectionBuy
	case sellVote > buyVote:
		direction = models.DirectionSell
	}

	// Confidence: weighted mean confidence of the agreeing timeframes,
	// discounted by the weight share that disagrees.
	var confSum, confWeight, disagreeWeight float64
	perTF.ForEach(func(tf models.Timeframe, sig *models.TimeframeSignal) {
		if sig == nil {
			return
		}
		w := e.weights.Get(tf)
		if sig.Direction == direction {
			confSum += w * sig.Confidence
			confWeight += w
		} else {
			disagreeWeight += w
		}
	})

	confidence := 0.0
	if confWeight > 0 {
		confidence = confSum / confWeight
	}
	if totalWeight > 0 {
		confidence *= 1 - disagreeWeight/totalWeight
	}
	confidence = clamp(confidence, 0, 1)

	return models.OverallSignal{
		Direction:  direction,
		Confidence: confidence,
		Strength:   int(math.Round(confidence * 10)),
		RiskLevel:  gradeRisk(atrPct, manipScore),
	}
}

// gradeRisk grades a signal by current volatility regime and the
// manipulation evidence.
func gradeRisk(atrPct, manipScore float64) models.RiskLevel {
	switch {
	case atrPct > atrHighPct || manipScore > manipHigh:
		return models.RiskHigh
	case atrPct > atrMediumPct || manipScore > manipMedium:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
