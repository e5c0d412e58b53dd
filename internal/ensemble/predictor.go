package ensemble

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// minValidModels is the floor below which the ensemble refuses to
// predict; a single model is an opinion, not an ensemble.
const minValidModels = 2

// agreementPenaltyBelow: when fewer than this fraction of valid models
// agree with the majority, confidence is multiplied by the agreement
// ratio.
const agreementPenaltyBelow = 0.6

// Predictor fuses the registry's model votes into one prediction per
// timeframe.
type Predictor struct {
	registry models.ModelRegistry
	logger   zerolog.Logger
}

// NewPredictor creates a predictor over registry.
func NewPredictor(registry models.ModelRegistry) *Predictor {
	return &Predictor{
		registry: registry,
		logger:   log.With().Str("component", "ensemble").Logger(),
	}
}

type vote struct {
	name string
	pred models.ModelPrediction
	w    float64
}

// Predict runs every model for tf over features and fuses the valid
// votes. Returns InsufficientModelsError when fewer than two models
// produce a usable prediction; the caller must exclude the timeframe
// from fusion rather than zero-weight it.
func (p *Predictor) Predict(tf models.Timeframe, features models.Features, candles []models.Candle) (*models.EnsemblePrediction, error) {
	adapters := p.registry.Models(tf)

	var votes []vote
	for _, m := range adapters {
		pred, err := m.Predict(features)
		if err != nil || pred.Probability < 0 || pred.Probability > 1 {
			p.logger.Debug().Err(err).Str("model", m.Name()).Stringer("timeframe", tf).Msg("model vote discarded")
			continue
		}
		w := p.registry.Accuracy(m.Name(), tf) * pred.Probability
		votes = append(votes, vote{name: m.Name(), pred: pred, w: w})
	}

	if len(votes) < minValidModels {
		return nil, &models.InsufficientModelsError{Valid: len(votes), Required: minValidModels}
	}

	// Weighted majority over the three labels.
	tally := map[models.PredictionLabel]float64{}
	for _, v := range votes {
		tally[v.pred.Label] += v.w
	}
	majority := models.LabelNeutral
	switch {
	case tally[models.LabelBullish] > tally[models.LabelBearish] && tally[models.LabelBullish] > tally[models.LabelNeutral]:
		majority = models.LabelBullish
	case tally[models.LabelBearish] > tally[models.LabelBullish] && tally[models.LabelBearish] > tally[models.LabelNeutral]:
		majority = models.LabelBearish
	}

	// Confidence: weighted mean probability of the agreeing models,
	// penalized by the agreement ratio when agreement is weak.
	var probSum, weightSum float64
	agreeing := 0
	for _, v := range votes {
		if v.pred.Label == majority {
			probSum += v.w * v.pred.Probability
			weightSum += v.w
			agreeing++
		}
	}
	confidence := 0.0
	if weightSum > 0 {
		confidence = probSum / weightSum
	}
	ratio := float64(agreeing) / float64(len(votes))
	if ratio < agreementPenaltyBelow {
		confidence *= ratio
	}

	support, resistance := FindLevels(candles)

	return &models.EnsemblePrediction{
		Prediction:         majority,
		ConfidenceScore:    clamp01(confidence),
		PatternRecognition: RecognizePatterns(features),
		SupportLevels:      support,
		ResistanceLevels:   resistance,
	}, nil
}

// Score maps an ensemble prediction onto [-1,1] for fusion.
func Score(p *models.EnsemblePrediction) float64 {
	switch p.Prediction {
	case models.LabelBullish:
		return p.ConfidenceScore
	case models.LabelBearish:
		return -p.ConfidenceScore
	default:
		return 0
	}
}
