package ensemble

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Alias1177/Fusion/models"
)

// The adapters below stand in for independently trained classifiers. Each
// one scores the same feature vector a different way (tree rules, boosted
// stages, kernel distance, a small seeded network) so the ensemble gets
// genuinely de-correlated votes. All of them are deterministic.

func requireFeatures(f models.Features, keys ...string) error {
	for _, k := range keys {
		if _, ok := f[k]; !ok {
			return fmt.Errorf("feature %q missing", k)
		}
	}
	return nil
}

func labelFromScore(score, prob float64) models.ModelPrediction {
	label := models.LabelNeutral
	if score > 0.1 {
		label = models.LabelBullish
	} else if score < -0.1 {
		label = models.LabelBearish
	}
	return models.ModelPrediction{Label: label, Probability: clamp01(prob)}
}

// TreeModel votes with a handful of fixed decision stumps.
type TreeModel struct{}

func (TreeModel) Name() string { return "tree" }

func (TreeModel) Predict(f models.Features) (models.ModelPrediction, error) {
	if err := requireFeatures(f, FeatRSI, FeatStochK, FeatBBPosition); err != nil {
		return models.ModelPrediction{}, err
	}

	votes := 0
	total := 0

	stump := func(bullish bool) {
		total++
		if bullish {
			votes++
		} else {
			votes--
		}
	}

	stump(f[FeatRSI] < 40)
	stump(f[FeatStochK] < 30 || (f[FeatStochK] > f[FeatStochD] && f[FeatStochK] < 70))
	stump(f[FeatBBPosition] < 0.35)
	if v, ok := f[FeatDISpread]; ok {
		stump(v > 0)
	}
	if v, ok := f[FeatCloudSide]; ok {
		stump(v > 0)
	}

	score := float64(votes) / float64(total)
	// Probability grows with vote unanimity.
	prob := 0.5 + math.Abs(score)/2
	return labelFromScore(score, prob), nil
}

// BoostModel accumulates weighted stage contributions and squashes them
// through a logistic link.
type BoostModel struct{}

func (BoostModel) Name() string { return "boost" }

func (BoostModel) Predict(f models.Features) (models.ModelPrediction, error) {
	if err := requireFeatures(f, FeatRSI, FeatMACDHist); err != nil {
		return models.ModelPrediction{}, err
	}

	raw := 0.0
	raw += 0.04 * (50 - f[FeatRSI])
	raw += 0.9 * f[FeatMACDHist]
	if v, ok := f[FeatMomentum]; ok {
		raw += 0.35 * v
	}
	if v, ok := f[FeatPriceChange]; ok {
		raw += 0.2 * v
	}
	if v, ok := f[FeatDISpread]; ok {
		raw += 0.02 * v
	}

	p := 1 / (1 + math.Exp(-raw)) // P(bullish)
	switch {
	case p > 0.55:
		return models.ModelPrediction{Label: models.LabelBullish, Probability: p}, nil
	case p < 0.45:
		return models.ModelPrediction{Label: models.LabelBearish, Probability: 1 - p}, nil
	default:
		return models.ModelPrediction{Label: models.LabelNeutral, Probability: 1 - 2*math.Abs(p-0.5)}, nil
	}
}

// KernelModel classifies by distance to a bullish and a bearish prototype
// in normalized feature space.
type KernelModel struct{}

func (KernelModel) Name() string { return "kernel" }

var (
	kernelBull = []float64{0.30, 0.30, 0.25, 0.6, 0.5}
	kernelBear = []float64{0.70, 0.70, 0.75, -0.6, -0.5}
)

func (KernelModel) Predict(f models.Features) (models.ModelPrediction, error) {
	if err := requireFeatures(f, FeatRSI, FeatStochK, FeatBBPosition); err != nil {
		return models.ModelPrediction{}, err
	}

	vec := []float64{
		f[FeatRSI] / 100,
		f[FeatStochK] / 100,
		clamp01(f[FeatBBPosition]),
		math.Tanh(f[FeatMomentum] / 2),
		math.Tanh(f[FeatDISpread] / 20),
	}

	dBull := kernelDistance(vec, kernelBull)
	dBear := kernelDistance(vec, kernelBear)

	// Gaussian kernel similarity, normalized to a two-class probability.
	sBull := math.Exp(-dBull * dBull / 0.5)
	sBear := math.Exp(-dBear * dBear / 0.5)
	if sBull+sBear == 0 {
		return models.ModelPrediction{Label: models.LabelNeutral, Probability: 0.5}, nil
	}
	p := sBull / (sBull + sBear)
	switch {
	case p > 0.55:
		return models.ModelPrediction{Label: models.LabelBullish, Probability: p}, nil
	case p < 0.45:
		return models.ModelPrediction{Label: models.LabelBearish, Probability: 1 - p}, nil
	default:
		return models.ModelPrediction{Label: models.LabelNeutral, Probability: 1 - 2*math.Abs(p-0.5)}, nil
	}
}

func kernelDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// NeuralModel is a one-hidden-layer network with weights drawn from a
// fixed seed, so inference is reproducible across runs.
type NeuralModel struct {
	hidden [][]float64 // [neuron][input+bias]
	output [][]float64 // [class][neuron+bias]
}

var neuralInputs = []string{FeatRSI, FeatStochK, FeatBBPosition, FeatMACDHist, FeatMomentum}

// NewNeuralModel builds the network from seed.
func NewNeuralModel(seed int64) *NeuralModel {
	rng := rand.New(rand.NewSource(seed))
	const neurons = 8
	m := &NeuralModel{}
	for i := 0; i < neurons; i++ {
		row := make([]float64, len(neuralInputs)+1)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.7
		}
		m.hidden = append(m.hidden, row)
	}
	for c := 0; c < 3; c++ { // bullish, bearish, neutral
		row := make([]float64, neurons+1)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.7
		}
		m.output = append(m.output, row)
	}
	return m
}

func (m *NeuralModel) Name() string { return "neural" }

func (m *NeuralModel) Predict(f models.Features) (models.ModelPrediction, error) {
	if err := requireFeatures(f, neuralInputs...); err != nil {
		return models.ModelPrediction{}, err
	}

	in := make([]float64, len(neuralInputs))
	in[0] = f[FeatRSI]/50 - 1
	in[1] = f[FeatStochK]/50 - 1
	in[2] = clamp01(f[FeatBBPosition])*2 - 1
	in[3] = math.Tanh(f[FeatMACDHist])
	in[4] = math.Tanh(f[FeatMomentum] / 2)

	act := make([]float64, len(m.hidden))
	for i, w := range m.hidden {
		sum := w[len(in)] // bias
		for j, v := range in {
			sum += w[j] * v
		}
		act[i] = math.Tanh(sum)
	}

	logits := make([]float64, len(m.output))
	for c, w := range m.output {
		sum := w[len(act)]
		for j, v := range act {
			sum += w[j] * v
		}
		logits[c] = sum
	}

	// Softmax.
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var total float64
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		total += probs[i]
	}
	best, bestP := 0, 0.0
	for i := range probs {
		probs[i] /= total
		if probs[i] > bestP {
			best, bestP = i, probs[i]
		}
	}

	labels := []models.PredictionLabel{models.LabelBullish, models.LabelBearish, models.LabelNeutral}
	return models.ModelPrediction{Label: labels[best], Probability: bestP}, nil
}
