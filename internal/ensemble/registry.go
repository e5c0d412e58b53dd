package ensemble

import (
	"sync"

	"github.com/Alias1177/Fusion/models"
)

// accuracyWindow bounds the rolling outcome history per (model, timeframe).
const accuracyWindow = 100

// defaultAccuracy is used until a model has any validated outcomes.
const defaultAccuracy = 0.5

type accuracyKey struct {
	model string
	tf    models.Timeframe
}

// Registry is the in-process ModelRegistry: a fixed model set shared by
// every timeframe plus a rolling accuracy tracker fed by validated
// predictions.
type Registry struct {
	mu       sync.RWMutex
	models   []models.Model
	outcomes map[accuracyKey][]bool
}

// NewRegistry builds the default four-model registry. seed fixes the
// neural adapter's weights.
func NewRegistry(seed int64) *Registry {
	return &Registry{
		models: []models.Model{
			TreeModel{},
			BoostModel{},
			KernelModel{},
			NewNeuralModel(seed),
		},
		outcomes: make(map[accuracyKey][]bool),
	}
}

// Models returns the adapters for tf.
func (r *Registry) Models(tf models.Timeframe) []models.Model {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Model, len(r.models))
	copy(out, r.models)
	return out
}

// Accuracy returns the rolling fraction of correct predictions for one
// model on one timeframe.
func (r *Registry) Accuracy(model string, tf models.Timeframe) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hist := r.outcomes[accuracyKey{model, tf}]
	if len(hist) == 0 {
		return defaultAccuracy
	}
	correct := 0
	for _, ok := range hist {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(hist))
}

// Observe records whether a past prediction by model on tf turned out
// correct.
func (r *Registry) Observe(model string, tf models.Timeframe, correct bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := accuracyKey{model, tf}
	hist := append(r.outcomes[key], correct)
	if len(hist) > accuracyWindow {
		hist = hist[len(hist)-accuracyWindow:]
	}
	r.outcomes[key] = hist
}
