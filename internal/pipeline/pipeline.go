// Package pipeline wires data fetch, indicators, the ensemble, the
// manipulation detector, fusion and risk sizing into one evaluation
// tick per symbol.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/internal/ensemble"
	"github.com/Alias1177/Fusion/internal/fusion"
	"github.com/Alias1177/Fusion/internal/indicators"
	"github.com/Alias1177/Fusion/internal/manipulation"
	"github.com/Alias1177/Fusion/internal/metrics"
	"github.com/Alias1177/Fusion/internal/risk"
	"github.com/Alias1177/Fusion/internal/series"
	"github.com/Alias1177/Fusion/models"
)

const (
	// defaultFetchBars covers the longest indicator warm-up per fetch.
	defaultFetchBars = 250

	// defaultStageTimeout bounds one timeframe's fetch-and-score stage.
	defaultStageTimeout = 15 * time.Second
)

// Pipeline is the per-tick evaluator. One instance serves many symbols;
// per-symbol window state is keyed internally and each timeframe's
// series and indicator engine are touched only by that timeframe's
// stage, so ticks for one symbol must not overlap.
type Pipeline struct {
	provider  models.MarketDataProvider
	predictor *ensemble.Predictor
	detector  *manipulation.Detector
	fuser     *fusion.Engine
	riskMgr   *risk.Manager
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	fetchBars    int
	stageTimeout time.Duration

	mu     sync.Mutex
	states map[string]*symbolState
}

type symbolState struct {
	mu      sync.Mutex // serializes ticks per symbol
	series  models.TimeframeMap[*series.Series]
	engines models.TimeframeMap[*indicators.Engine]
}

// stageResult is what one timeframe stage hands to the join.
type stageResult struct {
	input *fusion.TimeframeInput
	atr   float64
	err   error
}

// Evaluation is the outcome of one tick.
type Evaluation struct {
	Signal   *models.MarketSignal
	Sizing   *models.PositionSizing // nil for neutral or unsizable signals
	Degraded []models.Timeframe
}

// Option adjusts pipeline construction.
type Option func(*Pipeline)

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithStageTimeout bounds each timeframe stage.
func WithStageTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.stageTimeout = d
		}
	}
}

// WithFetchBars sets how many bars each stage requests.
func WithFetchBars(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.fetchBars = n
		}
	}
}

// New assembles a pipeline. riskMgr may be nil to skip sizing.
func New(provider models.MarketDataProvider, predictor *ensemble.Predictor, detector *manipulation.Detector, fuser *fusion.Engine, riskMgr *risk.Manager, opts ...Option) *Pipeline {
	p := &Pipeline{
		provider:     provider,
		predictor:    predictor,
		detector:     detector,
		fuser:        fuser,
		riskMgr:      riskMgr,
		logger:       log.With().Str("component", "pipeline").Logger(),
		fetchBars:    defaultFetchBars,
		stageTimeout: defaultStageTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.states = make(map[string]*symbolState)
	return p
}

// Evaluate runs one full tick for symbol: all five timeframes fetched
// and scored concurrently, joined at fusion, then sized. A degraded
// timeframe is excluded, never zero-filled; only a tick with no usable
// timeframe at all fails with NoSignalError.
func (p *Pipeline) Evaluate(ctx context.Context, symbol string) (*Evaluation, error) {
	started := time.Now()
	st := p.symbolState(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	var results models.TimeframeMap[*stageResult]
	var wg sync.WaitGroup
	for _, tf := range models.AllTimeframes() {
		wg.Add(1)
		go func(tf models.Timeframe) {
			defer wg.Done()
			results.Set(tf, p.runStage(ctx, symbol, tf, st))
		}(tf)
	}
	wg.Wait()

	var inputs models.TimeframeMap[*fusion.TimeframeInput]
	var degraded []models.Timeframe
	results.ForEach(func(tf models.Timeframe, res *stageResult) {
		if res.err != nil {
			degraded = append(degraded, tf)
			p.countDegraded(tf, res.err)
			p.logger.Warn().Err(res.err).Str("symbol", symbol).Stringer("timeframe", tf).Msg("timeframe degraded")
			return
		}
		inputs.Set(tf, res.input)
	})

	signal, err := p.fuser.Fuse(symbol, inputs)
	if err != nil {
		p.countEvaluation(symbol, "no_signal")
		return nil, err
	}
	p.observeSignal(signal, started)

	eval := &Evaluation{Signal: signal, Degraded: degraded}
	if p.riskMgr != nil && signal.Overall.Direction != models.DirectionNeutral {
		eval.Sizing = p.size(symbol, signal, results)
	}
	return eval, nil
}

// runStage fetches bars for one timeframe and produces its fusion input.
func (p *Pipeline) runStage(ctx context.Context, symbol string, tf models.Timeframe, st *symbolState) *stageResult {
	ctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	candles, err := p.provider.GetCandles(ctx, symbol, tf, p.fetchBars)
	if err != nil {
		return &stageResult{err: err}
	}

	ser := st.series.Get(tf)
	if ser == nil {
		ser = series.New(symbol, tf, 0)
		st.series.Set(tf, ser)
		st.engines.Set(tf, indicators.NewEngine())
	}
	eng := st.engines.Get(tf)

	// Fold in only bars newer than the window head; providers overlap
	// their responses on purpose.
	last, have := ser.Last()
	for _, c := range candles {
		if have && !c.Timestamp.After(last.Timestamp) {
			continue
		}
		if err := ser.Append(c); err != nil {
			return &stageResult{err: err}
		}
		eng.Update(c)
	}

	window := ser.Candles()
	if len(window) == 0 {
		return &stageResult{err: &models.InsufficientDataError{Indicator: "window", Need: 1, Have: 0}}
	}

	ind := eng.Snapshot()
	features := ensemble.BuildFeatures(window, ind)
	prediction, err := p.predictor.Predict(tf, features, window)
	if err != nil {
		return &stageResult{err: err}
	}

	atrPct, err := eng.ATRPercentile()
	if err != nil {
		atrPct = 0
	}
	atr, err := eng.ATR()
	if err != nil {
		atr = 0
	}

	return &stageResult{
		input: &fusion.TimeframeInput{
			Indicators:    ind,
			Close:         window[len(window)-1].Close,
			Ensemble:      prediction,
			Manipulation:  p.detector.Inspect(window),
			ATRPercentile: atrPct,
		},
		atr: atr,
	}
}

// size runs the risk manager on the shortest usable timeframe, which is
// the one a fill would execute against.
func (p *Pipeline) size(symbol string, signal *models.MarketSignal, results models.TimeframeMap[*stageResult]) *models.PositionSizing {
	for _, tf := range models.AllTimeframes() {
		res := results.Get(tf)
		if res == nil || res.err != nil || res.atr <= 0 {
			continue
		}
		sizing, err := p.riskMgr.Size(signal, res.input.Close, res.atr, res.input.Ensemble)
		if err != nil {
			var degenerate *models.DegenerateRiskError
			if errors.As(err, &degenerate) {
				p.logger.Warn().Err(err).Str("symbol", symbol).Msg("signal not sizable")
				return nil
			}
			p.logger.Error().Err(err).Str("symbol", symbol).Msg("sizing failed")
			return nil
		}
		return sizing
	}
	return nil
}

func (p *Pipeline) symbolState(symbol string) *symbolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[symbol]
	if !ok {
		st = &symbolState{}
		p.states[symbol] = st
	}
	return st
}

func (p *Pipeline) countEvaluation(symbol, outcome string) {
	if p.metrics != nil {
		p.metrics.Evaluations.WithLabelValues(symbol, outcome).Inc()
	}
}

func (p *Pipeline) countDegraded(tf models.Timeframe, err error) {
	if p.metrics == nil {
		return
	}
	reason := "fetch"
	var insufficientData *models.InsufficientDataError
	var insufficientModels *models.InsufficientModelsError
	switch {
	case errors.As(err, &insufficientData):
		reason = "insufficient_data"
	case errors.As(err, &insufficientModels):
		reason = "insufficient_models"
	}
	p.metrics.DegradedTimeframes.WithLabelValues(tf.String(), reason).Inc()
}

func (p *Pipeline) observeSignal(signal *models.MarketSignal, started time.Time) {
	if p.metrics == nil {
		return
	}
	p.metrics.Evaluations.WithLabelValues(signal.Symbol, "ok").Inc()
	p.metrics.ObserveSignal(signal)
	p.metrics.EvaluationLatency.Observe(time.Since(started).Seconds())
}
