package manipulation

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Fusion/models"
)

// rollingWindow is the baseline window for volume and return statistics.
const rollingWindow = 20

// breakoutLookback is the window defining the breakout level a fakeout
// has to fail against.
const breakoutLookback = 20

// DefaultConfig mirrors the conventional thresholds: a 3x volume spike, a
// 2.5-sigma unsupported move and a 5-bar fakeout confirmation window with
// a 0.1% holding margin.
func DefaultConfig() models.ManipulationConfig {
	return models.ManipulationConfig{
		VolumeSpikeRatio: 3.0,
		PriceMoveSigma:   2.5,
		FakeoutWindow:    5,
		FakeoutMargin:    0.001,
	}
}

// Detector flags abnormal volume, unsupported price moves and failed
// breakouts on one timeframe.
type Detector struct {
	cfg    models.ManipulationConfig
	logger zerolog.Logger
}

// New creates a detector; zero-value config fields fall back to defaults.
func New(cfg models.ManipulationConfig) *Detector {
	def := DefaultConfig()
	if cfg.VolumeSpikeRatio <= 0 {
		cfg.VolumeSpikeRatio = def.VolumeSpikeRatio
	}
	if cfg.PriceMoveSigma <= 0 {
		cfg.PriceMoveSigma = def.PriceMoveSigma
	}
	if cfg.FakeoutWindow <= 0 {
		cfg.FakeoutWindow = def.FakeoutWindow
	}
	if cfg.FakeoutMargin <= 0 {
		cfg.FakeoutMargin = def.FakeoutMargin
	}
	return &Detector{
		cfg:    cfg,
		logger: log.With().Str("component", "manipulation").Logger(),
	}
}

// Inspect evaluates the current window. With fewer bars than the rolling
// baseline it reports clean flags rather than guessing.
func (d *Detector) Inspect(candles []models.Candle) *models.ManipulationFlags {
	flags := &models.ManipulationFlags{}
	if len(candles) < rollingWindow+1 {
		return flags
	}

	current := candles[len(candles)-1]

	// Volume baseline over the prior window, current bar excluded.
	var volSum float64
	withVolume := 0
	for i := len(candles) - rollingWindow - 1; i < len(candles)-1; i++ {
		if candles[i].Volume > 0 {
			volSum += float64(candles[i].Volume)
			withVolume++
		}
	}
	volRatio := 0.0
	if withVolume > 0 && current.Volume > 0 {
		avgVol := volSum / float64(withVolume)
		if avgVol > 0 {
			volRatio = float64(current.Volume) / avgVol
		}
		if volRatio > d.cfg.VolumeSpikeRatio {
			flags.UnusualVolume = true
		}
	}

	// Single-bar return against the rolling return sigma. A move far
	// outside the distribution without a proportional volume response is
	// treated as unsupported.
	returns := barReturns(candles[len(candles)-rollingWindow-1:])
	sigma := stdDev(returns[:len(returns)-1])
	deviation := 0.0
	if sigma > 0 {
		deviation = math.Abs(returns[len(returns)-1]) / sigma
		if deviation > d.cfg.PriceMoveSigma && volRatio < deviation {
			flags.PriceManipulation = true
		}
	}

	flags.FakeoutDetected = d.detectFakeout(candles)

	// Volume/price divergence: strongly anti-correlated volume and price
	// changes over the window add to the score.
	divergence := correlation(returns[:len(returns)-1], volumeChanges(candles[len(candles)-rollingWindow-1:len(candles)-1]))

	score := 0.0
	if flags.UnusualVolume {
		score += 0.25
	}
	if flags.PriceManipulation {
		score += 0.35
	}
	if flags.FakeoutDetected {
		score += 0.25
	}
	if sigma > 0 {
		score += 0.15 * math.Min(deviation/(2*d.cfg.PriceMoveSigma), 1)
	}
	if divergence < 0 {
		score += 0.1 * -divergence
	}
	flags.Score = math.Min(score, 1)

	if flags.Score > 0 {
		d.logger.Debug().
			Bool("unusual_volume", flags.UnusualVolume).
			Bool("price_manipulation", flags.PriceManipulation).
			Bool("fakeout", flags.FakeoutDetected).
			Float64("score", flags.Score).
			Msg("manipulation flags raised")
	}
	return flags
}

// detectFakeout looks for a close beyond the prior breakout range that
// fell back inside within the confirmation window without ever holding
// the margin beyond the level.
func (d *Detector) detectFakeout(candles []models.Candle) bool {
	window := d.cfg.FakeoutWindow
	if len(candles) < breakoutLookback+window+1 {
		return false
	}

	for offset := 1; offset <= window; offset++ {
		breakIdx := len(candles) - 1 - offset
		// Breakout level from the bars preceding the candidate bar.
		upper, lower := rangeLevels(candles[breakIdx-breakoutLookback : breakIdx])
		bar := candles[breakIdx]

		if bar.Close > upper {
			if failedToHold(candles[breakIdx+1:], upper, true, d.cfg.FakeoutMargin) {
				return true
			}
		}
		if bar.Close < lower {
			if failedToHold(candles[breakIdx+1:], lower, false, d.cfg.FakeoutMargin) {
				return true
			}
		}
	}
	return false
}

// failedToHold reports whether price closed back inside the broken range
// without any close holding the margin beyond the level.
func failedToHold(after []models.Candle, level float64, upward bool, margin float64) bool {
	if len(after) == 0 {
		return false
	}
	reversed := false
	for _, c := range after {
		if upward {
			if c.Close >= level*(1+margin) {
				return false
			}
			if c.Close < level {
				reversed = true
			}
		} else {
			if c.Close <= level*(1-margin) {
				return false
			}
			if c.Close > level {
				reversed = true
			}
		}
	}
	return reversed
}

func rangeLevels(candles []models.Candle) (upper, lower float64) {
	for i, c := range candles {
		if i == 0 || c.High > upper {
			upper = c.High
		}
		if i == 0 || c.Low < lower {
			lower = c.Low
		}
	}
	return upper, lower
}

func barReturns(candles []models.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		if candles[i-1].Close == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (candles[i].Close-candles[i-1].Close)/candles[i-1].Close)
	}
	return out
}

func volumeChanges(candles []models.Candle) []float64 {
	out := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := float64(candles[i-1].Volume)
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (float64(candles[i].Volume)-prev)/prev)
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}

func correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]
	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := 0; i < n; i++ {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}
