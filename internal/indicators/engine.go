package indicators

import (
	"math"

	"github.com/Alias1177/Fusion/models"
)

// Standard indicator periods.
const (
	SMAShortPeriod = 20
	SMAMidPeriod   = 50
	SMALongPeriod  = 200

	RSIPeriod = 14
	ATRPeriod = 14
	ADXPeriod = 14

	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9

	BBPeriod = 20
	BBStdDev = 2.0

	StochKPeriod = 14
	StochDPeriod = 3

	IchimokuConversionPeriod = 9
	IchimokuBasePeriod       = 26
	IchimokuSpanBPeriod      = 52

	// atrHistoryLen bounds the ATR samples kept for the volatility
	// percentile fed into risk-level derivation.
	atrHistoryLen = 100

	priceRingLen = 250
	rangeRingLen = 60
)

// Engine computes the indicator set for one (symbol, timeframe) window.
// Updates are incremental: sliding sums and smoothed states instead of a
// full window rescan per bar. Not safe for concurrent use; each timeframe
// stage owns its engine.
type Engine struct {
	bars      int
	prev      models.Candle
	closes    *ring
	highs     *ring
	lows      *ring

	sum20, sum50, sum200 float64
	sumSq20              float64

	avgGain *wilderState
	avgLoss *wilderState

	atr     *wilderState
	atrHist *ring

	emaFast   *emaState
	emaSlow   *emaState
	emaSignal *emaState

	plusDM14  *runningSmooth
	minusDM14 *runningSmooth
	tr14      *runningSmooth
	adx       *wilderState
	plusDI    float64
	minusDI   float64

	kValues *ring
}

// NewEngine returns an engine with no history.
func NewEngine() *Engine {
	return &Engine{
		closes:    newRing(priceRingLen),
		highs:     newRing(rangeRingLen),
		lows:      newRing(rangeRingLen),
		avgGain:   newWilder(RSIPeriod),
		avgLoss:   newWilder(RSIPeriod),
		atr:       newWilder(ATRPeriod),
		atrHist:   newRing(atrHistoryLen),
		emaFast:   newEMA(MACDFastPeriod),
		emaSlow:   newEMA(MACDSlowPeriod),
		emaSignal: newEMA(MACDSignalPeriod),
		plusDM14:  newRunningSmooth(ADXPeriod),
		minusDM14: newRunningSmooth(ADXPeriod),
		tr14:      newRunningSmooth(ADXPeriod),
		adx:       newWilder(ADXPeriod),
		kValues:   newRing(StochDPeriod),
	}
}

// Replay builds an engine from an existing window, oldest bar first.
func Replay(candles []models.Candle) *Engine {
	e := NewEngine()
	for _, c := range candles {
		e.Update(c)
	}
	return e
}

// Update folds one closed bar into the engine state.
func (e *Engine) Update(c models.Candle) {
	e.bars++
	e.closes.push(c.Close)
	e.highs.push(c.High)
	e.lows.push(c.Low)

	// Sliding SMA sums. The sample leaving each window sits k+1 from the
	// ring's end once more than k bars were seen.
	e.sum20 += c.Close
	e.sumSq20 += c.Close * c.Close
	e.sum50 += c.Close
	e.sum200 += c.Close
	if e.bars > SMAShortPeriod {
		old := e.closes.at(e.closes.len() - SMAShortPeriod - 1)
		e.sum20 -= old
		e.sumSq20 -= old * old
	}
	if e.bars > SMAMidPeriod {
		e.sum50 -= e.closes.at(e.closes.len() - SMAMidPeriod - 1)
	}
	if e.bars > SMALongPeriod {
		e.sum200 -= e.closes.at(e.closes.len() - SMALongPeriod - 1)
	}

	// MACD EMAs over closes; the signal line smooths the MACD line.
	e.emaFast.update(c.Close)
	e.emaSlow.update(c.Close)
	if e.emaFast.ready() && e.emaSlow.ready() {
		e.emaSignal.update(e.emaFast.value - e.emaSlow.value)
	}

	if e.bars > 1 {
		change := c.Close - e.prev.Close
		e.avgGain.update(math.Max(change, 0))
		e.avgLoss.update(math.Max(-change, 0))

		tr := trueRange(c, e.prev)
		e.atr.update(tr)
		if e.atr.ready() {
			e.atrHist.push(e.atr.value)
		}

		// Directional movement for ADX.
		upMove := c.High - e.prev.High
		downMove := e.prev.Low - c.Low
		pDM, mDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			pDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			mDM = downMove
		}
		e.plusDM14.update(pDM)
		e.minusDM14.update(mDM)
		e.tr14.update(tr)
		if e.tr14.ready() && e.tr14.value > 0 {
			e.plusDI = 100 * e.plusDM14.value / e.tr14.value
			e.minusDI = 100 * e.minusDM14.value / e.tr14.value
			if sum := e.plusDI + e.minusDI; sum > 0 {
				e.adx.update(100 * math.Abs(e.plusDI-e.minusDI) / sum)
			}
		}
	}
	e.prev = c

	// Stochastic %K over the last 14 bars, %D as its 3-bar SMA.
	if e.bars >= StochKPeriod {
		low, _ := e.lows.tailMinMax(StochKPeriod)
		_, high := e.highs.tailMinMax(StochKPeriod)
		k := 50.0
		if high-low > 0 {
			k = (c.Close - low) / (high - low) * 100
		}
		e.kValues.push(k)
	}
}

func trueRange(c, prev models.Candle) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prev.Close)
	lc := math.Abs(c.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

func (e *Engine) insufficient(name string, need int) error {
	return &models.InsufficientDataError{Indicator: name, Need: need, Have: e.bars}
}

// SMA returns the simple moving average for one of the standard periods.
func (e *Engine) SMA(period int) (float64, error) {
	var sum float64
	switch period {
	case SMAShortPeriod:
		sum = e.sum20
	case SMAMidPeriod:
		sum = e.sum50
	case SMALongPeriod:
		sum = e.sum200
	default:
		return 0, e.insufficient("sma", period)
	}
	if e.bars < period {
		return 0, e.insufficient("sma", period)
	}
	return sum / float64(period), nil
}

// RSI returns the Wilder-smoothed RSI. RSI is 100 when the average loss
// is zero.
func (e *Engine) RSI() (float64, error) {
	if !e.avgGain.ready() {
		return 0, e.insufficient("rsi", RSIPeriod+1)
	}
	if e.avgLoss.value == 0 {
		return 100, nil
	}
	rs := e.avgGain.value / e.avgLoss.value
	return 100 - 100/(1+rs), nil
}

// MACD returns the MACD line, signal line and histogram.
func (e *Engine) MACD() (*models.MACDValues, error) {
	if !e.emaSignal.ready() {
		return nil, e.insufficient("macd", MACDSlowPeriod+MACDSignalPeriod)
	}
	line := e.emaFast.value - e.emaSlow.value
	return &models.MACDValues{
		Line:      line,
		Signal:    e.emaSignal.value,
		Histogram: line - e.emaSignal.value,
	}, nil
}

// Bollinger returns the 20-period SMA with a +-2 sigma envelope.
func (e *Engine) Bollinger() (*models.BollingerBands, error) {
	if e.bars < BBPeriod {
		return nil, e.insufficient("bollinger", BBPeriod)
	}
	n := float64(BBPeriod)
	mean := e.sum20 / n
	variance := e.sumSq20/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	sd := math.Sqrt(variance)
	return &models.BollingerBands{
		Middle: mean,
		Upper:  mean + BBStdDev*sd,
		Lower:  mean - BBStdDev*sd,
	}, nil
}

// ATR returns the Wilder-smoothed average true range.
func (e *Engine) ATR() (float64, error) {
	if !e.atr.ready() {
		return 0, e.insufficient("atr", ATRPeriod+1)
	}
	return e.atr.value, nil
}

// ATRPercentile ranks the current ATR within its recent history, [0,1].
func (e *Engine) ATRPercentile() (float64, error) {
	if !e.atr.ready() || e.atrHist.len() < 2 {
		return 0, e.insufficient("atr_percentile", ATRPeriod+2)
	}
	below := 0
	for i := 0; i < e.atrHist.len(); i++ {
		if e.atrHist.at(i) <= e.atr.value {
			below++
		}
	}
	return float64(below) / float64(e.atrHist.len()), nil
}

// Stochastic returns %K(14) and %D(3).
func (e *Engine) Stochastic() (*models.StochasticValues, error) {
	if e.kValues.len() < StochDPeriod {
		return nil, e.insufficient("stochastic", StochKPeriod+StochDPeriod-1)
	}
	return &models.StochasticValues{
		K: e.kValues.at(e.kValues.len() - 1),
		D: e.kValues.tailSum(StochDPeriod) / StochDPeriod,
	}, nil
}

// ADX returns ADX(14) with the +DI/-DI components.
func (e *Engine) ADX() (*models.ADXValues, error) {
	if !e.adx.ready() {
		return nil, e.insufficient("adx", 2*ADXPeriod+1)
	}
	return &models.ADXValues{
		ADX:     e.adx.value,
		PlusDI:  e.plusDI,
		MinusDI: e.minusDI,
	}, nil
}

// Ichimoku returns the conversion, base and span lines per the standard
// 9/26/52 periods (spans undisplaced).
func (e *Engine) Ichimoku() (*models.IchimokuValues, error) {
	if e.bars < IchimokuSpanBPeriod {
		return nil, e.insufficient("ichimoku", IchimokuSpanBPeriod)
	}
	conv := e.midpoint(IchimokuConversionPeriod)
	base := e.midpoint(IchimokuBasePeriod)
	spanB := e.midpoint(IchimokuSpanBPeriod)
	return &models.IchimokuValues{
		Conversion: conv,
		Base:       base,
		SpanA:      (conv + base) / 2,
		SpanB:      spanB,
	}, nil
}

func (e *Engine) midpoint(period int) float64 {
	low, _ := e.lows.tailMinMax(period)
	_, high := e.highs.tailMinMax(period)
	return (high + low) / 2
}

// Bars returns the number of bars folded in so far.
func (e *Engine) Bars() int {
	return e.bars
}

// Snapshot assembles the indicator set for the current window. Indicators
// without enough history stay nil.
func (e *Engine) Snapshot() *models.IndicatorSet {
	set := &models.IndicatorSet{}
	if v, err := e.SMA(SMAShortPeriod); err == nil {
		set.SMA20 = &v
	}
	if v, err := e.SMA(SMAMidPeriod); err == nil {
		set.SMA50 = &v
	}
	if v, err := e.SMA(SMALongPeriod); err == nil {
		set.SMA200 = &v
	}
	if v, err := e.RSI(); err == nil {
		set.RSI = &v
	}
	if v, err := e.MACD(); err == nil {
		set.MACD = v
	}
	if v, err := e.Bollinger(); err == nil {
		set.Bollinger = v
	}
	if v, err := e.ATR(); err == nil {
		set.ATR = &v
	}
	if v, err := e.Stochastic(); err == nil {
		set.Stochastic = v
	}
	if v, err := e.ADX(); err == nil {
		set.ADX = v
	}
	if v, err := e.Ichimoku(); err == nil {
		set.Ichimoku = v
	}
	return set
}
