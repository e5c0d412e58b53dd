package ensemble

import (
	"math"

	"github.com/Alias1177/Fusion/models"
)

// Feature keys shared between the extractor and the model adapters.
const (
	FeatRSI          = "rsi"
	FeatMACDHist     = "macd_hist_norm"
	FeatBBPosition   = "bb_position"
	FeatStochK       = "stoch_k"
	FeatStochD       = "stoch_d"
	FeatADX          = "adx"
	FeatDISpread     = "di_spread"
	FeatATRPct       = "atr_pct"
	FeatPriceChange  = "price_change_5"
	FeatVolumeChange = "volume_change_5"
	FeatMomentum     = "momentum_10"
	FeatCloudSide    = "ichimoku_cloud_side"
)

// BuildFeatures derives the model feature vector from the indicator set
// and the raw window. Indicators that are unavailable simply do not
// appear in the map; adapters requiring them report an invalid
// prediction instead of guessing.
func BuildFeatures(candles []models.Candle, ind *models.IndicatorSet) models.Features {
	f := models.Features{}
	if len(candles) == 0 || ind == nil {
		return f
	}
	price := candles[len(candles)-1].Close

	if ind.RSI != nil {
		f[FeatRSI] = *ind.RSI
	}
	if ind.MACD != nil && price > 0 {
		f[FeatMACDHist] = ind.MACD.Histogram / price * 1000
	}
	if ind.Bollinger != nil {
		if width := ind.Bollinger.Upper - ind.Bollinger.Lower; width > 0 {
			f[FeatBBPosition] = (price - ind.Bollinger.Lower) / width
		}
	}
	if ind.Stochastic != nil {
		f[FeatStochK] = ind.Stochastic.K
		f[FeatStochD] = ind.Stochastic.D
	}
	if ind.ADX != nil {
		f[FeatADX] = ind.ADX.ADX
		f[FeatDISpread] = ind.ADX.PlusDI - ind.ADX.MinusDI
	}
	if ind.ATR != nil && price > 0 {
		f[FeatATRPct] = *ind.ATR / price * 100
	}
	if ind.Ichimoku != nil {
		top := math.Max(ind.Ichimoku.SpanA, ind.Ichimoku.SpanB)
		bottom := math.Min(ind.Ichimoku.SpanA, ind.Ichimoku.SpanB)
		switch {
		case price > top:
			f[FeatCloudSide] = 1
		case price < bottom:
			f[FeatCloudSide] = -1
		default:
			f[FeatCloudSide] = 0
		}
	}

	if len(candles) >= 6 {
		prev := candles[len(candles)-6]
		if prev.Close > 0 {
			f[FeatPriceChange] = (price - prev.Close) / prev.Close * 100
		}
		if prev.Volume > 0 && candles[len(candles)-1].Volume > 0 {
			f[FeatVolumeChange] = (float64(candles[len(candles)-1].Volume) - float64(prev.Volume)) / float64(prev.Volume) * 100
		}
	}
	if len(candles) >= 11 {
		ref := candles[len(candles)-11].Close
		if ref > 0 {
			f[FeatMomentum] = (price - ref) / ref * 100
		}
	}
	return f
}

// RecognizePatterns maps feature extremes onto named setups with a rough
// probability each.
func RecognizePatterns(f models.Features) []models.PatternMatch {
	var out []models.PatternMatch

	if rsi, ok := f[FeatRSI]; ok {
		if rsi < 30 {
			out = append(out, models.PatternMatch{
				Pattern:     "oversold_reversal",
				Probability: clamp01((30 - rsi) / 30 * 2),
			})
		} else if rsi > 70 {
			out = append(out, models.PatternMatch{
				Pattern:     "overbought_reversal",
				Probability: clamp01((rsi - 70) / 30 * 2),
			})
		}
	}
	if adx, ok := f[FeatADX]; ok && adx > 25 {
		spread := f[FeatDISpread]
		name := "trend_continuation_up"
		if spread < 0 {
			name = "trend_continuation_down"
		}
		out = append(out, models.PatternMatch{
			Pattern:     name,
			Probability: clamp01(adx / 50),
		})
	}
	if pos, ok := f[FeatBBPosition]; ok {
		if pos < 0 {
			out = append(out, models.PatternMatch{Pattern: "band_breakdown", Probability: clamp01(-pos + 0.5)})
		} else if pos > 1 {
			out = append(out, models.PatternMatch{Pattern: "band_breakout", Probability: clamp01(pos - 0.5)})
		}
	}
	if mom, ok := f[FeatMomentum]; ok {
		if vol, okv := f[FeatVolumeChange]; okv && vol > 50 && math.Abs(mom) > 1 {
			name := "volume_backed_momentum_up"
			if mom < 0 {
				name = "volume_backed_momentum_down"
			}
			out = append(out, models.PatternMatch{Pattern: name, Probability: clamp01(math.Abs(mom) / 5)})
		}
	}
	return out
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
