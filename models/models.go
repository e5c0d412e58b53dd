package models

import (
	"time"
)

// Candle represents a single OHLCV bar.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume,omitempty"`
}

// Direction is the three-way trade direction.
type Direction string

const (
	DirectionBuy     Direction = "buy"
	DirectionSell    Direction = "sell"
	DirectionNeutral Direction = "neutral"
)

// PredictionLabel is the three-way classifier output.
type PredictionLabel string

const (
	LabelBullish PredictionLabel = "bullish"
	LabelBearish PredictionLabel = "bearish"
	LabelNeutral PredictionLabel = "neutral"
)

// RiskLevel grades the riskiness of acting on a signal.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// MACDValues holds the MACD line, its signal line and the histogram.
type MACDValues struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the middle band and the +-2 sigma envelope.
type BollingerBands struct {
	Middle float64 `json:"middle"`
	Upper  float64 `json:"upper"`
	Lower  float64 `json:"lower"`
}

// StochasticValues holds %K and the %D smoothing.
type StochasticValues struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// ADXValues holds ADX with its directional components.
type ADXValues struct {
	ADX     float64 `json:"adx"`
	PlusDI  float64 `json:"plus_di"`
	MinusDI float64 `json:"minus_di"`
}

// IchimokuValues holds the four computed Ichimoku lines.
type IchimokuValues struct {
	Conversion float64 `json:"conversion"`
	Base       float64 `json:"base"`
	SpanA      float64 `json:"span_a"`
	SpanB      float64 `json:"span_b"`
}

// IndicatorSet is the full indicator snapshot for one timeframe. A nil
// field means the rolling window is still shorter than that indicator's
// lookback; consumers must skip it, never treat it as zero.
type IndicatorSet struct {
	SMA20      *float64          `json:"sma20"`
	SMA50      *float64          `json:"sma50"`
	SMA200     *float64          `json:"sma200"`
	RSI        *float64          `json:"rsi"`
	MACD       *MACDValues       `json:"macd"`
	Bollinger  *BollingerBands   `json:"bollinger"`
	ATR        *float64          `json:"atr"`
	Stochastic *StochasticValues `json:"stochastic"`
	ADX        *ADXValues        `json:"adx"`
	Ichimoku   *IchimokuValues   `json:"ichimoku"`
}

// Features is the flat feature vector fed into model adapters.
type Features map[string]float64

// ModelPrediction is a single classifier's vote for one timeframe.
type ModelPrediction struct {
	Label       PredictionLabel `json:"label"`
	Probability float64         `json:"probability"` // [0,1]
}

// PatternMatch is one recognized price pattern with its probability.
type PatternMatch struct {
	Pattern     string  `json:"pattern"`
	Probability float64 `json:"probability"`
}

// EnsemblePrediction is the fused output of all model adapters for one
// timeframe.
type EnsemblePrediction struct {
	Prediction         PredictionLabel `json:"prediction"`
	ConfidenceScore    float64         `json:"confidence_score"` // [0,1]
	PatternRecognition []PatternMatch  `json:"pattern_recognition"`
	SupportLevels      []float64       `json:"support_levels"`
	ResistanceLevels   []float64       `json:"resistance_levels"`
}

// ManipulationFlags marks suspicious behaviour on one timeframe.
type ManipulationFlags struct {
	UnusualVolume     bool    `json:"unusual_volume"`
	PriceManipulation bool    `json:"price_manipulation"`
	FakeoutDetected   bool    `json:"fakeout_detected"`
	Score             float64 `json:"score"` // [0,1]
}

// TimeframeSignal is the fused signal of a single timeframe.
type TimeframeSignal struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"` // [0,1]
	Agreement  float64   `json:"agreement"`  // technical vs ML agreement, [0,1]
}

// OverallSignal is the cross-timeframe verdict.
type OverallSignal struct {
	Direction  Direction `json:"direction"`
	Confidence float64   `json:"confidence"` // [0,1]
	Strength   int       `json:"strength"`   // [0,10]
	RiskLevel  RiskLevel `json:"risk_level"`
}

// MarketSignal is the single authoritative signal schema. A nil entry in
// PerTimeframe means that timeframe was unavailable for this tick and was
// excluded from aggregation.
type MarketSignal struct {
	ID           string                         `json:"id"`
	Symbol       string                         `json:"symbol"`
	Overall      OverallSignal                  `json:"overall"`
	PerTimeframe TimeframeMap[*TimeframeSignal] `json:"per_timeframe"`
	GeneratedAt  time.Time                      `json:"generated_at"`
}

// RiskProfile is the account-level risk configuration. The engine only
// reads it; mutation happens through configuration alone.
type RiskProfile struct {
	Equity          float64 `json:"equity"`
	MaxRiskPerTrade float64 `json:"max_risk_per_trade"` // fraction of equity
	MaxPositionSize float64 `json:"max_position_size"`  // fraction of equity
}

// PositionSizing is the sizer output for one signal.
type PositionSizing struct {
	EntryPrice      float64 `json:"entry_price"`
	PositionSize    float64 `json:"position_size"`  // units of the instrument
	RiskPerTrade    float64 `json:"risk_per_trade"` // currency at risk
	StopLoss        float64 `json:"stop_loss"`
	TakeProfit      float64 `json:"take_profit"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

// TradeClose is a closed-trade event reported by the execution gateway.
type TradeClose struct {
	TradeID   string    `json:"trade_id"`
	Symbol    string    `json:"symbol"`
	Timeframe Timeframe `json:"timeframe"`
	Strategy  string    `json:"strategy"`
	Return    float64   `json:"return"` // fractional return on risked capital
	PnL       float64   `json:"pnl"`    // realized P&L in account currency
	ClosedAt  time.Time `json:"closed_at"`
}

// DrawdownStats describes the running equity drawdown.
type DrawdownStats struct {
	Current      float64 `json:"current"`
	Maximum      float64 `json:"maximum"`
	Average      float64 `json:"average"`
	DurationDays float64 `json:"duration_days"`
}

// PerformanceSnapshot is the read-only view over the rolling trade-return
// series.
type PerformanceSnapshot struct {
	TotalTrades          int                   `json:"total_trades"`
	WinRate              float64               `json:"win_rate"`
	WinRateByTimeframe   TimeframeMap[float64] `json:"win_rate_by_timeframe"`
	ProfitLoss           float64               `json:"profit_loss"`
	ProfitLossByStrategy map[string]float64    `json:"profit_loss_by_strategy"`
	SharpeRatio          float64               `json:"sharpe_ratio"`
	SortinoRatio         float64               `json:"sortino_ratio"`
	CalmarRatio          float64               `json:"calmar_ratio"`
	InformationRatio     float64               `json:"information_ratio"`
	Drawdown             DrawdownStats         `json:"drawdown"`
}

// FusionConfig holds the fusion weights and thresholds.
type FusionConfig struct {
	TechnicalWeight     float64 // weight of the technical score in the blend
	MLWeight            float64 // weight of the ensemble score in the blend
	DirectionThreshold  float64 // quantization threshold for buy/sell
	ManipulationDamping float64 // multiplier applied on a priceManipulation flag
	ConfirmTicks        int     // consecutive ticks before a direction flip
}

// RiskConfig holds the sizer parameters.
type RiskConfig struct {
	ATRStopMultiplier  float64
	TargetRatio        float64
	MinRiskReward      float64 // floor for a level-based take-profit override
	HighRiskMultiplier float64 // extra size multiplier on HIGH risk signals
	AnnualizationBars  float64 // periods per year for Sharpe/Sortino scaling
}

// ManipulationConfig holds the detector thresholds.
type ManipulationConfig struct {
	VolumeSpikeRatio float64 // k: volume vs rolling average
	PriceMoveSigma   float64 // m: single-bar return in stddevs
	FakeoutWindow    int     // bars to confirm a failed breakout
	FakeoutMargin    float64 // fractional margin a breakout must hold
}
