package models

import "context"

// MarketDataProvider supplies candles per (symbol, timeframe). Contract:
// timestamps strictly increasing, no duplicate bars, gaps flagged by the
// series layer rather than silently filled.
type MarketDataProvider interface {
	GetCandles(ctx context.Context, symbol string, tf Timeframe, count int) ([]Candle, error)
}

// Model is the single capability a classifier adapter has to offer.
// Implementations must be deterministic: identical features produce an
// identical prediction.
type Model interface {
	Name() string
	Predict(features Features) (ModelPrediction, error)
}

// ModelRegistry supplies the trained models for a timeframe together with
// each model's rolling historical accuracy, used as the vote weight.
type ModelRegistry interface {
	Models(tf Timeframe) []Model
	Accuracy(model string, tf Timeframe) float64
}

// OrderRequest is what the engine hands to the execution layer.
type OrderRequest struct {
	SignalID  string
	Symbol    string
	Direction Direction
	Sizing    PositionSizing
	Strategy  string
}

// ExecutionGateway places orders and reports realized results back as
// trade-close events.
type ExecutionGateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) error
	TradeCloses() <-chan TradeClose
}

// ConfigurationProvider supplies named configuration to the engine.
type ConfigurationProvider interface {
	RiskProfile() RiskProfile
	RiskConfig() RiskConfig
	FusionConfig() FusionConfig
	ManipulationConfig() ManipulationConfig
	TimeframeWeights() TimeframeMap[float64]
}

// TradeJournal persists trade-close events so the performance tracker can
// be rebuilt after a restart.
type TradeJournal interface {
	RecordTradeClose(ctx context.Context, tc TradeClose) error
	ListTradeCloses(ctx context.Context, symbol string) ([]TradeClose, error)
}
