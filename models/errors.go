package models

import "fmt"

// InsufficientDataError reports a rolling window shorter than an
// indicator's minimum lookback. The affected indicator stays nil in the
// IndicatorSet; it is never substituted with a default.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Have      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: need %d bars, have %d", e.Indicator, e.Need, e.Have)
}

// InsufficientModelsError reports an ensemble degraded below the minimum
// number of valid model predictions. The timeframe is excluded from
// fusion, not zero-weighted.
type InsufficientModelsError struct {
	Valid    int
	Required int
}

func (e *InsufficientModelsError) Error() string {
	return fmt.Sprintf("ensemble degraded: %d valid models, need %d", e.Valid, e.Required)
}

// NoSignalError reports a tick on which every timeframe was unavailable.
// Callers must not open positions on this error.
type NoSignalError struct {
	Symbol string
}

func (e *NoSignalError) Error() string {
	return fmt.Sprintf("no usable timeframe for %s", e.Symbol)
}

// DegenerateRiskError reports inputs on which a position cannot be sized
// safely (zero or negative stop distance).
type DegenerateRiskError struct {
	Entry    float64
	StopLoss float64
}

func (e *DegenerateRiskError) Error() string {
	return fmt.Sprintf("cannot size position: entry %.5f stop %.5f", e.Entry, e.StopLoss)
}
