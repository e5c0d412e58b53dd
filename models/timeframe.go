package models

import (
	"fmt"
	"time"
)

// Timeframe is a fixed sampling interval. The set is closed on purpose:
// per-timeframe state lives in TimeframeMap arrays, so every consumer
// handles every timeframe explicitly instead of probing an open map.
type Timeframe int

const (
	TimeframeM5 Timeframe = iota
	TimeframeM15
	TimeframeH1
	TimeframeH4
	TimeframeD1

	TimeframeCount = 5
)

// AllTimeframes returns the timeframes in ascending order of duration.
func AllTimeframes() []Timeframe {
	return []Timeframe{TimeframeM5, TimeframeM15, TimeframeH1, TimeframeH4, TimeframeD1}
}

// String returns the API interval name (same notation as Twelve Data).
func (tf Timeframe) String() string {
	switch tf {
	case TimeframeM5:
		return "5min"
	case TimeframeM15:
		return "15min"
	case TimeframeH1:
		return "1h"
	case TimeframeH4:
		return "4h"
	case TimeframeD1:
		return "1day"
	default:
		return fmt.Sprintf("timeframe(%d)", int(tf))
	}
}

// Duration returns the bar spacing of the timeframe.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TimeframeM5:
		return 5 * time.Minute
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimeframe converts an interval name back into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	for _, tf := range AllTimeframes() {
		if tf.String() == s {
			return tf, nil
		}
	}
	return 0, fmt.Errorf("unknown timeframe %q", s)
}

// TimeframeMap is an exhaustive Timeframe -> value mapping. Unlike a Go
// map it always carries an entry for every timeframe.
type TimeframeMap[T any] [TimeframeCount]T

// Get returns the value stored for tf.
func (m *TimeframeMap[T]) Get(tf Timeframe) T {
	return m[tf]
}

// Set stores v for tf.
func (m *TimeframeMap[T]) Set(tf Timeframe, v T) {
	m[tf] = v
}

// ForEach visits every timeframe in ascending duration order.
func (m *TimeframeMap[T]) ForEach(fn func(tf Timeframe, v T)) {
	for _, tf := range AllTimeframes() {
		fn(tf, m[tf])
	}
}
