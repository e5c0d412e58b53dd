package series

import (
	"fmt"

	"github.com/Alias1177/Fusion/models"
)

// DefaultWindow covers the longest indicator lookback (SMA200) with room
// for warm-up.
const DefaultWindow = 250

// Series is the append-only rolling bar window for one (symbol, timeframe).
// Appends must come from a single goroutine; symbol pipelines do not share
// series.
type Series struct {
	symbol    string
	timeframe models.Timeframe
	maxBars   int
	candles   []models.Candle
	gaps      int
}

// New creates an empty series. maxBars <= 0 selects DefaultWindow.
func New(symbol string, tf models.Timeframe, maxBars int) *Series {
	if maxBars <= 0 {
		maxBars = DefaultWindow
	}
	return &Series{
		symbol:    symbol,
		timeframe: tf,
		maxBars:   maxBars,
		candles:   make([]models.Candle, 0, maxBars),
	}
}

// Append adds a closed bar. Bars must arrive in strictly increasing
// timestamp order; duplicates and rewinds are rejected. A spacing larger
// than 1.5x the timeframe duration counts as a gap — the gap is flagged,
// never filled.
func (s *Series) Append(c models.Candle) error {
	if last, ok := s.Last(); ok {
		if !c.Timestamp.After(last.Timestamp) {
			return fmt.Errorf("out-of-order bar for %s %s: %s not after %s",
				s.symbol, s.timeframe, c.Timestamp, last.Timestamp)
		}
		spacing := c.Timestamp.Sub(last.Timestamp)
		if d := s.timeframe.Duration(); d > 0 && spacing > d*3/2 {
			s.gaps++
		}
	}

	s.candles = append(s.candles, c)
	if len(s.candles) > s.maxBars {
		// Rolling eviction of the oldest bar.
		copy(s.candles, s.candles[1:])
		s.candles = s.candles[:s.maxBars]
	}
	return nil
}

// Candles returns the current window, oldest first. The slice is a view:
// valid until the next Append.
func (s *Series) Candles() []models.Candle {
	return s.candles
}

// Last returns the most recent bar.
func (s *Series) Last() (models.Candle, bool) {
	if len(s.candles) == 0 {
		return models.Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Len returns the number of retained bars.
func (s *Series) Len() int {
	return len(s.candles)
}

// Gaps returns how many spacing gaps were observed since creation.
func (s *Series) Gaps() int {
	return s.gaps
}

// Symbol returns the instrument this series tracks.
func (s *Series) Symbol() string {
	return s.symbol
}

// Timeframe returns the bar interval of this series.
func (s *Series) Timeframe() models.Timeframe {
	return s.timeframe
}
