package ensemble

import (
	"math"
	"sort"

	"github.com/Alias1177/Fusion/models"
)

const (
	// levelTolerance is the fractional band within which extrema merge
	// into one level.
	levelTolerance = 0.001
	maxLevels      = 3
	minLevelBars   = 20
)

type priceLevel struct {
	price    float64
	strength int
}

// FindLevels derives support and resistance from local extrema of the
// window, merging extrema within the tolerance band. Both slices come
// back nearest-first, at most maxLevels each.
func FindLevels(candles []models.Candle) (support, resistance []float64) {
	if len(candles) < minLevelBars {
		return nil, nil
	}

	var levels []priceLevel

	add := func(price float64) {
		for i := range levels {
			if math.Abs(levels[i].price-price) <= levels[i].price*levelTolerance {
				// Merge into the existing cluster, averaging the level.
				levels[i].price = (levels[i].price*float64(levels[i].strength) + price) / float64(levels[i].strength+1)
				levels[i].strength++
				return
			}
		}
		levels = append(levels, priceLevel{price: price, strength: 1})
	}

	// Swing lows and highs with two confirming bars on each side.
	for i := 2; i < len(candles)-2; i++ {
		c := candles[i]
		if c.Low < candles[i-1].Low && c.Low < candles[i-2].Low &&
			c.Low < candles[i+1].Low && c.Low < candles[i+2].Low {
			add(c.Low)
		}
		if c.High > candles[i-1].High && c.High > candles[i-2].High &&
			c.High > candles[i+1].High && c.High > candles[i+2].High {
			add(c.High)
		}
	}

	// Recent closes near a level strengthen it.
	start := len(candles) - 10
	if start < 0 {
		start = 0
	}
	for i := start; i < len(candles); i++ {
		for j := range levels {
			if math.Abs(candles[i].Close-levels[j].price) <= levels[j].price*levelTolerance*2 {
				levels[j].strength++
			}
		}
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].strength > levels[j].strength
	})

	current := candles[len(candles)-1].Close
	for _, l := range levels {
		if l.price < current {
			support = append(support, l.price)
		} else if l.price > current {
			resistance = append(resistance, l.price)
		}
	}

	// Nearest levels first.
	sort.Sort(sort.Reverse(sort.Float64Slice(support)))
	sort.Float64s(resistance)

	if len(support) > maxLevels {
		support = support[:maxLevels]
	}
	if len(resistance) > maxLevels {
		resistance = resistance[:maxLevels]
	}
	return support, resistance
}
