package fusion

import "github.com/Alias1177/Fusion/models"

// hysteresisState tracks direction flips for one symbol. A new direction
// must repeat on consecutive ticks before it replaces the emitted one;
// until then the previous direction keeps being emitted.
type hysteresisState struct {
	emitted   models.Direction
	candidate models.Direction
	streak    int
}

// confirm applies flip hysteresis and returns the direction to emit.
// The very first tick for a symbol emits immediately.
func (e *Engine) confirm(symbol string, dir models.Direction) models.Direction {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.state[symbol]
	if !ok {
		e.state[symbol] = &hysteresisState{emitted: dir}
		return dir
	}

	if dir == st.emitted {
		st.candidate = ""
		st.streak = 0
		return st.emitted
	}

	if dir == st.candidate {
		st.streak++
	} else {
		st.candidate = dir
		st.streak = 1
	}

	if st.streak >= e.cfg.ConfirmTicks {
		st.emitted = dir
		st.candidate = ""
		st.streak = 0
	}
	return st.emitted
}
