package indicators

// emaState is an incrementally updated exponential moving average, seeded
// with the SMA of the first period samples.
type emaState struct {
	period int
	seen   int
	seed   float64
	value  float64
}

func newEMA(period int) *emaState {
	return &emaState{period: period}
}

func (e *emaState) update(v float64) {
	e.seen++
	if e.seen < e.period {
		e.seed += v
		return
	}
	if e.seen == e.period {
		e.seed += v
		e.value = e.seed / float64(e.period)
		return
	}
	k := 2.0 / float64(e.period+1)
	e.value += (v - e.value) * k
}

func (e *emaState) ready() bool {
	return e.seen >= e.period
}

// wilderState is Wilder's smoothing: seeded with the arithmetic mean of
// the first period samples, then s = (s*(n-1) + v) / n.
type wilderState struct {
	period int
	seen   int
	seed   float64
	value  float64
}

func newWilder(period int) *wilderState {
	return &wilderState{period: period}
}

func (w *wilderState) update(v float64) {
	w.seen++
	if w.seen < w.period {
		w.seed += v
		return
	}
	if w.seen == w.period {
		w.seed += v
		w.value = w.seed / float64(w.period)
		return
	}
	w.value = (w.value*float64(w.period-1) + v) / float64(w.period)
}

func (w *wilderState) ready() bool {
	return w.seen >= w.period
}

// runningSmooth is Wilder's running-total smoothing used by ADX for the
// directional movement and true range accumulators: seeded with the sum of
// the first period samples, then s = s - s/n + v.
type runningSmooth struct {
	period int
	seen   int
	value  float64
}

func newRunningSmooth(period int) *runningSmooth {
	return &runningSmooth{period: period}
}

func (s *runningSmooth) update(v float64) {
	s.seen++
	if s.seen <= s.period {
		s.value += v
		return
	}
	s.value = s.value - s.value/float64(s.period) + v
}

func (s *runningSmooth) ready() bool {
	return s.seen >= s.period
}
