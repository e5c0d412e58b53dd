package indicators

// ring is a fixed-capacity circular buffer of float64 samples. It backs
// the sliding windows so each Update stays O(1) instead of rescanning the
// whole bar window.
type ring struct {
	buf  []float64
	head int // index of the oldest sample
	n    int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]float64, capacity)}
}

// push appends v, evicting the oldest sample once the buffer is full.
func (r *ring) push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// at returns the i-th sample counted from the oldest (0-based).
func (r *ring) at(i int) float64 {
	return r.buf[(r.head+i)%len(r.buf)]
}

// len returns the number of stored samples.
func (r *ring) len() int {
	return r.n
}

// tailMinMax scans the most recent k samples.
func (r *ring) tailMinMax(k int) (min, max float64) {
	if k > r.n {
		k = r.n
	}
	for i := r.n - k; i < r.n; i++ {
		v := r.at(i)
		if i == r.n-k || v < min {
			min = v
		}
		if i == r.n-k || v > max {
			max = v
		}
	}
	return min, max
}

// tailSum sums the most recent k samples.
func (r *ring) tailSum(k int) float64 {
	if k > r.n {
		k = r.n
	}
	var sum float64
	for i := r.n - k; i < r.n; i++ {
		sum += r.at(i)
	}
	return sum
}
