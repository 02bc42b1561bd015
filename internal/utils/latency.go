package utils

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencyWindow keeps the most recent request durations in a fixed ring and
// reports quantiles over them.
type LatencyWindow struct {
	mu   sync.Mutex
	ring []time.Duration
	next int
	full bool
}

// NewLatencyWindow creates a window holding up to size samples.
func NewLatencyWindow(size int) *LatencyWindow {
	if size <= 0 {
		size = 512
	}
	return &LatencyWindow{ring: make([]time.Duration, size)}
}

// Observe records a duration, overwriting the oldest once the window is full.
func (w *LatencyWindow) Observe(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.ring[w.next] = d
	w.next++
	if w.next == len(w.ring) {
		w.next = 0
		w.full = true
	}
}

// Len returns the number of samples held.
func (w *LatencyWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.len()
}

func (w *LatencyWindow) len() int {
	if w.full {
		return len(w.ring)
	}
	return w.next
}

// Quantile returns the empirical q-quantile (0..1) of the held samples, or zero
// when the window is empty.
func (w *LatencyWindow) Quantile(q float64) time.Duration {
	w.mu.Lock()
	n := w.len()
	nanos := make([]float64, n)
	for i := 0; i < n; i++ {
		nanos[i] = float64(w.ring[i])
	}
	w.mu.Unlock()

	if n == 0 {
		return 0
	}
	switch {
	case q < 0:
		q = 0
	case q > 1:
		q = 1
	}
	sort.Float64s(nanos)
	return time.Duration(stat.Quantile(q, stat.Empirical, nanos, nil))
}
