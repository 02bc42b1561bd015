package models

import "sort"

// PulseSample is one level record of a digital line as seen by one clock.
type PulseSample struct {
	Timestamp float64
	State     uint8
}

// PulseStateLog is an ordered sequence of level records for one digital line.
type PulseStateLog []PulseSample

// IsSorted reports whether timestamps are non-decreasing.
func (l PulseStateLog) IsSorted() bool {
	return sort.SliceIsSorted(l, func(i, j int) bool { return l[i].Timestamp < l[j].Timestamp })
}

// Sorted returns a copy of the log stable-sorted by timestamp.
func (l PulseStateLog) Sorted() PulseStateLog {
	out := append(PulseStateLog(nil), l...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out
}

// Timestamps returns the timestamp column.
func (l PulseStateLog) Timestamps() []float64 {
	out := make([]float64, len(l))
	for i, s := range l {
		out[i] = s.Timestamp
	}
	return out
}

// States returns the state column.
func (l PulseStateLog) States() []uint8 {
	out := make([]uint8, len(l))
	for i, s := range l {
		out[i] = s.State
	}
	return out
}

// EdgeSequence holds rising-edge timestamps from one clock, in emission order.
type EdgeSequence []float64

// Len returns the number of edges.
func (e EdgeSequence) Len() int { return len(e) }

// Head returns the first n edges (or all of them when n exceeds the length).
func (e EdgeSequence) Head(n int) EdgeSequence {
	if n < 0 {
		n = 0
	}
	if n > len(e) {
		n = len(e)
	}
	return e[:n:n]
}

// Clone returns an independent copy.
func (e EdgeSequence) Clone() EdgeSequence {
	if e == nil {
		return nil
	}
	return append(EdgeSequence(nil), e...)
}

// ClockPair couples reference-clock and target-clock edges believed to correspond 1:1.
type ClockPair struct {
	Reference EdgeSequence
	Target    EdgeSequence
}

// Len returns the number of usable pairs (the shorter side).
func (p ClockPair) Len() int {
	return min(len(p.Reference), len(p.Target))
}

// Truncated returns the pair cut down to the common length.
func (p ClockPair) Truncated() ClockPair {
	n := p.Len()
	return ClockPair{Reference: p.Reference.Head(n), Target: p.Target.Head(n)}
}
