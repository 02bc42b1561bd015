package utils

import (
	"testing"
	"time"
)

func TestLatencyWindowQuantile(t *testing.T) {
	window := NewLatencyWindow(10)
	durations := []time.Duration{50 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for _, d := range durations {
		window.Observe(d)
	}

	if window.Len() != len(durations) {
		t.Fatalf("expected %d samples, got %d", len(durations), window.Len())
	}
	if p95 := window.Quantile(0.95); p95 < 40*time.Millisecond {
		t.Fatalf("expected p95 >= 40ms, got %v", p95)
	}
	if min := window.Quantile(0); min != 10*time.Millisecond {
		t.Fatalf("expected minimum 10ms, got %v", min)
	}
}

func TestLatencyWindowIsBounded(t *testing.T) {
	window := NewLatencyWindow(3)
	for i := 1; i <= 10; i++ {
		window.Observe(time.Duration(i) * time.Millisecond)
	}
	if window.Len() != 3 {
		t.Fatalf("expected window size 3, got %d", window.Len())
	}
	if min := window.Quantile(0); min != 8*time.Millisecond {
		t.Fatalf("expected oldest retained sample 8ms, got %v", min)
	}
}

func TestLatencyWindowEmpty(t *testing.T) {
	if got := NewLatencyWindow(0).Quantile(0.5); got != 0 {
		t.Fatalf("expected zero for empty window, got %v", got)
	}
}
