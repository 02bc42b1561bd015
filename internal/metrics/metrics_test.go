package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterTwiceIsTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should be tolerated, got %v", err)
	}
}

func TestObserveFitLabelsOutcome(t *testing.T) {
	before := testutil.ToFloat64(fitsTotal.WithLabelValues(OutcomeSuccess))
	ObserveFit(10*time.Millisecond, "anything-else")
	after := testutil.ToFloat64(fitsTotal.WithLabelValues(OutcomeSuccess))
	if after-before != 1 {
		t.Fatalf("expected success counter to increase by 1, got %v", after-before)
	}

	beforeErr := testutil.ToFloat64(fitsTotal.WithLabelValues(OutcomeError))
	ObserveFit(-time.Second, OutcomeError)
	afterErr := testutil.ToFloat64(fitsTotal.WithLabelValues(OutcomeError))
	if afterErr-beforeErr != 1 {
		t.Fatalf("expected error counter to increase by 1, got %v", afterErr-beforeErr)
	}
}

func TestObserveRemapIgnoresEmpty(t *testing.T) {
	before := testutil.ToFloat64(remappedTimestampsTotal)
	ObserveRemap(0)
	ObserveRemap(3)
	after := testutil.ToFloat64(remappedTimestampsTotal)
	if after-before != 3 {
		t.Fatalf("expected 3 remapped timestamps, got %v", after-before)
	}
}
