package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels fits that produced a model.
	OutcomeSuccess = "success"
	// OutcomeError labels fits aborted by extraction, pairing or fitting errors.
	OutcomeError = "error"
)

var (
	fitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fnt_align",
			Name:      "fits_total",
			Help:      "Total number of clock model fits, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	fitDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fnt_align",
			Name:      "fit_seconds",
			Help:      "Time spent extracting, pairing and fitting one session.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		},
	)

	edgeCountMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fnt_align",
			Name:      "edge_count_mismatch_total",
			Help:      "Sessions whose reference and target rise counts differed.",
		},
	)

	residualMaxAbsSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fnt_align",
			Name:      "residual_max_abs_seconds",
			Help:      "Largest absolute fit residual per session.",
			Buckets:   []float64{1e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2, 0.1, 1},
		},
	)

	remappedTimestampsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fnt_align",
			Name:      "remapped_timestamps_total",
			Help:      "Timestamps converted into the reference clock.",
		},
	)
)

// Register attaches fnt-align collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		fitsTotal,
		fitDurationSeconds,
		edgeCountMismatchTotal,
		residualMaxAbsSeconds,
		remappedTimestampsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveFit records a fit duration and outcome label.
func ObserveFit(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	fitsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	fitDurationSeconds.Observe(duration.Seconds())
}

// ObserveEdgeCountMismatch counts a session with unequal rise counts.
func ObserveEdgeCountMismatch() {
	edgeCountMismatchTotal.Inc()
}

// ObserveResidual records the largest absolute residual of a fit.
func ObserveResidual(maxAbs float64) {
	residualMaxAbsSeconds.Observe(maxAbs)
}

// ObserveRemap counts converted timestamps.
func ObserveRemap(n int) {
	if n <= 0 {
		return
	}
	remappedTimestampsTotal.Add(float64(n))
}
