package extractors

import (
	"errors"
	"fmt"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// ErrUnsortedLog signals a pulse log whose timestamps are not ascending.
var ErrUnsortedLog = errors.New("pulse log not sorted by timestamp")

// EdgeExtractor turns a pulse state log into rising-edge timestamps.
//
// The line is assumed low before the first record, so the first sample counts
// as a rise exactly when its state is high. Both clocks use the same rule.
type EdgeExtractor struct{}

// NewEdgeExtractor creates an edge extractor.
func NewEdgeExtractor() *EdgeExtractor {
	return &EdgeExtractor{}
}

// Extract returns the timestamps of every 0->1 transition, in order.
func (e *EdgeExtractor) Extract(log models.PulseStateLog) (models.EdgeSequence, error) {
	if len(log) == 0 {
		return models.EdgeSequence{}, nil
	}
	if !log.IsSorted() {
		return nil, ErrUnsortedLog
	}

	edges := make(models.EdgeSequence, 0, len(log)/2+1)
	prev := 0
	for _, sample := range log {
		state := int(sample.State)
		if state-prev == 1 {
			edges = append(edges, sample.Timestamp)
		}
		prev = state
	}
	return edges, nil
}

// MergeTransitions interleaves separately logged "set" (line high) and "clear"
// (line low) event times into one log sorted by timestamp.
func MergeTransitions(set, clear []float64) models.PulseStateLog {
	log := make(models.PulseStateLog, 0, len(set)+len(clear))
	for _, ts := range set {
		log = append(log, models.PulseSample{Timestamp: ts, State: 1})
	}
	for _, ts := range clear {
		log = append(log, models.PulseSample{Timestamp: ts, State: 0})
	}
	return log.Sorted()
}

// ThresholdTransitions digitises a uniformly sampled trace. It emits the first
// sample and then one record at every level change. Sample i is stamped
// offset + i/rate seconds.
func ThresholdTransitions(samples []float64, rate, threshold, offset float64) (models.PulseStateLog, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", rate)
	}
	var log models.PulseStateLog
	var prev uint8
	for i, v := range samples {
		var state uint8
		if v >= threshold {
			state = 1
		}
		if i == 0 || state != prev {
			log = append(log, models.PulseSample{Timestamp: offset + float64(i)/rate, State: state})
		}
		prev = state
	}
	return log, nil
}
