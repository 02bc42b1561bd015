package extractors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

func logFromStates(states ...uint8) models.PulseStateLog {
	log := make(models.PulseStateLog, len(states))
	for i, s := range states {
		log[i] = models.PulseSample{Timestamp: float64(i) * 0.5, State: s}
	}
	return log
}

func TestEdgeExtractorExtract(t *testing.T) {
	extractor := NewEdgeExtractor()

	tests := []struct {
		name string
		log  models.PulseStateLog
		want models.EdgeSequence
	}{
		{name: "empty", log: nil, want: models.EdgeSequence{}},
		{name: "starts low", log: logFromStates(0, 1, 1, 0, 1), want: models.EdgeSequence{0.5, 2.0}},
		{name: "starts high", log: logFromStates(1, 0, 1), want: models.EdgeSequence{0, 1.0}},
		{name: "single high sample", log: logFromStates(1), want: models.EdgeSequence{0}},
		{name: "single low sample", log: logFromStates(0), want: models.EdgeSequence{}},
		{name: "repeated highs", log: logFromStates(0, 1, 1, 1, 0, 0, 1), want: models.EdgeSequence{0.5, 3.0}},
		{name: "all high", log: logFromStates(1, 1, 1), want: models.EdgeSequence{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractor.Extract(tt.log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEdgeExtractorIdempotent(t *testing.T) {
	extractor := NewEdgeExtractor()
	log := logFromStates(1, 0, 1, 1, 0, 1, 0)

	first, err := extractor.Extract(log)
	require.NoError(t, err)
	second, err := extractor.Extract(log)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, models.EdgeSequence{0, 1.0, 2.5}, first)
}

func TestEdgeExtractorRejectsUnsortedLog(t *testing.T) {
	log := models.PulseStateLog{{Timestamp: 2, State: 1}, {Timestamp: 1, State: 0}}
	_, err := NewEdgeExtractor().Extract(log)
	assert.ErrorIs(t, err, ErrUnsortedLog)
}

func TestMergeTransitions(t *testing.T) {
	set := []float64{1.0, 3.0, 5.0}
	clear := []float64{1.5, 3.5}

	log := MergeTransitions(set, clear)
	assert.Equal(t, models.PulseStateLog{
		{Timestamp: 1.0, State: 1},
		{Timestamp: 1.5, State: 0},
		{Timestamp: 3.0, State: 1},
		{Timestamp: 3.5, State: 0},
		{Timestamp: 5.0, State: 1},
	}, log)

	edges, err := NewEdgeExtractor().Extract(log)
	require.NoError(t, err)
	assert.Equal(t, models.EdgeSequence(set), edges)
}

func TestThresholdTransitions(t *testing.T) {
	samples := []float64{0, 0, 4.8, 5, 5, 0.1, 0, 5}
	log, err := ThresholdTransitions(samples, 10, 2.5, 100)
	require.NoError(t, err)

	want := models.PulseStateLog{
		{Timestamp: 100, State: 0},
		{Timestamp: 100.2, State: 1},
		{Timestamp: 100.5, State: 0},
		{Timestamp: 100.7, State: 1},
	}
	require.Len(t, log, len(want))
	for i := range want {
		assert.Equal(t, want[i].State, log[i].State, "record %d", i)
		assert.InDelta(t, want[i].Timestamp, log[i].Timestamp, 1e-9, "record %d", i)
	}

	_, err = ThresholdTransitions(samples, 0, 2.5, 0)
	assert.Error(t, err)
}
