package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

func TestFitRecoversExactAffineMap(t *testing.T) {
	target := models.EdgeSequence{0.1, 1.3, 2.2, 3.9, 5.0, 7.25}
	reference := make(models.EdgeSequence, len(target))
	for i, v := range target {
		reference[i] = 2.0*v + 0.5
	}

	model, err := Fit(reference, target)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, model.Slope(), 1e-9)
	assert.InDelta(t, 0.5, model.Intercept(), 1e-9)
	assert.Equal(t, len(target), model.Pairs())

	report, err := NewResidualAnalyzer(0).AnalyzeModel(model)
	require.NoError(t, err)
	assert.InDelta(t, 0, report.MaxAbs, 1e-9)
	assert.False(t, report.ExceedsThreshold)
}

func TestFitShiftedClocks(t *testing.T) {
	model, err := Fit(models.EdgeSequence{1, 2, 3, 4}, models.EdgeSequence{0, 1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, model.Slope(), 1e-12)
	assert.InDelta(t, 1.0, model.Intercept(), 1e-12)
	assert.InDelta(t, 11.0, model.At(10), 1e-12)
}

func TestFitTwoPointsIsExact(t *testing.T) {
	model, err := Fit(models.EdgeSequence{10, 30}, models.EdgeSequence{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 20.0, model.Slope(), 1e-12)
	assert.InDelta(t, -10.0, model.Intercept(), 1e-12)
}

func TestFitFailures(t *testing.T) {
	tests := []struct {
		name      string
		reference models.EdgeSequence
		target    models.EdgeSequence
		want      error
	}{
		{name: "no pairs", reference: models.EdgeSequence{}, target: models.EdgeSequence{}, want: ErrMissingInput},
		{name: "single pair", reference: models.EdgeSequence{1}, target: models.EdgeSequence{0}, want: ErrInsufficientData},
		{name: "constant target", reference: models.EdgeSequence{1, 2, 3}, target: models.EdgeSequence{5, 5, 5}, want: ErrDegenerateFit},
		{name: "unequal lengths", reference: models.EdgeSequence{1, 2, 3}, target: models.EdgeSequence{1, 2}, want: ErrEdgeCountMismatch},
		{name: "nan reference", reference: models.EdgeSequence{1, math.NaN(), 3}, target: models.EdgeSequence{1, 2, 3}, want: ErrMissingInput},
		{name: "inf target", reference: models.EdgeSequence{1, 2, 3}, target: models.EdgeSequence{1, math.Inf(1), 3}, want: ErrMissingInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			model, err := Fit(tc.reference, tc.target)
			require.Error(t, err)
			assert.Nil(t, model)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestFitMismatchCarriesCounts(t *testing.T) {
	_, err := Fit(make(models.EdgeSequence, 10), make(models.EdgeSequence, 8))
	var mismatch *EdgeCountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 10, mismatch.ReferenceCount)
	assert.Equal(t, 8, mismatch.TargetCount)
}

func TestFitLeavesInputsUntouched(t *testing.T) {
	reference := models.EdgeSequence{1, 2, 3}
	target := models.EdgeSequence{0, 1, 2}
	model, err := Fit(reference, target)
	require.NoError(t, err)

	reference[0] = 100
	assert.Equal(t, 1.0, model.ReferenceEdges()[0])
}
