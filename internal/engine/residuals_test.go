package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

func TestResidualAnalyzerFlagsOutliers(t *testing.T) {
	model := models.NewClockModel(1, 1, nil, nil)
	target := models.EdgeSequence{0, 1, 2, 3, 4}
	reference := models.EdgeSequence{1, 2, 3.01, 4, 5.0005}

	report, err := NewResidualAnalyzer(0.001).Analyze(model, reference, target)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Count)
	require.Len(t, report.Residuals, 5)
	assert.InDelta(t, 0.01, report.Residuals[2], 1e-12)
	assert.InDelta(t, 0.0005, report.Residuals[4], 1e-12)
	assert.InDelta(t, 0.01, report.MaxAbs, 1e-12)
	assert.Equal(t, []int{2}, report.Outliers)
	assert.True(t, report.ExceedsThreshold)
	assert.InDelta(t, 0.0021, report.Mean, 1e-12)
	assert.Greater(t, report.StdDev, 0.0)
	assert.LessOrEqual(t, report.P95Abs, report.MaxAbs)
}

func TestResidualAnalyzerSignIsActualMinusPredicted(t *testing.T) {
	model := models.NewClockModel(1, 0, nil, nil)
	report, err := NewResidualAnalyzer(1).Analyze(model, models.EdgeSequence{0.9, 2.1}, models.EdgeSequence{1, 2})
	require.NoError(t, err)
	assert.InDelta(t, -0.1, report.Residuals[0], 1e-12)
	assert.InDelta(t, 0.1, report.Residuals[1], 1e-12)
	assert.False(t, report.ExceedsThreshold)
	assert.Empty(t, report.Outliers)
}

func TestResidualAnalyzerSinglePair(t *testing.T) {
	model := models.NewClockModel(1, 0, nil, nil)
	report, err := NewResidualAnalyzer(0).Analyze(model, models.EdgeSequence{2}, models.EdgeSequence{1})
	require.NoError(t, err)
	assert.Equal(t, DefaultResidualThreshold, report.Threshold)
	assert.InDelta(t, 1.0, report.Mean, 1e-12)
	assert.Zero(t, report.StdDev)
}

func TestResidualAnalyzerErrors(t *testing.T) {
	analyzer := NewResidualAnalyzer(0)
	model := models.NewClockModel(1, 0, nil, nil)

	_, err := analyzer.Analyze(nil, models.EdgeSequence{1}, models.EdgeSequence{1})
	assert.True(t, errors.Is(err, ErrMissingInput))

	_, err = analyzer.Analyze(model, models.EdgeSequence{1, 2}, models.EdgeSequence{1})
	assert.True(t, errors.Is(err, ErrEdgeCountMismatch))

	_, err = analyzer.Analyze(model, nil, nil)
	assert.True(t, errors.Is(err, ErrMissingInput))
}
