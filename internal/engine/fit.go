package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/utils"
)

// Fit regresses reference edge times on target edge times by ordinary least
// squares and returns reference = slope*target + intercept. Both sequences must
// already be paired to the same length.
func Fit(reference, target models.EdgeSequence) (*models.ClockModel, error) {
	if len(reference) != len(target) {
		return nil, &EdgeCountMismatchError{ReferenceCount: len(reference), TargetCount: len(target)}
	}
	n := len(target)
	if n == 0 {
		return nil, utils.NewAlignError("fit", "", "no edge pairs to fit", ErrMissingInput)
	}
	if n < 2 {
		return nil, utils.NewAlignError("fit", "", fmt.Sprintf("need at least 2 edge pairs, got %d", n), ErrInsufficientData)
	}
	if i := firstNonFinite(reference); i >= 0 {
		return nil, utils.NewAlignError("fit", "reference", fmt.Sprintf("edge %d is not finite", i), ErrMissingInput)
	}
	if i := firstNonFinite(target); i >= 0 {
		return nil, utils.NewAlignError("fit", "target", fmt.Sprintf("edge %d is not finite", i), ErrMissingInput)
	}
	if floats.Min(target) == floats.Max(target) {
		return nil, utils.NewAlignError("fit", "target", fmt.Sprintf("all %d edges at %v", n, target[0]), ErrDegenerateFit)
	}

	intercept, slope := stat.LinearRegression(target, reference, nil, false)
	if math.IsNaN(slope) || math.IsNaN(intercept) {
		return nil, utils.NewAlignError("fit", "", "regression produced NaN coefficients", ErrDegenerateFit)
	}
	return models.NewClockModel(slope, intercept, reference, target), nil
}

func firstNonFinite(values []float64) int {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i
		}
	}
	return -1
}
