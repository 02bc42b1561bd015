package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/utils"
)

// DefaultResidualThreshold is the residual magnitude, in seconds, above which a
// paired edge is flagged.
const DefaultResidualThreshold = 0.001

// ResidualAnalyzer computes fit residuals for quality diagnostics. It never
// changes the model and never drops points.
type ResidualAnalyzer struct {
	Threshold float64
}

// NewResidualAnalyzer creates an analyzer; non-positive thresholds use the default.
func NewResidualAnalyzer(threshold float64) *ResidualAnalyzer {
	if threshold <= 0 {
		threshold = DefaultResidualThreshold
	}
	return &ResidualAnalyzer{Threshold: threshold}
}

// Analyze compares observed reference edges with the model's prediction from the
// paired target edges.
func (a *ResidualAnalyzer) Analyze(model *models.ClockModel, reference, target models.EdgeSequence) (models.ResidualReport, error) {
	if model == nil {
		return models.ResidualReport{}, utils.NewAlignError("residuals", "", "model is nil", ErrMissingInput)
	}
	if len(reference) != len(target) {
		return models.ResidualReport{}, &EdgeCountMismatchError{ReferenceCount: len(reference), TargetCount: len(target)}
	}
	if len(target) == 0 {
		return models.ResidualReport{}, utils.NewAlignError("residuals", "", "no edge pairs", ErrMissingInput)
	}

	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultResidualThreshold
	}

	predicted := model.Map(target)
	residuals := make([]float64, len(reference))
	abs := make([]float64, len(reference))
	report := models.ResidualReport{
		Count:     len(residuals),
		Threshold: threshold,
	}
	for i := range reference {
		residuals[i] = reference[i] - predicted[i]
		abs[i] = math.Abs(residuals[i])
		if abs[i] > report.MaxAbs {
			report.MaxAbs = abs[i]
		}
		if abs[i] > threshold {
			report.Outliers = append(report.Outliers, i)
		}
	}
	report.Residuals = residuals
	report.ExceedsThreshold = len(report.Outliers) > 0

	if report.Count > 1 {
		report.Mean, report.StdDev = stat.MeanStdDev(residuals, nil)
	} else {
		report.Mean = residuals[0]
	}

	sort.Float64s(abs)
	report.P95Abs = stat.Quantile(0.95, stat.Empirical, abs, nil)

	return report, nil
}

// AnalyzeModel recomputes the report from the edges a model carries.
func (a *ResidualAnalyzer) AnalyzeModel(model *models.ClockModel) (models.ResidualReport, error) {
	if model == nil {
		return models.ResidualReport{}, utils.NewAlignError("residuals", "", "model is nil", ErrMissingInput)
	}
	return a.Analyze(model, model.ReferenceEdges(), model.TargetEdges())
}
