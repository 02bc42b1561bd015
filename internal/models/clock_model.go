package models

// ClockModel is an affine map from target-clock time to reference-clock time:
// reference = slope*target + intercept. It is immutable once built and safe for
// concurrent use.
type ClockModel struct {
	slope          float64
	intercept      float64
	referenceEdges EdgeSequence
	targetEdges    EdgeSequence
}

// NewClockModel builds a model from fitted coefficients and the edges it was fit on.
// The edge slices are copied.
func NewClockModel(slope, intercept float64, reference, target EdgeSequence) *ClockModel {
	return &ClockModel{
		slope:          slope,
		intercept:      intercept,
		referenceEdges: reference.Clone(),
		targetEdges:    target.Clone(),
	}
}

// Slope returns the clock-rate ratio.
func (m *ClockModel) Slope() float64 { return m.slope }

// Intercept returns the fixed offset in reference seconds.
func (m *ClockModel) Intercept() float64 { return m.intercept }

// ReferenceEdges returns a copy of the reference edges used for the fit.
func (m *ClockModel) ReferenceEdges() EdgeSequence { return m.referenceEdges.Clone() }

// TargetEdges returns a copy of the target edges used for the fit.
func (m *ClockModel) TargetEdges() EdgeSequence { return m.targetEdges.Clone() }

// Pairs returns the number of edge pairs the model was fit on.
func (m *ClockModel) Pairs() int { return len(m.targetEdges) }

// At maps a single target timestamp. NaN maps to NaN.
func (m *ClockModel) At(t float64) float64 {
	return m.slope*t + m.intercept
}

// Map maps every timestamp into a new slice with the same length and order.
func (m *ClockModel) Map(ts []float64) []float64 {
	if ts == nil {
		return nil
	}
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = m.At(t)
	}
	return out
}

// Equal reports whether two models carry identical coefficients and edges.
func (m *ClockModel) Equal(other *ClockModel) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.slope != other.slope || m.intercept != other.intercept {
		return false
	}
	return equalEdges(m.referenceEdges, other.referenceEdges) && equalEdges(m.targetEdges, other.targetEdges)
}

func equalEdges(a, b EdgeSequence) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
