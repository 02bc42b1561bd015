package engine

import (
	"fmt"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// Pairer matches reference-clock edges to target-clock edges.
type Pairer interface {
	Pair(reference, target models.EdgeSequence) (models.ClockPair, models.ValidationResult, error)
}

// IndexPairer pairs edges index-for-index in emission order.
//
// Limitation: pairing never resynchronises. One extra or missing edge anywhere
// other than at the tail of a sequence shifts every later pair by one pulse, and
// the fit will absorb that silently. Inspect the residual report when counts differ.
type IndexPairer struct {
	Policy models.MismatchPolicy
}

// NewIndexPairer creates an index pairer; an empty policy means truncate.
func NewIndexPairer(policy models.MismatchPolicy) *IndexPairer {
	if policy == "" {
		policy = models.MismatchTruncate
	}
	return &IndexPairer{Policy: policy}
}

// Validate compares edge counts. A mismatch is reported, never fatal here.
func Validate(reference, target models.EdgeSequence) models.ValidationResult {
	result := models.ValidationResult{
		OK:             len(reference) == len(target),
		ReferenceCount: len(reference),
		TargetCount:    len(target),
	}
	if result.OK {
		result.Message = fmt.Sprintf("%d reference edges and %d target edges", result.ReferenceCount, result.TargetCount)
	} else {
		result.Message = fmt.Sprintf("unequal rise counts: %d reference edges vs %d target edges", result.ReferenceCount, result.TargetCount)
	}
	return result
}

// Pair validates the sequences and applies the mismatch policy. Under truncate the
// returned pair is cut to the shorter length; under abort a mismatch is an error.
func (p *IndexPairer) Pair(reference, target models.EdgeSequence) (models.ClockPair, models.ValidationResult, error) {
	result := Validate(reference, target)
	pair := models.ClockPair{Reference: reference, Target: target}
	if result.OK {
		return pair, result, nil
	}

	switch p.Policy {
	case models.MismatchAbort:
		return models.ClockPair{}, result, &EdgeCountMismatchError{
			ReferenceCount: result.ReferenceCount,
			TargetCount:    result.TargetCount,
		}
	case models.MismatchTruncate, "":
		return pair.Truncated(), result, nil
	default:
		return models.ClockPair{}, result, fmt.Errorf("unknown mismatch policy %q", p.Policy)
	}
}
