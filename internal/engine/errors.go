package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput signals an absent or empty edge sequence where one is required.
	ErrMissingInput = errors.New("missing input")
	// ErrInsufficientData signals fewer than two edge pairs for a line fit.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateFit signals target edges with zero spread, leaving the slope undefined.
	ErrDegenerateFit = errors.New("degenerate fit")
	// ErrEdgeCountMismatch signals reference and target edge counts that differ.
	ErrEdgeCountMismatch = errors.New("edge count mismatch")
)

// EdgeCountMismatchError carries both counts of a mismatched edge pair. It is
// reported as a warning under the truncate policy and returned under abort.
type EdgeCountMismatchError struct {
	ReferenceCount int
	TargetCount    int
}

func (e *EdgeCountMismatchError) Error() string {
	return fmt.Sprintf("edge count mismatch: %d reference edges, %d target edges", e.ReferenceCount, e.TargetCount)
}

func (e *EdgeCountMismatchError) Unwrap() error {
	return ErrEdgeCountMismatch
}
