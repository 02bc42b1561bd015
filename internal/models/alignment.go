package models

import (
	"fmt"
	"strings"
)

// MismatchPolicy decides what happens when the two clocks report different edge counts.
type MismatchPolicy string

const (
	// MismatchTruncate pairs over the shorter sequence and carries on.
	MismatchTruncate MismatchPolicy = "truncate"
	// MismatchAbort stops the alignment step.
	MismatchAbort MismatchPolicy = "abort"
)

// ParseMismatchPolicy maps a config value onto a policy. Empty selects truncate.
func ParseMismatchPolicy(value string) (MismatchPolicy, error) {
	switch MismatchPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", MismatchTruncate:
		return MismatchTruncate, nil
	case MismatchAbort:
		return MismatchAbort, nil
	default:
		return "", fmt.Errorf("unknown mismatch policy %q", value)
	}
}

// ValidationResult reports the count consistency of a reference/target edge pair.
type ValidationResult struct {
	OK             bool
	ReferenceCount int
	TargetCount    int
	Message        string
}

// ResidualReport summarises fit residuals (actual minus predicted reference time).
type ResidualReport struct {
	Residuals        []float64
	Count            int
	Mean             float64
	StdDev           float64
	MaxAbs           float64
	P95Abs           float64
	Threshold        float64
	Outliers         []int
	ExceedsThreshold bool
}

// Alignment is the outcome of aligning one recording session.
type Alignment struct {
	Session        string
	ModelID        string
	ReferenceEdges EdgeSequence
	TargetEdges    EdgeSequence
	Validation     ValidationResult
	Pairs          int
	Model          *ClockModel
	Residuals      ResidualReport
	Warnings       []string
}
