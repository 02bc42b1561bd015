package models

import "time"

// FitRequest asks for a clock model for one session. Either edges or pulse logs
// are supplied per side; edges win when both are present.
type FitRequest struct {
	Session        string
	ReferenceEdges EdgeSequence
	TargetEdges    EdgeSequence
	ReferenceLog   PulseStateLog
	TargetLog      PulseStateLog
	// Policy overrides the configured mismatch policy when set.
	Policy MismatchPolicy
}

// HasEdges reports whether both sides were supplied as edge sequences.
func (r FitRequest) HasEdges() bool {
	return r.ReferenceEdges != nil && r.TargetEdges != nil
}

// RemapRequest converts target-clock timestamps of a session into reference time.
type RemapRequest struct {
	Session    string
	Timestamps []float64
}

// RemapResponse carries converted timestamps in request order.
type RemapResponse struct {
	Session    string
	ModelID    string
	Timestamps []float64
}

// StoredModel is a persisted clock model with its record metadata.
type StoredModel struct {
	ID         string
	Session    string
	CreatedAt  time.Time
	Model      *ClockModel
	Validation ValidationResult
	// Residuals is the summary recorded at fit time; per-pair residuals are not stored.
	Residuals ResidualReport
	Warnings  []string
}
