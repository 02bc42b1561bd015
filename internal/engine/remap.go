package engine

import (
	"fmt"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/metrics"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/utils"
)

// Remapper converts target-clock timestamps into reference-clock time with a
// fitted model. Missing values (NaN) pass through unchanged.
type Remapper struct {
	model *models.ClockModel
}

// NewRemapper wraps a loaded model.
func NewRemapper(model *models.ClockModel) (*Remapper, error) {
	if model == nil {
		return nil, utils.NewAlignError("remap", "", "model is nil", ErrMissingInput)
	}
	return &Remapper{model: model}, nil
}

// Scalar remaps one timestamp.
func (r *Remapper) Scalar(t float64) float64 {
	metrics.ObserveRemap(1)
	return r.model.At(t)
}

// Slice remaps a sequence into a new slice of the same length and order.
func (r *Remapper) Slice(ts []float64) []float64 {
	metrics.ObserveRemap(len(ts))
	return r.model.Map(ts)
}

// Column remaps a named table column. The result replaces the column when as is
// empty or equals column; otherwise it is written to column as, which is created
// when missing.
func (r *Remapper) Column(table *models.EventTable, column, as string) error {
	if table == nil {
		return utils.NewAlignError("remap", "", "table is nil", ErrMissingInput)
	}
	values, err := table.Float64Column(column)
	if err != nil {
		return fmt.Errorf("remap column: %w", err)
	}
	if as == "" {
		as = column
	}
	return table.SetFloat64Column(as, r.Slice(values))
}
