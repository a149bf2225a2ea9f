package panel

import (
	"fmt"
	"math"

	apperrors "spellpanel/internal/errors"
)

// statCell holds the running statistics for one group key. Only the count,
// sum and sum of squares per tracked field are retained, so accumulator
// memory is proportional to the number of distinct keys rather than the
// number of observations.
type statCell struct {
	n     int64
	sum   []float64
	sumSq []float64
}

// Accumulator is a multi-key running-statistics store generic over the key
// shape. It tracks a fixed set of numeric fields per cell and materializes
// mean and sample standard deviation per field without retaining raw values.
//
// An Accumulator is not safe for concurrent use; in the parallel driver mode
// each worker owns a private instance and results are combined with Merge.
type Accumulator[K comparable] struct {
	fields []FieldSpec
	cells  map[K]*statCell
}

// NewAccumulator creates an accumulator tracking the given fields
func NewAccumulator[K comparable](fields []FieldSpec) *Accumulator[K] {
	return &Accumulator[K]{
		fields: fields,
		cells:  make(map[K]*statCell),
	}
}

// Update folds one observation into the cell for key. The values slice must
// be ordered like the tracked fields. Non-finite values are rejected with a
// data error before any cell state is touched, since a NaN or infinity would
// silently corrupt the running sums.
func (a *Accumulator[K]) Update(key K, values []float64) error {
	if len(values) != len(a.fields) {
		return fmt.Errorf("expected %d field values, got %d", len(a.fields), len(values))
	}
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.NewAppError(apperrors.ErrTypeData,
				fmt.Sprintf("non-finite value %v for field %q", v, a.fields[i].Name), nil)
		}
	}

	cell, ok := a.cells[key]
	if !ok {
		cell = &statCell{
			sum:   make([]float64, len(a.fields)),
			sumSq: make([]float64, len(a.fields)),
		}
		a.cells[key] = cell
	}

	cell.n++
	for i, v := range values {
		cell.sum[i] += v
		cell.sumSq[i] += v * v
	}
	return nil
}

// Merge folds another accumulator's cells into this one by key-wise summation.
// Both accumulators must track the same fields. The operation is associative
// and commutative, which is what makes the sharded parallel reduction safe.
func (a *Accumulator[K]) Merge(other *Accumulator[K]) error {
	if len(other.fields) != len(a.fields) {
		return fmt.Errorf("cannot merge accumulators tracking %d and %d fields", len(a.fields), len(other.fields))
	}
	for key, otherCell := range other.cells {
		cell, ok := a.cells[key]
		if !ok {
			cell = &statCell{
				sum:   make([]float64, len(a.fields)),
				sumSq: make([]float64, len(a.fields)),
			}
			a.cells[key] = cell
		}
		cell.n += otherCell.n
		for i := range a.fields {
			cell.sum[i] += otherCell.sum[i]
			cell.sumSq[i] += otherCell.sumSq[i]
		}
	}
	return nil
}

// Len returns the number of distinct keys seen so far
func (a *Accumulator[K]) Len() int {
	return len(a.cells)
}

// Fields returns the tracked field specifications
func (a *Accumulator[K]) Fields() []FieldSpec {
	return a.fields
}

// FieldStat is the materialized mean and sample standard deviation of one
// tracked field within one cell.
type FieldStat struct {
	Mean float64
	SD   float64
}

// stats derives the per-field statistics of a cell. The sample standard
// deviation of a singleton cell is 0, not NaN: a single observation has no
// dispersion.
func (c *statCell) stats(fields []FieldSpec) []FieldStat {
	out := make([]FieldStat, len(fields))
	n := float64(c.n)
	for i, f := range fields {
		mean := c.sum[i] / n
		sd := 0.0
		if c.n > 1 {
			variance := (c.sumSq[i] - n*mean*mean) / (n - 1)
			if variance < 0 {
				// Floating point cancellation can push a zero variance
				// slightly negative.
				variance = 0
			}
			sd = math.Sqrt(variance)
		}
		out[i] = FieldStat{
			Mean: roundTo(mean, f.Precision),
			SD:   roundTo(sd, f.Precision),
		}
	}
	return out
}

// roundTo rounds v to the given number of decimal places
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
