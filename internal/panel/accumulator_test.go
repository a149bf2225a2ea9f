package panel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "spellpanel/internal/errors"
)

func testFields() []FieldSpec {
	return []FieldSpec{
		{Name: "salary", Precision: 2},
		{Name: "rate", Precision: 4, MeanOnly: true},
	}
}

func TestAccumulatorMeanAndSD(t *testing.T) {
	acc := NewAccumulator[CategoryYearKey](testFields())
	key := CategoryYearKey{Category: "engineering", Year: 2020}

	for _, salary := range []float64{10, 20, 30} {
		require.NoError(t, acc.Update(key, []float64{salary, 0.5}))
	}

	table := acc.Materialize("t", []string{"category", "year"}, categoryYearCols, categoryYearLess)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, int64(3), row.N)
	assert.Equal(t, 20.0, row.Stats[0].Mean)
	assert.Equal(t, 10.0, row.Stats[0].SD)
	assert.Equal(t, 0.5, row.Stats[1].Mean)
}

func TestAccumulatorSingletonCellHasZeroSD(t *testing.T) {
	acc := NewAccumulator[CategoryYearKey](testFields())
	key := CategoryYearKey{Category: "sales", Year: 2021}

	require.NoError(t, acc.Update(key, []float64{42.5, 1.0}))

	table := acc.Materialize("t", []string{"category", "year"}, categoryYearCols, categoryYearLess)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, int64(1), row.N)
	assert.Equal(t, 42.5, row.Stats[0].Mean)
	assert.Equal(t, 0.0, row.Stats[0].SD)
	assert.False(t, math.IsNaN(row.Stats[0].SD))
}

func TestAccumulatorRejectsNonFiniteValues(t *testing.T) {
	tests := []struct {
		name  string
		value float64
	}{
		{"NaN", math.NaN()},
		{"positive infinity", math.Inf(1)},
		{"negative infinity", math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := NewAccumulator[CategoryYearKey](testFields())
			key := CategoryYearKey{Category: "x", Year: 2020}

			err := acc.Update(key, []float64{tt.value, 0})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeData))
			// No cell state may be created by a rejected update
			assert.Equal(t, 0, acc.Len())
		})
	}
}

func TestAccumulatorRejectsWrongFieldCount(t *testing.T) {
	acc := NewAccumulator[CategoryYearKey](testFields())
	err := acc.Update(CategoryYearKey{Category: "x", Year: 2020}, []float64{1})
	assert.Error(t, err)
}

func TestAccumulatorMerge(t *testing.T) {
	keyA := CategoryYearKey{Category: "a", Year: 2020}
	keyB := CategoryYearKey{Category: "b", Year: 2020}

	full := NewAccumulator[CategoryYearKey](testFields())
	left := NewAccumulator[CategoryYearKey](testFields())
	right := NewAccumulator[CategoryYearKey](testFields())

	updates := []struct {
		key    CategoryYearKey
		values []float64
	}{
		{keyA, []float64{10, 0}},
		{keyA, []float64{20, 1}},
		{keyA, []float64{30, 0}},
		{keyB, []float64{5, 1}},
	}

	for i, u := range updates {
		require.NoError(t, full.Update(u.key, u.values))
		if i%2 == 0 {
			require.NoError(t, left.Update(u.key, u.values))
		} else {
			require.NoError(t, right.Update(u.key, u.values))
		}
	}

	require.NoError(t, left.Merge(right))

	want := full.Materialize("t", []string{"category", "year"}, categoryYearCols, categoryYearLess)
	got := left.Materialize("t", []string{"category", "year"}, categoryYearCols, categoryYearLess)
	assert.Equal(t, want, got)
}

func TestAccumulatorMergeFieldMismatch(t *testing.T) {
	a := NewAccumulator[CategoryYearKey](testFields())
	b := NewAccumulator[CategoryYearKey]([]FieldSpec{{Name: "only", Precision: 4}})

	assert.Error(t, a.Merge(b))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1.2346, roundTo(1.23456, 4))
	assert.Equal(t, 1.23, roundTo(1.23456, 2))
	assert.Equal(t, 1.0, roundTo(1.23456, 0))
	assert.Equal(t, -0.5, roundTo(-0.4999999, 4))
}
