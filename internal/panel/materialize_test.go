package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanelTableHeaders(t *testing.T) {
	table := PanelTable{
		KeyColumns: []string{"category", "year"},
		Fields: []FieldSpec{
			{Name: "salary", Precision: 2},
			{Name: "female", Precision: 4, MeanOnly: true},
		},
	}

	want := []string{"category", "year", "n", "mean_salary", "sd_salary", "mean_female"}
	assert.Equal(t, want, table.Headers())
}

func TestPanelTableRecords(t *testing.T) {
	table := PanelTable{
		KeyColumns: []string{"category", "year"},
		Fields: []FieldSpec{
			{Name: "salary", Precision: 2},
			{Name: "female", Precision: 4, MeanOnly: true},
		},
		Rows: []PanelRow{
			{
				Key:   []string{"engineering", "2020"},
				N:     3,
				Stats: []FieldStat{{Mean: 20, SD: 10}, {Mean: 0.3333}},
			},
		},
	}

	records := table.Records()
	require.Len(t, records, 1)
	assert.Equal(t, []string{"engineering", "2020", "3", "20.00", "10.00", "0.3333"}, records[0])
}

func TestMaterializeSortsByKeyComponents(t *testing.T) {
	acc := NewAccumulator[CategoryYearJobKey]([]FieldSpec{{Name: "v", Precision: 2}})

	keys := []CategoryYearJobKey{
		{"b", 2020, "staff"},
		{"a", 2021, "staff"},
		{"a", 2020, "staff"},
		{"a", 2020, "manager"},
		{"b", 2019, "manager"},
	}
	for _, key := range keys {
		require.NoError(t, acc.Update(key, []float64{1}))
	}

	table := acc.Materialize("t", []string{"category", "year", "job_category"}, categoryYearJobCols, categoryYearJobLess)

	var got [][]string
	for _, row := range table.Rows {
		got = append(got, row.Key)
	}
	want := [][]string{
		{"a", "2020", "manager"},
		{"a", "2020", "staff"},
		{"a", "2021", "staff"},
		{"b", "2019", "manager"},
		{"b", "2020", "staff"},
	}
	assert.Equal(t, want, got)
}

func TestGenderKeyOrderingAndColumns(t *testing.T) {
	acc := NewAccumulator[CategoryYearGenderKey]([]FieldSpec{{Name: "v", Precision: 2}})

	require.NoError(t, acc.Update(CategoryYearGenderKey{"a", 2020, true}, []float64{1}))
	require.NoError(t, acc.Update(CategoryYearGenderKey{"a", 2020, false}, []float64{2}))

	table := acc.Materialize("t", []string{"category", "year", "female"}, categoryYearGenderCols, categoryYearGenderLess)
	require.Len(t, table.Rows, 2)

	// Male (0) sorts before female (1)
	assert.Equal(t, []string{"a", "2020", "0"}, table.Rows[0].Key)
	assert.Equal(t, []string{"a", "2020", "1"}, table.Rows[1].Key)
}

func TestDiversityRecords(t *testing.T) {
	rows := []DiversityRow{
		{EmployerID: "E-1", Year: 2020, Index: 0.5, Total: 20, Categories: 2},
	}

	records := DiversityRecords(rows, 4)
	require.Len(t, records, 1)
	assert.Equal(t, []string{"E-1", "2020", "0.5000", "20", "2"}, records[0])
}

func TestMaterializeIsInsertionOrderIndependent(t *testing.T) {
	fields := []FieldSpec{{Name: "v", Precision: 2}}

	forward := NewAccumulator[CategoryYearKey](fields)
	backward := NewAccumulator[CategoryYearKey](fields)

	keys := []CategoryYearKey{{"a", 2019}, {"b", 2020}, {"c", 2018}}
	for i := range keys {
		require.NoError(t, forward.Update(keys[i], []float64{1}))
		require.NoError(t, backward.Update(keys[len(keys)-1-i], []float64{1}))
	}

	wantTable := forward.Materialize("t", []string{"category", "year"}, categoryYearCols, categoryYearLess)
	gotTable := backward.Materialize("t", []string{"category", "year"}, categoryYearCols, categoryYearLess)
	assert.Equal(t, wantTable, gotTable)
}
