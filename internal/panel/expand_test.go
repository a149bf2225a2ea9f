package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func collectYears(rec SpellRecord, horizonYear int) (years, tenures []int) {
	for obs := range ExpandSpell(rec, horizonYear) {
		years = append(years, obs.Year)
		tenures = append(tenures, obs.Tenure)
	}
	return years, tenures
}

func TestExpandSpell(t *testing.T) {
	tests := []struct {
		name        string
		start       time.Time
		end         time.Time
		horizonYear int
		wantYears   []int
		wantTenures []int
	}{
		{
			name:        "january first boundary excludes final year",
			start:       date(2015, 3, 1),
			end:         date(2017, 1, 1),
			horizonYear: 2024,
			wantYears:   []int{2015, 2016},
			wantTenures: []int{0, 1},
		},
		{
			name:        "mid-year end includes final year",
			start:       date(2015, 3, 1),
			end:         date(2017, 1, 2),
			horizonYear: 2024,
			wantYears:   []int{2015, 2016, 2017},
			wantTenures: []int{0, 1, 2},
		},
		{
			name:        "single-day spell yields one observation",
			start:       date(2020, 6, 15),
			end:         date(2020, 6, 15),
			horizonYear: 2024,
			wantYears:   []int{2020},
			wantTenures: []int{0},
		},
		{
			name:        "end before start yields empty sequence",
			start:       date(2020, 6, 15),
			end:         date(2019, 1, 1),
			horizonYear: 2024,
			wantYears:   nil,
			wantTenures: nil,
		},
		{
			name:        "horizon caps open-ended spells",
			start:       date(2021, 1, 15),
			end:         date(2030, 12, 31),
			horizonYear: 2024,
			wantYears:   []int{2021, 2022, 2023, 2024},
			wantTenures: []int{0, 1, 2, 3},
		},
		{
			name:        "january first end above horizon still covers horizon year",
			start:       date(2022, 5, 1),
			end:         date(2026, 1, 1),
			horizonYear: 2024,
			wantYears:   []int{2022, 2023, 2024},
			wantTenures: []int{0, 1, 2},
		},
		{
			name:        "spell entirely after horizon yields empty sequence",
			start:       date(2025, 2, 1),
			end:         date(2026, 6, 1),
			horizonYear: 2024,
			wantYears:   nil,
			wantTenures: nil,
		},
		{
			name:        "spell ending january first of its start year",
			start:       date(2020, 1, 1),
			end:         date(2020, 1, 1),
			horizonYear: 2024,
			wantYears:   nil,
			wantTenures: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := SpellRecord{SubjectID: "P-1", StartDate: tt.start, EndDate: tt.end}
			years, tenures := collectYears(rec, tt.horizonYear)
			assert.Equal(t, tt.wantYears, years)
			assert.Equal(t, tt.wantTenures, tenures)
		})
	}
}

func TestExpandSpellCopiesAttributes(t *testing.T) {
	rec := SpellRecord{
		SubjectID:   "P-7",
		Category:    "engineering",
		Female:      true,
		JobCategory: "manager",
		EmployerID:  "E-12",
		StartDate:   date(2019, 4, 1),
		EndDate:     date(2020, 9, 30),
		Seniority:   3.5,
		Salary:      52000,
		TotalComp:   61000,
		Education:   4,
	}

	var observations []YearlyObservation
	for obs := range ExpandSpell(rec, 2024) {
		observations = append(observations, obs)
	}

	require.Len(t, observations, 2)
	for _, obs := range observations {
		assert.Equal(t, "engineering", obs.Category)
		assert.True(t, obs.Female)
		assert.Equal(t, "manager", obs.JobCategory)
		assert.Equal(t, "E-12", obs.EmployerID)
		assert.Equal(t, 3.5, obs.Seniority)
		assert.Equal(t, 52000.0, obs.Salary)
		assert.Equal(t, 61000.0, obs.TotalComp)
		assert.Equal(t, 4, obs.Education)
	}
}

func TestExpandSpellIsRestartable(t *testing.T) {
	rec := SpellRecord{StartDate: date(2018, 1, 15), EndDate: date(2021, 6, 1)}
	seq := ExpandSpell(rec, 2024)

	first := 0
	for range seq {
		first++
	}
	second := 0
	for range seq {
		second++
	}

	assert.Equal(t, 4, first)
	assert.Equal(t, first, second)
}

func TestExpandSpellEarlyBreak(t *testing.T) {
	rec := SpellRecord{StartDate: date(2010, 1, 15), EndDate: date(2020, 6, 1)}

	count := 0
	for range ExpandSpell(rec, 2024) {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)
}

func TestCountSpellYears(t *testing.T) {
	rec := SpellRecord{StartDate: date(2015, 3, 1), EndDate: date(2017, 1, 1)}
	assert.Equal(t, 2, CountSpellYears(rec, 2024))

	inverted := SpellRecord{StartDate: date(2020, 1, 1), EndDate: date(2015, 1, 1)}
	assert.Equal(t, 0, CountSpellYears(inverted, 2024))
}
