package panel

import (
	"iter"
	"time"
)

// ExpandSpell returns the lazy sequence of yearly observations a spell
// contributes to, one per calendar year in [start year, end year].
//
// The end year is the spell's end date year capped at horizonYear, with one
// boundary rule: a spell ending exactly on January 1st does not count as
// employment during that year, so the end year is decremented first. An end
// year below the start year yields an empty sequence, never an error.
//
// The sequence is finite and restartable; ranging over it twice produces
// the same observations.
func ExpandSpell(rec SpellRecord, horizonYear int) iter.Seq[YearlyObservation] {
	return func(yield func(YearlyObservation) bool) {
		startYear := rec.StartDate.Year()
		endYear := rec.EndDate.Year()

		// Ending at the instant a year begins means no employment in that year.
		if rec.EndDate.Month() == time.January && rec.EndDate.Day() == 1 {
			endYear--
		}
		if endYear > horizonYear {
			endYear = horizonYear
		}

		for year := startYear; year <= endYear; year++ {
			obs := YearlyObservation{
				Year:        year,
				Tenure:      year - startYear,
				Category:    rec.Category,
				Female:      rec.Female,
				JobCategory: rec.JobCategory,
				EmployerID:  rec.EmployerID,
				Seniority:   rec.Seniority,
				Salary:      rec.Salary,
				TotalComp:   rec.TotalComp,
				Education:   rec.Education,
			}
			if !yield(obs) {
				return
			}
		}
	}
}

// CountSpellYears returns how many yearly observations a spell expands to.
// Useful for progress accounting without materializing the sequence.
func CountSpellYears(rec SpellRecord, horizonYear int) int {
	count := 0
	for range ExpandSpell(rec, horizonYear) {
		count++
	}
	return count
}
