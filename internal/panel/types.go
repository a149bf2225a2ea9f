package panel

import (
	"time"
)

// Default configuration values for the aggregation driver
const (
	// DefaultHorizonYear is the latest calendar year considered valid for expansion
	DefaultHorizonYear = 2024
	// DefaultChunkSize bounds how many spells are held in memory per batch
	DefaultChunkSize = 500000
	// DefaultMinDiversityCellSize suppresses employer-year cells below this count
	DefaultMinDiversityCellSize = 10
	// DefaultDecimalPrecision is the rounding precision for rates and means
	DefaultDecimalPrecision = 4
	// MoneyPrecision is the rounding precision for money-derived averages
	MoneyPrecision = 2
)

// SpellRecord is one employment interval for one subject at one employer.
// Records arrive schema-conformant from the upstream cleaning stage; the
// only tolerated irregularity is an end date before the start date, which
// contributes zero yearly observations.
type SpellRecord struct {
	SubjectID   string
	SpellIndex  int
	Category    string
	Female      bool
	JobCategory string
	EmployerID  string // empty when the employer is unknown
	StartDate   time.Time
	EndDate     time.Time
	Seniority   float64
	Salary      float64
	TotalComp   float64
	Education   int
}

// HasEmployer reports whether the spell carries an employer identifier
func (s SpellRecord) HasEmployer() bool {
	return s.EmployerID != ""
}

// YearlyObservation is one (spell, covered calendar year) pair. Constructed
// transiently by the expander and consumed immediately by the accumulators;
// never persisted as a collection.
type YearlyObservation struct {
	Year        int
	Tenure      int
	Category    string
	Female      bool
	JobCategory string
	EmployerID  string
	Seniority   float64
	Salary      float64
	TotalComp   float64
	Education   int
}

// CategoryYearKey keys the category-by-year panel
type CategoryYearKey struct {
	Category string
	Year     int
}

// CategoryYearGenderKey keys the category-by-year-by-gender panel
type CategoryYearGenderKey struct {
	Category string
	Year     int
	Female   bool
}

// CategoryYearJobKey keys the category-by-year-by-job-category panel
type CategoryYearJobKey struct {
	Category    string
	Year        int
	JobCategory string
}

// EmployerYearKey keys the employer-by-year panels
type EmployerYearKey struct {
	EmployerID string
	Year       int
}

// FieldSpec describes one tracked numeric field of a group-key accumulator
type FieldSpec struct {
	Name      string
	Precision int
	// MeanOnly suppresses the standard deviation column at materialization
	// (used for 0/1 indicators and ordinal averages)
	MeanOnly bool
}

// outcomeFields returns the tracked fields shared by the category panels.
// includeFemale is false for the gender-keyed panel, where gender is part
// of the key rather than a tracked indicator.
func outcomeFields(precision int, includeFemale bool) []FieldSpec {
	fields := []FieldSpec{
		{Name: "tenure", Precision: precision},
		{Name: "seniority", Precision: precision},
		{Name: "salary", Precision: MoneyPrecision},
		{Name: "total_comp", Precision: MoneyPrecision},
	}
	if includeFemale {
		fields = append(fields, FieldSpec{Name: "female", Precision: precision, MeanOnly: true})
	}
	fields = append(fields, FieldSpec{Name: "education", Precision: MoneyPrecision, MeanOnly: true})
	return fields
}

// outcomeValues extracts the field values of an observation in the same
// order as outcomeFields.
func outcomeValues(obs YearlyObservation, includeFemale bool) []float64 {
	female := 0.0
	if obs.Female {
		female = 1.0
	}
	values := []float64{
		float64(obs.Tenure),
		obs.Seniority,
		obs.Salary,
		obs.TotalComp,
	}
	if includeFemale {
		values = append(values, female)
	}
	return append(values, float64(obs.Education))
}
