package panel

import (
	"sort"
	"strconv"
)

// PanelRow is one materialized aggregation cell: the key components, the
// observation count and the derived statistics per tracked field.
type PanelRow struct {
	Key   []string
	N     int64
	Stats []FieldStat
}

// PanelTable is one ordered output table, one row per group key
type PanelTable struct {
	Name       string
	KeyColumns []string
	Fields     []FieldSpec
	Rows       []PanelRow
}

// Headers returns the CSV column names of the table: the key columns, the
// observation count, then mean (and sd unless suppressed) per tracked field.
func (t PanelTable) Headers() []string {
	headers := append([]string{}, t.KeyColumns...)
	headers = append(headers, "n")
	for _, f := range t.Fields {
		headers = append(headers, "mean_"+f.Name)
		if !f.MeanOnly {
			headers = append(headers, "sd_"+f.Name)
		}
	}
	return headers
}

// Records returns the formatted CSV rows of the table
func (t PanelTable) Records() [][]string {
	records := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := append([]string{}, row.Key...)
		record = append(record, strconv.FormatInt(row.N, 10))
		for i, f := range t.Fields {
			record = append(record, formatFloat(row.Stats[i].Mean, f.Precision))
			if !f.MeanOnly {
				record = append(record, formatFloat(row.Stats[i].SD, f.Precision))
			}
		}
		records = append(records, record)
	}
	return records
}

// formatFloat formats a float64 value for CSV output with fixed precision
func formatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}

// Materialize produces the ordered output table of the accumulator. Rows are
// sorted ascending with less over the key type, matching the key tuple
// definition order; insertion order never leaks into the output.
func (a *Accumulator[K]) Materialize(name string, keyColumns []string, keyFn func(K) []string, less func(a, b K) bool) PanelTable {
	keys := make([]K, 0, len(a.cells))
	for key := range a.cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })

	rows := make([]PanelRow, 0, len(keys))
	for _, key := range keys {
		cell := a.cells[key]
		rows = append(rows, PanelRow{
			Key:   keyFn(key),
			N:     cell.n,
			Stats: cell.stats(a.fields),
		})
	}

	return PanelTable{
		Name:       name,
		KeyColumns: keyColumns,
		Fields:     a.fields,
		Rows:       rows,
	}
}

// PanelSet is the terminal output of one aggregation run: the four panel
// tables plus the employer-year diversity table.
type PanelSet struct {
	CategoryYear       PanelTable
	CategoryYearGender PanelTable
	CategoryYearJob    PanelTable
	EmployerYear       PanelTable
	Diversity          []DiversityRow
}

// Tables returns the four group-key panel tables in output order
func (p *PanelSet) Tables() []PanelTable {
	return []PanelTable{p.CategoryYear, p.CategoryYearGender, p.CategoryYearJob, p.EmployerYear}
}

// DiversityHeaders returns the CSV column names of the diversity table
func DiversityHeaders() []string {
	return []string{"employer_id", "year", "diversity_index", "total_count", "distinct_categories"}
}

// DiversityRecords returns the formatted CSV rows of the diversity table
func DiversityRecords(rows []DiversityRow, precision int) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.EmployerID,
			strconv.Itoa(row.Year),
			formatFloat(row.Index, precision),
			strconv.FormatInt(row.Total, 10),
			strconv.Itoa(row.Categories),
		})
	}
	return records
}

// Key ordering and projection helpers for the four panels

func categoryYearLess(a, b CategoryYearKey) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	return a.Year < b.Year
}

func categoryYearCols(k CategoryYearKey) []string {
	return []string{k.Category, strconv.Itoa(k.Year)}
}

func categoryYearGenderLess(a, b CategoryYearGenderKey) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return !a.Female && b.Female
}

func categoryYearGenderCols(k CategoryYearGenderKey) []string {
	female := "0"
	if k.Female {
		female = "1"
	}
	return []string{k.Category, strconv.Itoa(k.Year), female}
}

func categoryYearJobLess(a, b CategoryYearJobKey) bool {
	if a.Category != b.Category {
		return a.Category < b.Category
	}
	if a.Year != b.Year {
		return a.Year < b.Year
	}
	return a.JobCategory < b.JobCategory
}

func categoryYearJobCols(k CategoryYearJobKey) []string {
	return []string{k.Category, strconv.Itoa(k.Year), k.JobCategory}
}

func employerYearLess(a, b EmployerYearKey) bool {
	if a.EmployerID != b.EmployerID {
		return a.EmployerID < b.EmployerID
	}
	return a.Year < b.Year
}

func employerYearCols(k EmployerYearKey) []string {
	return []string{k.EmployerID, strconv.Itoa(k.Year)}
}
