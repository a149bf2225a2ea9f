package panel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	apperrors "spellpanel/internal/errors"
	"spellpanel/internal/exporter"
)

// SaveToCSV writes each panel table plus the diversity table as a CSV file
// below outDir. File names follow the table names (category_year.csv, ...).
func SaveToCSV(set *PanelSet, outDir string, precision int) error {
	writer := exporter.NewCSVWriter(outDir)

	for _, table := range set.Tables() {
		if err := writer.WriteSimpleCSV(table.Name+".csv", table.Headers(), table.Records()); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("write %s table", table.Name), err)
		}
	}

	if err := writer.WriteSimpleCSV("employer_diversity.csv", DiversityHeaders(), DiversityRecords(set.Diversity, precision)); err != nil {
		return apperrors.NewStorageError("write employer diversity table", err)
	}

	return nil
}

// SaveWorkbook writes all five tables as sheets of a single Excel workbook
func SaveWorkbook(set *PanelSet, path string, precision int) error {
	sheets := make([]exporter.Sheet, 0, 5)
	for _, table := range set.Tables() {
		sheets = append(sheets, exporter.Sheet{
			Name:    table.Name,
			Headers: table.Headers(),
			Records: table.Records(),
		})
	}
	sheets = append(sheets, exporter.Sheet{
		Name:    "employer_diversity",
		Headers: DiversityHeaders(),
		Records: DiversityRecords(set.Diversity, precision),
	})

	if err := exporter.WriteWorkbook(path, sheets); err != nil {
		return apperrors.NewStorageError("write panel workbook", err)
	}
	return nil
}

// SaveSummaryReport creates a human-readable overview of one aggregation run
func SaveSummaryReport(set *PanelSet, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return apperrors.NewStorageError("create summary directory", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return apperrors.NewStorageError("create summary file", err)
	}
	defer file.Close()

	fmt.Fprintf(file, "Employment Spell Panels - Summary Report\n")
	fmt.Fprintf(file, "=========================================\n\n")
	fmt.Fprintf(file, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(file, "PANEL OVERVIEW\n")
	fmt.Fprintf(file, "--------------\n")
	for _, table := range set.Tables() {
		fmt.Fprintf(file, "%s: %d cells\n", table.Name, len(table.Rows))
	}
	fmt.Fprintf(file, "employer_diversity: %d cells\n\n", len(set.Diversity))

	minYear, maxYear, ok := yearRange(set.CategoryYear)
	if ok {
		fmt.Fprintf(file, "Year range: %d to %d\n\n", minYear, maxYear)
	}

	if len(set.Diversity) > 0 {
		fmt.Fprintf(file, "TOP 10 MOST DIVERSE EMPLOYER-YEARS\n")
		fmt.Fprintf(file, "----------------------------------\n")
		for i, row := range topDiverse(set.Diversity, 10, true) {
			fmt.Fprintf(file, "%2d. %s (%d): %.4f over %d observations\n",
				i+1, row.EmployerID, row.Year, row.Index, row.Total)
		}
		fmt.Fprintf(file, "\n")

		fmt.Fprintf(file, "TOP 10 LEAST DIVERSE EMPLOYER-YEARS\n")
		fmt.Fprintf(file, "-----------------------------------\n")
		for i, row := range topDiverse(set.Diversity, 10, false) {
			fmt.Fprintf(file, "%2d. %s (%d): %.4f over %d observations\n",
				i+1, row.EmployerID, row.Year, row.Index, row.Total)
		}
	}

	return nil
}

// yearRange extracts the covered year span from a category-year table.
// Rows are sorted by category first, so a full scan is needed to find the
// global year bounds.
func yearRange(table PanelTable) (minYear, maxYear int, ok bool) {
	for _, row := range table.Rows {
		if len(row.Key) < 2 {
			continue
		}
		var year int
		if _, err := fmt.Sscanf(row.Key[1], "%d", &year); err != nil {
			continue
		}
		if !ok || year < minYear {
			minYear = year
		}
		if !ok || year > maxYear {
			maxYear = year
		}
		ok = true
	}
	return minYear, maxYear, ok
}

// topDiverse returns the n most (or least) diverse rows
func topDiverse(rows []DiversityRow, n int, mostDiverse bool) []DiversityRow {
	sorted := make([]DiversityRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool {
		if mostDiverse {
			return sorted[i].Index > sorted[j].Index
		}
		return sorted[i].Index < sorted[j].Index
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}
