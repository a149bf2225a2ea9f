package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Sheet is one named tabular sheet of a workbook
type Sheet struct {
	Name    string
	Headers []string
	Records [][]string
}

// WriteWorkbook writes all sheets into a single .xlsx file, one sheet per
// table, headers in the first row.
func WriteWorkbook(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to write")
	}

	slog.Info("Writing Excel workbook",
		slog.String("path", path),
		slog.Int("sheet_count", len(sheets)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			// Reuse the default sheet for the first table
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				return fmt.Errorf("rename default sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet.Name, err)
			}
		}

		if err := writeSheetRow(f, sheet.Name, 1, sheet.Headers); err != nil {
			return fmt.Errorf("write headers for sheet %s: %w", sheet.Name, err)
		}
		for rowIdx, record := range sheet.Records {
			if err := writeSheetRow(f, sheet.Name, rowIdx+2, record); err != nil {
				return fmt.Errorf("write row %d of sheet %s: %w", rowIdx+2, sheet.Name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// writeSheetRow writes one row of string cells starting at column A
func writeSheetRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}

	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}
