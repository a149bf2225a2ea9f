package panel

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	apperrors "spellpanel/internal/errors"
)

// SliceSource is an in-memory SpellSource, mainly for tests and small runs
type SliceSource struct {
	records []SpellRecord
	pos     int
}

// NewSliceSource creates a source over the given records
func NewSliceSource(records []SpellRecord) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements SpellSource
func (s *SliceSource) Next() (SpellRecord, error) {
	if s.pos >= len(s.records) {
		return SpellRecord{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

// Reset rewinds the source to the first record
func (s *SliceSource) Reset() {
	s.pos = 0
}

// CSVSource streams spell records from a CSV file without loading the whole
// file into memory. Expected columns:
//
//	subject_id,spell_index,category,female,job_category,employer_id,
//	start_date,end_date,seniority,salary,total_comp,education
//
// Malformed lines are logged and skipped; the stream continues with the
// next record.
type CSVSource struct {
	file   *os.File
	reader *csv.Reader
	logger *slog.Logger
	path   string
	line   int
	// pending holds a record parsed while probing the first row for a header
	pending *SpellRecord
}

// OpenCSVSource opens a spell CSV file for streaming. A header row is
// detected and skipped automatically.
func OpenCSVSource(path string, logger *slog.Logger) (*CSVSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewStorageError("open spell CSV file", err)
	}

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	source := &CSVSource{
		file:   file,
		reader: reader,
		logger: logger,
		path:   path,
	}

	// Peek the first row; skip it if it is a header.
	first, err := reader.Read()
	if err == io.EOF {
		return source, nil
	}
	if err != nil {
		file.Close()
		return nil, apperrors.NewParsingError("read spell CSV file", err)
	}
	source.line++
	if !isHeaderRow(first) {
		if rec, perr := parseSpellRecord(first, source.line); perr == nil {
			source.pending = &rec
		} else {
			source.logParseError(perr)
		}
	}

	return source, nil
}

// Next implements SpellSource
func (s *CSVSource) Next() (SpellRecord, error) {
	if s.pending != nil {
		rec := *s.pending
		s.pending = nil
		return rec, nil
	}

	for {
		row, err := s.reader.Read()
		if err == io.EOF {
			return SpellRecord{}, io.EOF
		}
		if err != nil {
			return SpellRecord{}, apperrors.NewParsingError("read spell CSV record", err)
		}
		s.line++

		rec, perr := parseSpellRecord(row, s.line)
		if perr != nil {
			s.logParseError(perr)
			continue
		}
		return rec, nil
	}
}

// Close releases the underlying file
func (s *CSVSource) Close() error {
	return s.file.Close()
}

func (s *CSVSource) logParseError(err error) {
	s.logger.Warn("skipping malformed spell record",
		slog.String("file", filepath.Base(s.path)),
		slog.String("error", err.Error()),
	)
}

// parseSpellRecord parses a single CSV row into a SpellRecord
func parseSpellRecord(row []string, lineNum int) (SpellRecord, error) {
	if len(row) < 12 {
		return SpellRecord{}, fmt.Errorf("insufficient columns (line %d): expected 12, got %d", lineNum, len(row))
	}

	subjectID := strings.TrimSpace(row[0])
	if subjectID == "" {
		return SpellRecord{}, fmt.Errorf("empty subject id (line %d)", lineNum)
	}

	spellIndex, err := strconv.Atoi(strings.TrimSpace(row[1]))
	if err != nil {
		return SpellRecord{}, fmt.Errorf("parse spell_index (line %d): %w", lineNum, err)
	}

	category := strings.TrimSpace(row[2])
	if category == "" {
		return SpellRecord{}, fmt.Errorf("empty category (line %d)", lineNum)
	}

	female, err := parseBoolField(row[3])
	if err != nil {
		return SpellRecord{}, fmt.Errorf("parse female (line %d): %w", lineNum, err)
	}

	jobCategory := strings.TrimSpace(row[4])
	employerID := strings.TrimSpace(row[5])

	startDate, err := parseDate(strings.TrimSpace(row[6]))
	if err != nil {
		return SpellRecord{}, fmt.Errorf("parse start_date (line %d): %w", lineNum, err)
	}
	endDate, err := parseDate(strings.TrimSpace(row[7]))
	if err != nil {
		return SpellRecord{}, fmt.Errorf("parse end_date (line %d): %w", lineNum, err)
	}

	seniority, err := parseFloatField(row[8], "seniority", lineNum)
	if err != nil {
		return SpellRecord{}, err
	}
	salary, err := parseFloatField(row[9], "salary", lineNum)
	if err != nil {
		return SpellRecord{}, err
	}
	totalComp, err := parseFloatField(row[10], "total_comp", lineNum)
	if err != nil {
		return SpellRecord{}, err
	}

	education, err := strconv.Atoi(strings.TrimSpace(row[11]))
	if err != nil {
		return SpellRecord{}, fmt.Errorf("parse education (line %d): %w", lineNum, err)
	}

	return SpellRecord{
		SubjectID:   subjectID,
		SpellIndex:  spellIndex,
		Category:    category,
		Female:      female,
		JobCategory: jobCategory,
		EmployerID:  employerID,
		StartDate:   startDate,
		EndDate:     endDate,
		Seniority:   seniority,
		Salary:      salary,
		TotalComp:   totalComp,
		Education:   education,
	}, nil
}

// parseDate attempts to parse date strings in multiple formats
func parseDate(dateStr string) (time.Time, error) {
	dateFormats := []string{
		"2006-01-02",
		"2006/01/02",
		"02/01/2006",
		"2006-01-02 15:04:05",
	}

	for _, format := range dateFormats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// parseFloatField safely parses a float64 value from string
func parseFloatField(str, fieldName string, lineNum int) (float64, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, fmt.Errorf("empty %s (line %d)", fieldName, lineNum)
	}

	value, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s (line %d): %w", fieldName, lineNum, err)
	}

	return value, nil
}

// parseBoolField parses 0/1 and true/false gender flags
func parseBoolField(str string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(str)) {
	case "1", "true", "t":
		return true, nil
	case "0", "false", "f":
		return false, nil
	default:
		return false, fmt.Errorf("unable to parse boolean: %s", str)
	}
}

// isHeaderRow checks if the first row contains column names
func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}

	headers := []string{"subject", "spell", "category", "female", "employer"}
	firstCell := strings.ToLower(strings.TrimSpace(row[0]))
	for _, header := range headers {
		if strings.Contains(firstCell, header) {
			return true
		}
	}
	return false
}
