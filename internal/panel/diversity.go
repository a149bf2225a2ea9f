package panel

import (
	"sort"
)

// DiversityAccumulator maps each (employer, year) cell to a running count
// per category. Cells are reduced to a single Blau diversity score at
// materialization; suppression of small cells happens there too, so the
// threshold can change between materializations without re-aggregating.
type DiversityAccumulator struct {
	cells map[EmployerYearKey]map[string]int64
}

// NewDiversityAccumulator creates an empty diversity accumulator
func NewDiversityAccumulator() *DiversityAccumulator {
	return &DiversityAccumulator{
		cells: make(map[EmployerYearKey]map[string]int64),
	}
}

// Update increments the count for category within the (employer, year) cell
func (d *DiversityAccumulator) Update(employerID string, year int, category string) {
	key := EmployerYearKey{EmployerID: employerID, Year: year}
	counts, ok := d.cells[key]
	if !ok {
		counts = make(map[string]int64)
		d.cells[key] = counts
	}
	counts[category]++
}

// Merge folds another accumulator's category counts into this one
func (d *DiversityAccumulator) Merge(other *DiversityAccumulator) {
	for key, otherCounts := range other.cells {
		counts, ok := d.cells[key]
		if !ok {
			counts = make(map[string]int64)
			d.cells[key] = counts
		}
		for category, n := range otherCounts {
			counts[category] += n
		}
	}
}

// Len returns the number of distinct (employer, year) cells seen so far
func (d *DiversityAccumulator) Len() int {
	return len(d.cells)
}

// DiversityRow is one materialized employer-year diversity observation
type DiversityRow struct {
	EmployerID string
	Year       int
	Index      float64
	Total      int64
	Categories int
}

// Materialize reduces every cell with at least minCellSize observations to a
// diversity row, sorted by employer id then year. Cells below the threshold
// are dropped entirely rather than zero-filled; small samples give unstable
// diversity estimates.
func (d *DiversityAccumulator) Materialize(minCellSize int, precision int) []DiversityRow {
	rows := make([]DiversityRow, 0, len(d.cells))
	for key, counts := range d.cells {
		total := int64(0)
		for _, n := range counts {
			total += n
		}
		if total < int64(minCellSize) {
			continue
		}
		rows = append(rows, DiversityRow{
			EmployerID: key.EmployerID,
			Year:       key.Year,
			Index:      roundTo(BlauIndex(counts), precision),
			Total:      total,
			Categories: len(counts),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].EmployerID != rows[j].EmployerID {
			return rows[i].EmployerID < rows[j].EmployerID
		}
		return rows[i].Year < rows[j].Year
	})
	return rows
}

// BlauIndex computes the Blau (Gini-Simpson) diversity index 1 - sum(p_i^2)
// over the category proportions of a cell. The index is 0 when a single
// category dominates completely and approaches 1 - 1/k for k evenly
// represented categories.
func BlauIndex(counts map[string]int64) float64 {
	total := int64(0)
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return 0
	}

	sumSquares := 0.0
	for _, n := range counts {
		p := float64(n) / float64(total)
		sumSquares += p * p
	}
	return 1 - sumSquares
}
