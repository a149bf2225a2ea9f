package panel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "spellpanel/internal/errors"
)

// Config contains the knobs recognized by the aggregation driver
type Config struct {
	// HorizonYear is the upper bound for year expansion
	HorizonYear int
	// ChunkSize is the number of spells read per batch
	ChunkSize int
	// MinDiversityCellSize suppresses employer-year diversity cells below this count
	MinDiversityCellSize int
	// DecimalPrecision is the rounding precision for rates and means
	DecimalPrecision int
	// Workers is the number of aggregation shards; 1 means sequential
	Workers int
	// ContinueOnDataError skips spells with malformed numeric fields instead
	// of aborting the run
	ContinueOnDataError bool
}

// DefaultConfig returns the default driver configuration
func DefaultConfig() Config {
	return Config{
		HorizonYear:          DefaultHorizonYear,
		ChunkSize:            DefaultChunkSize,
		MinDiversityCellSize: DefaultMinDiversityCellSize,
		DecimalPrecision:     DefaultDecimalPrecision,
		Workers:              1,
	}
}

// Validate checks the configuration for usable values
func (c Config) Validate() error {
	if c.HorizonYear < 1900 {
		return apperrors.NewConfigError(fmt.Sprintf("horizon year %d is before epoch", c.HorizonYear), nil)
	}
	if c.ChunkSize < 1 {
		return apperrors.NewConfigError(fmt.Sprintf("chunk size must be positive, got %d", c.ChunkSize), nil)
	}
	if c.MinDiversityCellSize < 1 {
		return apperrors.NewConfigError(fmt.Sprintf("minimum diversity cell size must be positive, got %d", c.MinDiversityCellSize), nil)
	}
	if c.DecimalPrecision < 0 {
		return apperrors.NewConfigError(fmt.Sprintf("decimal precision must be non-negative, got %d", c.DecimalPrecision), nil)
	}
	if c.Workers < 1 {
		return apperrors.NewConfigError(fmt.Sprintf("worker count must be positive, got %d", c.Workers), nil)
	}
	return nil
}

// SpellSource is a sequential stream of spell records. Next returns io.EOF
// after the last record.
type SpellSource interface {
	Next() (SpellRecord, error)
}

// accumulatorSet bundles the four group-key accumulators and the diversity
// accumulator that every yearly observation fans out into. Each worker in
// the parallel mode owns a private set; sets combine by key-wise summation.
type accumulatorSet struct {
	categoryYear       *Accumulator[CategoryYearKey]
	categoryYearGender *Accumulator[CategoryYearGenderKey]
	categoryYearJob    *Accumulator[CategoryYearJobKey]
	employerYear       *Accumulator[EmployerYearKey]
	diversity          *DiversityAccumulator
}

func newAccumulatorSet(precision int) *accumulatorSet {
	return &accumulatorSet{
		categoryYear:       NewAccumulator[CategoryYearKey](outcomeFields(precision, true)),
		categoryYearGender: NewAccumulator[CategoryYearGenderKey](outcomeFields(precision, false)),
		categoryYearJob:    NewAccumulator[CategoryYearJobKey](outcomeFields(precision, true)),
		employerYear:       NewAccumulator[EmployerYearKey](outcomeFields(precision, true)),
		diversity:          NewDiversityAccumulator(),
	}
}

// observe fans one yearly observation out into all five accumulators. The
// updates form one atomic unit: field values are validated up front so no
// accumulator is touched when any value is rejected. Observations without an
// employer id skip only the employer-keyed accumulators.
func (s *accumulatorSet) observe(obs YearlyObservation) error {
	withFemale := outcomeValues(obs, true)
	withoutFemale := outcomeValues(obs, false)

	if err := s.categoryYear.Update(CategoryYearKey{Category: obs.Category, Year: obs.Year}, withFemale); err != nil {
		return err
	}
	if err := s.categoryYearGender.Update(CategoryYearGenderKey{Category: obs.Category, Year: obs.Year, Female: obs.Female}, withoutFemale); err != nil {
		return err
	}
	if err := s.categoryYearJob.Update(CategoryYearJobKey{Category: obs.Category, Year: obs.Year, JobCategory: obs.JobCategory}, withFemale); err != nil {
		return err
	}
	if obs.EmployerID != "" {
		if err := s.employerYear.Update(EmployerYearKey{EmployerID: obs.EmployerID, Year: obs.Year}, withFemale); err != nil {
			return err
		}
		s.diversity.Update(obs.EmployerID, obs.Year, obs.Category)
	}
	return nil
}

// merge folds another set into this one by key-wise summation
func (s *accumulatorSet) merge(other *accumulatorSet) error {
	if err := s.categoryYear.Merge(other.categoryYear); err != nil {
		return err
	}
	if err := s.categoryYearGender.Merge(other.categoryYearGender); err != nil {
		return err
	}
	if err := s.categoryYearJob.Merge(other.categoryYearJob); err != nil {
		return err
	}
	if err := s.employerYear.Merge(other.employerYear); err != nil {
		return err
	}
	s.diversity.Merge(other.diversity)
	return nil
}

// materialize produces the sorted panel set of this accumulator state
func (s *accumulatorSet) materialize(cfg Config) *PanelSet {
	return &PanelSet{
		CategoryYear: s.categoryYear.Materialize(
			"category_year", []string{"category", "year"}, categoryYearCols, categoryYearLess),
		CategoryYearGender: s.categoryYearGender.Materialize(
			"category_year_gender", []string{"category", "year", "female"}, categoryYearGenderCols, categoryYearGenderLess),
		CategoryYearJob: s.categoryYearJob.Materialize(
			"category_year_job", []string{"category", "year", "job_category"}, categoryYearJobCols, categoryYearJobLess),
		EmployerYear: s.employerYear.Materialize(
			"employer_year", []string{"employer_id", "year"}, employerYearCols, employerYearLess),
		Diversity: s.diversity.Materialize(cfg.MinDiversityCellSize, cfg.DecimalPrecision),
	}
}

// Driver orchestrates one aggregation run: chunked consumption of the spell
// stream, yearly expansion, fan-out into the accumulators and final
// materialization. Accumulator state is owned exclusively by the driver for
// the duration of a run and discarded afterwards.
type Driver struct {
	cfg    Config
	logger *slog.Logger
}

// NewDriver creates a driver with the given configuration
func NewDriver(cfg Config, logger *slog.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{cfg: cfg, logger: logger}, nil
}

// Run consumes the spell stream to exhaustion and returns the materialized
// panel set. Peak memory beyond accumulator state is bounded by one chunk.
// Output is identical for any chunk size and any worker count.
func (d *Driver) Run(ctx context.Context, source SpellSource) (*PanelSet, error) {
	runID := uuid.NewString()
	start := time.Now()

	d.logger.InfoContext(ctx, "starting aggregation run",
		slog.String("run_id", runID),
		slog.Int("horizon_year", d.cfg.HorizonYear),
		slog.Int("chunk_size", d.cfg.ChunkSize),
		slog.Int("workers", d.cfg.Workers),
	)

	var (
		set *accumulatorSet
		err error
	)
	if d.cfg.Workers > 1 {
		set, err = d.runParallel(ctx, source)
	} else {
		set, err = d.runSequential(ctx, source)
	}
	if err != nil {
		return nil, err
	}

	result := set.materialize(d.cfg)

	d.logger.InfoContext(ctx, "aggregation run completed",
		slog.String("run_id", runID),
		slog.Int("category_year_cells", len(result.CategoryYear.Rows)),
		slog.Int("category_year_gender_cells", len(result.CategoryYearGender.Rows)),
		slog.Int("category_year_job_cells", len(result.CategoryYearJob.Rows)),
		slog.Int("employer_year_cells", len(result.EmployerYear.Rows)),
		slog.Int("diversity_cells", len(result.Diversity)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// runSequential is the default single-threaded batch loop
func (d *Driver) runSequential(ctx context.Context, source SpellSource) (*accumulatorSet, error) {
	set := newAccumulatorSet(d.cfg.DecimalPrecision)
	chunk := make([]SpellRecord, 0, d.cfg.ChunkSize)

	for chunkIndex := 0; ; chunkIndex++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("aggregation cancelled: %w", ctx.Err())
		default:
		}

		var err error
		chunk, err = readChunk(source, chunk[:0], d.cfg.ChunkSize)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return set, nil
		}

		if err := d.processChunk(ctx, set, chunk, chunkIndex); err != nil {
			return nil, err
		}
	}
}

// runParallel shards chunks across workers, each owning a private
// accumulator set, and merges the partial sets with a single-threaded
// key-wise reduction at the end. Aggregation is commutative over all
// tracked statistics, so shard assignment does not affect the output.
func (d *Driver) runParallel(ctx context.Context, source SpellSource) (*accumulatorSet, error) {
	sets := make([]*accumulatorSet, d.cfg.Workers)
	for i := range sets {
		sets[i] = newAccumulatorSet(d.cfg.DecimalPrecision)
	}

	chunks := make(chan []SpellRecord, d.cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < d.cfg.Workers; i++ {
		workerSet := sets[i]
		g.Go(func() error {
			for chunk := range chunks {
				if err := d.processChunk(gctx, workerSet, chunk, -1); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(chunks)
		for {
			chunk, err := readChunk(source, nil, d.cfg.ChunkSize)
			if err != nil {
				return err
			}
			if len(chunk) == 0 {
				return nil
			}
			select {
			case chunks <- chunk:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := sets[0]
	for _, partial := range sets[1:] {
		if err := merged.merge(partial); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

// processChunk expands every spell of the chunk and feeds the resulting
// yearly observations into the accumulator set.
func (d *Driver) processChunk(ctx context.Context, set *accumulatorSet, chunk []SpellRecord, chunkIndex int) error {
	for _, rec := range chunk {
		if err := validateSpell(rec); err != nil {
			if d.cfg.ContinueOnDataError {
				d.logger.WarnContext(ctx, "skipping spell with invalid data",
					slog.String("subject_id", rec.SubjectID),
					slog.Int("spell_index", rec.SpellIndex),
					slog.String("error", err.Error()),
				)
				continue
			}
			return err
		}

		for obs := range ExpandSpell(rec, d.cfg.HorizonYear) {
			if err := set.observe(obs); err != nil {
				return fmt.Errorf("subject %s spell %d: %w", rec.SubjectID, rec.SpellIndex, err)
			}
		}
	}

	if chunkIndex >= 0 {
		d.logger.DebugContext(ctx, "processed chunk",
			slog.Int("chunk_index", chunkIndex),
			slog.Int("spells", len(chunk)),
		)
	}
	return nil
}

// validateSpell rejects non-finite numeric fields before any accumulator is
// touched, keeping a spell's observations an all-or-nothing unit.
func validateSpell(rec SpellRecord) error {
	fields := []struct {
		name  string
		value float64
	}{
		{"seniority", rec.Seniority},
		{"salary", rec.Salary},
		{"total_comp", rec.TotalComp},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return apperrors.NewDataError(rec.SubjectID, rec.SpellIndex, f.name,
				fmt.Sprintf("value %v is not finite", f.value))
		}
	}
	return nil
}

// readChunk appends up to limit records from the source into buf
func readChunk(source SpellSource, buf []SpellRecord, limit int) ([]SpellRecord, error) {
	for len(buf) < limit {
		rec, err := source.Next()
		if errors.Is(err, io.EOF) {
			return buf, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read spell stream: %w", err)
		}
		buf = append(buf, rec)
	}
	return buf, nil
}
