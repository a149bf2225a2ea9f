// Package panel converts a stream of person-job employment spells into
// aggregated panel datasets for longitudinal analysis.
//
// Each spell is expanded into one observation per calendar year it covers
// (with a January-1st boundary rule and a configurable horizon year) and
// folded simultaneously into four grouping schemes: category by year,
// category by year by gender, category by year by job category, and
// employer by year. A fifth output reduces per-employer category counts to
// a Blau (Gini-Simpson) diversity index.
//
// Aggregation keeps only count, sum and sum-of-squares per cell, bounding
// memory at the number of distinct group keys rather than the number of
// observations. The reduction is associative and commutative, so the driver
// can optionally shard the stream across workers and merge the partial
// accumulators key-wise; output is identical for any chunk size and worker
// count.
package panel
