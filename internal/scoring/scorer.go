package scoring

import (
	"math"
	"sort"
	"time"
)

// #region scorer

// Scorer computes completion performance and picks a reward tier.
type Scorer struct {
	table TierTable
}

// NewScorer creates a scorer over the given tier table. Tiers are sorted by
// descending threshold so selection scans highest first regardless of input order.
func NewScorer(table TierTable) *Scorer {
	tiers := append([]Tier(nil), table.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].Threshold > tiers[j].Threshold
	})
	table.Tiers = tiers
	return &Scorer{table: table}
}

// Evaluate scores a completion and selects its tier.
func (s *Scorer) Evaluate(elapsed, maxDuration time.Duration, finalHeat, heatCap float64) Result {
	ts, hs := components(elapsed, maxDuration, finalHeat, heatCap)
	perf := Score(elapsed, maxDuration, finalHeat, heatCap)
	return Result{
		TimeScore:        ts,
		HeatScore:        hs,
		PerformanceScore: perf,
		Tier:             SelectTier(perf, s.table),
	}
}

// Table returns the sorted tier table.
func (s *Scorer) Table() TierTable {
	return s.table
}

// #endregion scorer

// #region score

// Score returns 0.6*timeScore + 0.4*heatScore in [0,1], where each component
// is one minus its clamped usage ratio. Fast, quiet completions score highest.
func Score(elapsed, maxDuration time.Duration, finalHeat, heatCap float64) float64 {
	ts, hs := components(elapsed, maxDuration, finalHeat, heatCap)
	return timeWeight*ts + heatWeight*hs
}

func components(elapsed, maxDuration time.Duration, finalHeat, heatCap float64) (timeScore, heatScore float64) {
	return 1 - ratio(elapsed.Seconds(), maxDuration.Seconds()), 1 - ratio(finalHeat, heatCap)
}

// SelectTier returns the first tier, scanning from the highest threshold down,
// whose threshold is <= score. Falls back to the table's base tier.
func SelectTier(score float64, table TierTable) string {
	tiers := table.Tiers
	if !sort.SliceIsSorted(tiers, func(i, j int) bool { return tiers[i].Threshold > tiers[j].Threshold }) {
		tiers = append([]Tier(nil), tiers...)
		sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Threshold > tiers[j].Threshold })
	}
	for _, t := range tiers {
		if t.Threshold <= score {
			return t.Name
		}
	}
	return table.Base
}

// #endregion score

// #region helpers

// ratio returns num/den clamped to [0,1]; a non-positive denominator counts
// as fully used unless nothing was used.
func ratio(num, den float64) float64 {
	if math.IsNaN(num) || num <= 0 {
		return 0
	}
	if den <= 0 || math.IsNaN(den) {
		return 1
	}
	r := num / den
	if r > 1 {
		return 1
	}
	return r
}

// #endregion helpers
