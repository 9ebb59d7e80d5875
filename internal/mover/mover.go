// Package mover ranks instruments by their percent move over the loaded period.
package mover

import (
	"fmt"
	"math"
	"sort"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/series"
)

// DefaultTopN is the number of gainers and losers reported per pass.
const DefaultTopN = 5

// Ranking is the outcome of one ranking pass.
type Ranking struct {
	Gainers []core.Mover // descending percent change
	Losers  []core.Mover // ascending percent change
	All     []core.Mover // every eligible symbol, descending
}

// Selected returns gainers followed by losers, without duplicates.
func (r Ranking) Selected() []core.Mover {
	seen := make(map[string]struct{}, len(r.Gainers)+len(r.Losers))
	out := make([]core.Mover, 0, len(r.Gainers)+len(r.Losers))
	for _, m := range append(append([]core.Mover{}, r.Gainers...), r.Losers...) {
		if _, ok := seen[m.Symbol]; ok {
			continue
		}
		seen[m.Symbol] = struct{}{}
		out = append(out, m)
	}
	return out
}

// PercentChange computes (lastClose - firstOpen) / firstOpen * 100 for a series.
func PercentChange(s *series.Series) (float64, error) {
	first, ok := s.First()
	if !ok {
		return 0, core.WrapError(core.ErrDataQuality, fmt.Errorf("%s: series is empty", s.Symbol()))
	}
	last, _ := s.Last()

	if !usable(first.Open) || first.Open == 0 {
		return 0, core.WrapError(core.ErrDataQuality, fmt.Errorf("%s: first open missing", s.Symbol()))
	}
	if !usable(last.Close) {
		return 0, core.WrapError(core.ErrDataQuality, fmt.Errorf("%s: last close missing", s.Symbol()))
	}

	return (last.Close - first.Open) / first.Open * 100, nil
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Rank computes the percent change for every symbol in the store and selects the top
// topN gainers and losers. Symbols that cannot be ranked are reported as diagnostics.
func Rank(store *series.Store, topN int) (Ranking, []core.Diagnostic) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	var (
		movers []core.Mover
		diags  []core.Diagnostic
	)
	for _, sym := range store.Symbols() {
		s, _ := store.Get(sym)
		pct, err := PercentChange(s)
		if err != nil {
			diags = append(diags, core.NewDiagnostic(sym, core.StageRank, err))
			continue
		}
		movers = append(movers, core.Mover{Symbol: sym, PercentChange: pct})
	}

	return Select(movers, topN), diags
}

// Select orders movers and cuts the gainer and loser lists.
// Ties are broken by symbol so the output is deterministic.
func Select(movers []core.Mover, topN int) Ranking {
	desc := make([]core.Mover, len(movers))
	copy(desc, movers)
	sort.Slice(desc, func(i, j int) bool {
		if desc[i].PercentChange != desc[j].PercentChange {
			return desc[i].PercentChange > desc[j].PercentChange
		}
		return desc[i].Symbol < desc[j].Symbol
	})

	asc := make([]core.Mover, len(movers))
	copy(asc, movers)
	sort.Slice(asc, func(i, j int) bool {
		if asc[i].PercentChange != asc[j].PercentChange {
			return asc[i].PercentChange < asc[j].PercentChange
		}
		return asc[i].Symbol < asc[j].Symbol
	})

	n := min(topN, len(movers))
	return Ranking{
		Gainers: desc[:n:n],
		Losers:  asc[:n:n],
		All:     desc,
	}
}
