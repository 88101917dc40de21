package pricing

import (
	"sort"
	"strings"
)

// rankBandSize is the number of records per rank group. Groups fill by index
// band in descending usage order, so group sizes stay constant regardless of
// dataset size and small datasets simply leave the later groups empty.
const rankBandSize = 250

// AssignRankGroups sorts records by usage volume (descending, stable) and
// assigns rank groups 1-6 by fixed index bands.
func AssignRankGroups(records []ProductRecord) {
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return records[idx[a]].UsageVolume > records[idx[b]].UsageVolume
	})
	for pos, i := range idx {
		group := pos/rankBandSize + 1
		if group > 6 {
			group = 6
		}
		records[i].RankGroup = group
	}
}

// ClassifyTrend derives the cost trend from next vs average cost. A missing
// next cost substitutes the average cost and marks the record. An explicit
// trend keyword from the import wins over the derived value.
func ClassifyTrend(r *ProductRecord, keyword string) {
	if r.NextCost == 0 {
		r.NextCost = r.AvgCost
		r.AddFlag(FlagMissingNextCost)
	}
	if keyword != "" {
		if strings.Contains(strings.ToLower(keyword), "down") {
			r.CostTrend = TrendFalling
		} else {
			r.CostTrend = TrendRisingOrFlat
		}
		return
	}
	if r.NextCost <= r.AvgCost {
		r.CostTrend = TrendFalling
	} else {
		r.CostTrend = TrendRisingOrFlat
	}
}
