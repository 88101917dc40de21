package pricing

// ComputeAggregates performs the whole-snapshot portfolio pass. Records that
// failed validation, or have no usage, contribute to the item counts only.
func ComputeAggregates(items []ProductRecord) Aggregates {
	agg := Aggregates{TotalItems: len(items)}

	for i := range items {
		r := &items[i]
		if r.Invalid() {
			continue
		}
		if r.HasFlag(FlagHighPrice) {
			agg.HighPriceFlags++
		}
		if r.HasFlag(FlagLowMargin) {
			agg.LowMarginFlags++
		}
		if r.UsageVolume <= 0 {
			continue
		}
		agg.ActiveItems++

		currentPrice := r.CurrentPrice
		if currentPrice < 0 {
			currentPrice = 0
		}
		proposedPrice := r.ProposedPrice
		if proposedPrice <= 0 {
			proposedPrice = currentPrice
		}

		cost := r.UsageVolume * r.AvgCost
		agg.CurrentRevenue += r.UsageVolume * currentPrice
		agg.CurrentProfit += r.UsageVolume*currentPrice - cost
		agg.ProposedRevenue += r.UsageVolume * proposedPrice
		agg.ProposedProfit += r.UsageVolume*proposedPrice - cost
		agg.TotalCost += cost
	}

	agg.TotalRevenue = agg.ProposedRevenue
	agg.TotalProfit = agg.ProposedProfit

	if agg.TotalRevenue > 0 {
		agg.OverallMargin = agg.TotalProfit / agg.TotalRevenue * 100
	}
	if agg.CurrentRevenue > 0 {
		agg.CurrentMargin = agg.CurrentProfit / agg.CurrentRevenue * 100
	}
	if agg.ProposedRevenue > 0 {
		agg.ProposedMargin = agg.ProposedProfit / agg.ProposedRevenue * 100
	}
	if agg.CurrentProfit > 0 {
		agg.ProfitDelta = (agg.ProposedProfit - agg.CurrentProfit) / agg.CurrentProfit * 100
	}
	agg.MarginLift = agg.ProposedMargin - agg.CurrentMargin

	return agg
}
