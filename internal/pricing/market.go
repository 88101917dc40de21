package pricing

// PrimaryCompetitor is the designated competitor whose price serves as the
// market low reference when present.
const PrimaryCompetitor = "eth_net"

// ResolveMarketReferences derives the market low and true market low for the
// record from its competitor prices. Zero or absent prices count as no data.
//
// When no competitor quotes exist at all, both references collapse to the
// average cost and the record is marked so the flagging step does not misread
// "cost equals market" as an at-market position.
func ResolveMarketReferences(r *ProductRecord) {
	var (
		lowestAny   float64
		lowestOther float64
	)
	primary := r.CompetitorPrices[PrimaryCompetitor]
	for name, price := range r.CompetitorPrices {
		if price <= 0 {
			continue
		}
		if lowestAny == 0 || price < lowestAny {
			lowestAny = price
		}
		if name != PrimaryCompetitor && (lowestOther == 0 || price < lowestOther) {
			lowestOther = price
		}
	}

	switch {
	case primary > 0:
		r.MarketLow = primary
	case lowestOther > 0:
		r.MarketLow = lowestOther
	default:
		r.MarketLow = 0
	}

	if lowestAny > 0 {
		r.TrueMarketLow = lowestAny
	} else if r.MarketLow > 0 {
		r.TrueMarketLow = r.MarketLow
	} else {
		r.TrueMarketLow = r.AvgCost
		r.NoMarketData = true
		r.AddFlag(FlagNoMarketData)
	}

	if r.MarketLow == 0 {
		r.MarketLow = r.TrueMarketLow
	}
}
