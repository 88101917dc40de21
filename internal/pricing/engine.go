package pricing

// Rule tags identifying which branch of the decision tree produced the
// calculated price.
const (
	RuleTag1a     = "Rule1a"
	RuleTag1bML   = "Rule1b-ML"
	RuleTag1bCost = "Rule1b-Cost"
	RuleTag2TML   = "Rule2-TML"
	RuleTag2Cost  = "Rule2-Cost"
)

// ApplyRules runs the pricing decision tree for a single record. The record
// must already carry its rank group, cost trend and market references.
//
// Rule 1 applies when the buying cost undercuts the market low: the product
// can be priced near market while protecting margin. Rule 2 is the fallback
// when the market is not beatable, taking the better of a market-anchored or
// cost-anchored price.
func ApplyRules(r *ProductRecord, cfg RuleConfig) {
	band := cfg.Band(r.RankGroup)

	switch {
	case r.AvgCost < r.MarketLow && r.CostTrend == TrendFalling:
		r.ProposedPrice = r.MarketLow * (1 + band.MLUpliftDown)
		r.AppliedRule = RuleTag1a

	case r.AvgCost < r.MarketLow:
		mlPrice := r.MarketLow * (1 + band.MLUpliftUp)
		costPrice := r.AvgCost * (1 + band.CostMarkup)
		if mlPrice >= costPrice {
			r.ProposedPrice = mlPrice
			r.AppliedRule = RuleTag1bML
		} else {
			r.ProposedPrice = costPrice
			r.AppliedRule = RuleTag1bCost
		}

	case !r.NoMarketData:
		tmlPrice := r.TrueMarketLow * (1 + cfg.TMLUplift)
		costPrice := r.AvgCost * (1 + band.CostMarkup)
		if tmlPrice >= costPrice {
			r.ProposedPrice = tmlPrice
			r.AppliedRule = RuleTag2TML
		} else {
			r.ProposedPrice = costPrice
			r.AppliedRule = RuleTag2Cost
		}

	default:
		r.ProposedPrice = r.AvgCost * (1 + band.CostMarkup)
		r.AppliedRule = RuleTag2Cost
	}

	// Never propose below the price already in force. The applied rule tag
	// keeps reporting the branch that produced the computed value.
	if r.CurrentPrice > 0 && r.ProposedPrice < r.CurrentPrice {
		r.ProposedPrice = r.CurrentPrice
	}

	r.CalculatedPrice = r.ProposedPrice
	r.ProposedMargin = Margin(r.ProposedPrice, r.AvgCost)
}

// Margin computes (price - cost) / price, degrading to zero for non-positive
// prices.
func Margin(price, cost float64) float64 {
	if price <= 0 {
		return 0
	}
	return (price - cost) / price
}
