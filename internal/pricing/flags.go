package pricing

import (
	"fmt"
	"math"
	"strings"
)

// highPriceFactor flags prices at or above 110% of the true market low.
const highPriceFactor = 1.10

// lowMarginThreshold flags proposed margins below 5%.
const lowMarginThreshold = 0.05

// decreaseThresholdPct is the manual price cut, in percent, beyond which a
// decrease flag is raised.
const decreaseThresholdPct = 5.0

// DecreaseFlag renders the parameterized decrease flag for the given
// percentage drop.
func DecreaseFlag(pct float64) string {
	return fmt.Sprintf("%s%d%%", decreaseFlagPrefix, int(math.Round(pct)))
}

// IsDecreaseFlag reports whether the flag is a price decrease marker.
func IsDecreaseFlag(flag string) bool {
	return strings.HasPrefix(flag, decreaseFlagPrefix)
}

// RefreshFlags re-derives the price dependent flags from the record's current
// proposed price. Flags are set and cleared as a unit so a stale marker never
// survives a price change.
//
// High-price flagging is suppressed for records without genuine market data:
// their true market low is only an avg-cost fallback, not a market position.
func RefreshFlags(r *ProductRecord) {
	r.ProposedMargin = Margin(r.ProposedPrice, r.AvgCost)

	if !r.NoMarketData && r.TrueMarketLow > 0 && r.ProposedPrice >= r.TrueMarketLow*highPriceFactor {
		r.AddFlag(FlagHighPrice)
	} else {
		r.RemoveFlag(FlagHighPrice)
	}

	if r.ProposedMargin < lowMarginThreshold {
		r.AddFlag(FlagLowMargin)
	} else {
		r.RemoveFlag(FlagLowMargin)
	}

	refreshDecreaseFlag(r)
}

// refreshDecreaseFlag maintains the single PRICE_DECREASE_<n>% marker for
// manual cuts of more than 5% below the price in force.
func refreshDecreaseFlag(r *ProductRecord) {
	for _, f := range append([]string(nil), r.Flags...) {
		if IsDecreaseFlag(f) {
			r.RemoveFlag(f)
		}
	}
	if !r.PriceModified || r.CurrentPrice <= 0 || r.ProposedPrice >= r.CurrentPrice {
		return
	}
	pct := (r.CurrentPrice - r.ProposedPrice) / r.CurrentPrice * 100
	if pct > decreaseThresholdPct {
		r.AddFlag(DecreaseFlag(pct))
	}
}
