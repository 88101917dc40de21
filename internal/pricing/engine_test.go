package pricing

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApplyRulesFallingTrendPricesAtMarketLow(t *testing.T) {
	r := ProductRecord{
		AvgCost:       10,
		MarketLow:     12,
		TrueMarketLow: 11,
		CostTrend:     TrendFalling,
		RankGroup:     1,
	}
	ApplyRules(&r, DefaultRuleConfig())
	if !approx(r.ProposedPrice, 12.00) {
		t.Fatalf("expected 12.00, got %.4f", r.ProposedPrice)
	}
	if r.AppliedRule != RuleTag1a {
		t.Fatalf("expected %s, got %s", RuleTag1a, r.AppliedRule)
	}
	if !approx(r.CalculatedPrice, r.ProposedPrice) {
		t.Fatalf("calculated price not frozen")
	}
}

func TestApplyRulesClampNeverBelowCurrentPrice(t *testing.T) {
	r := ProductRecord{
		AvgCost:       10,
		MarketLow:     12,
		TrueMarketLow: 11,
		CurrentPrice:  13,
		CostTrend:     TrendFalling,
		RankGroup:     1,
	}
	ApplyRules(&r, DefaultRuleConfig())
	if !approx(r.ProposedPrice, 13.00) {
		t.Fatalf("expected clamp to 13.00, got %.4f", r.ProposedPrice)
	}
	// The tag keeps reporting the branch even though the clamp overrode it.
	if r.AppliedRule != RuleTag1a {
		t.Fatalf("expected %s, got %s", RuleTag1a, r.AppliedRule)
	}
}

func TestApplyRulesRisingTrendTakesBetterOfMLAndCost(t *testing.T) {
	cfg := DefaultRuleConfig()

	r := ProductRecord{AvgCost: 10, MarketLow: 12, TrueMarketLow: 12, CostTrend: TrendRisingOrFlat, RankGroup: 2}
	ApplyRules(&r, cfg)
	// ML path: 12*1.03=12.36 beats cost path 10*1.12=11.20.
	if !approx(r.ProposedPrice, 12.36) || r.AppliedRule != RuleTag1bML {
		t.Fatalf("expected 12.36/%s, got %.4f/%s", RuleTag1bML, r.ProposedPrice, r.AppliedRule)
	}

	r = ProductRecord{AvgCost: 10, MarketLow: 10.5, TrueMarketLow: 10.5, CostTrend: TrendRisingOrFlat, RankGroup: 2}
	ApplyRules(&r, cfg)
	// Cost path: 10*1.12=11.20 beats ML path 10.5*1.03=10.815.
	if !approx(r.ProposedPrice, 11.20) || r.AppliedRule != RuleTag1bCost {
		t.Fatalf("expected 11.20/%s, got %.4f/%s", RuleTag1bCost, r.ProposedPrice, r.AppliedRule)
	}
}

func TestApplyRulesNoHeadroomUsesTMLOrCost(t *testing.T) {
	cfg := DefaultRuleConfig()

	r := ProductRecord{AvgCost: 10, MarketLow: 9, TrueMarketLow: 12, CostTrend: TrendFalling, RankGroup: 1}
	ApplyRules(&r, cfg)
	// TML path: 12*1.03=12.36 beats cost path 11.20.
	if !approx(r.ProposedPrice, 12.36) || r.AppliedRule != RuleTag2TML {
		t.Fatalf("expected 12.36/%s, got %.4f/%s", RuleTag2TML, r.ProposedPrice, r.AppliedRule)
	}

	r = ProductRecord{AvgCost: 10, MarketLow: 9, TrueMarketLow: 9, CostTrend: TrendFalling, RankGroup: 1}
	ApplyRules(&r, cfg)
	// Cost path: 11.20 beats TML path 9*1.03=9.27.
	if !approx(r.ProposedPrice, 11.20) || r.AppliedRule != RuleTag2Cost {
		t.Fatalf("expected 11.20/%s, got %.4f/%s", RuleTag2Cost, r.ProposedPrice, r.AppliedRule)
	}
}

func TestApplyRulesNoMarketDataFallsBackToCostMarkup(t *testing.T) {
	r := ProductRecord{AvgCost: 10, CostTrend: TrendRisingOrFlat, RankGroup: 1}
	ResolveMarketReferences(&r)
	ApplyRules(&r, DefaultRuleConfig())
	if !approx(r.ProposedPrice, 11.20) {
		t.Fatalf("expected 11.20, got %.4f", r.ProposedPrice)
	}
	if r.AppliedRule != RuleTag2Cost {
		t.Fatalf("expected %s, got %s", RuleTag2Cost, r.AppliedRule)
	}
	RefreshFlags(&r)
	// 11.20 is above 10*1.10 but there is no genuine market reference.
	if r.HasFlag(FlagHighPrice) {
		t.Fatalf("high price flag must be suppressed without market data")
	}
}

func TestApplyRulesBandSelection(t *testing.T) {
	cfg := DefaultRuleConfig()
	for _, tc := range []struct {
		group    int
		expected float64
	}{
		{1, 12.00}, {2, 12.00},
		{3, 12.12}, {4, 12.12},
		{5, 12.24}, {6, 12.24},
	} {
		r := ProductRecord{AvgCost: 10, MarketLow: 12, TrueMarketLow: 12, CostTrend: TrendFalling, RankGroup: tc.group}
		ApplyRules(&r, cfg)
		if !approx(r.ProposedPrice, tc.expected) {
			t.Fatalf("group %d: expected %.2f, got %.4f", tc.group, tc.expected, r.ProposedPrice)
		}
	}
}

func TestMarginGuardsNonPositivePrice(t *testing.T) {
	if got := Margin(0, 5); got != 0 {
		t.Fatalf("expected 0 margin for zero price, got %.4f", got)
	}
	if got := Margin(-1, 5); got != 0 {
		t.Fatalf("expected 0 margin for negative price, got %.4f", got)
	}
	if got := Margin(10, 8); !approx(got, 0.2) {
		t.Fatalf("expected 0.2, got %.4f", got)
	}
}
