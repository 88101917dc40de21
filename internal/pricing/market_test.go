package pricing

import "testing"

func TestResolveMarketReferencesPrefersPrimary(t *testing.T) {
	r := ProductRecord{
		AvgCost: 5,
		CompetitorPrices: map[string]float64{
			PrimaryCompetitor: 12,
			"nupharm":         9,
			"aah":             11,
		},
	}
	ResolveMarketReferences(&r)
	if !approx(r.MarketLow, 12) {
		t.Fatalf("expected primary price 12 as ML, got %.2f", r.MarketLow)
	}
	if !approx(r.TrueMarketLow, 9) {
		t.Fatalf("expected 9 as TML, got %.2f", r.TrueMarketLow)
	}
	if r.NoMarketData {
		t.Fatalf("record has market data")
	}
}

func TestResolveMarketReferencesFallsBackToMinimum(t *testing.T) {
	r := ProductRecord{
		AvgCost: 5,
		CompetitorPrices: map[string]float64{
			PrimaryCompetitor: 0,
			"lexon":           8,
			"aah":             10,
		},
	}
	ResolveMarketReferences(&r)
	if !approx(r.MarketLow, 8) {
		t.Fatalf("expected min competitor 8 as ML, got %.2f", r.MarketLow)
	}
	if !approx(r.TrueMarketLow, 8) {
		t.Fatalf("expected 8 as TML, got %.2f", r.TrueMarketLow)
	}
}

func TestResolveMarketReferencesNoDataCollapsesToCost(t *testing.T) {
	r := ProductRecord{AvgCost: 7.5, CompetitorPrices: map[string]float64{"eth": 0}}
	ResolveMarketReferences(&r)
	if !approx(r.MarketLow, 7.5) || !approx(r.TrueMarketLow, 7.5) {
		t.Fatalf("expected both references to collapse to cost, got ML=%.2f TML=%.2f", r.MarketLow, r.TrueMarketLow)
	}
	if !r.NoMarketData {
		t.Fatalf("expected no-market-data marker")
	}
	if !r.HasFlag(FlagNoMarketData) {
		t.Fatalf("expected %s flag", FlagNoMarketData)
	}
}

func TestResolveMarketReferencesNilCompetitorMap(t *testing.T) {
	r := ProductRecord{AvgCost: 3}
	ResolveMarketReferences(&r)
	if !r.NoMarketData || !approx(r.TrueMarketLow, 3) {
		t.Fatalf("expected cost fallback for nil competitor map")
	}
}
