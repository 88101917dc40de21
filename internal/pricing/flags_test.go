package pricing

import "testing"

func TestRefreshFlagsHighPrice(t *testing.T) {
	r := ProductRecord{AvgCost: 50, TrueMarketLow: 100, ProposedPrice: 112}
	RefreshFlags(&r)
	if !r.HasFlag(FlagHighPrice) {
		t.Fatalf("112 >= 110 must flag high price")
	}

	r.ProposedPrice = 109.99
	RefreshFlags(&r)
	if r.HasFlag(FlagHighPrice) {
		t.Fatalf("price below 110%% of TML must clear the flag")
	}
}

func TestRefreshFlagsLowMarginBoundary(t *testing.T) {
	r := ProductRecord{AvgCost: 95, ProposedPrice: 100}
	RefreshFlags(&r)
	// Margin is exactly 5%, which is not below the threshold.
	if r.HasFlag(FlagLowMargin) {
		t.Fatalf("margin of exactly 5%% must not flag")
	}

	r.ProposedPrice = 99.9
	RefreshFlags(&r)
	if !r.HasFlag(FlagLowMargin) {
		t.Fatalf("margin below 5%% must flag")
	}
}

func TestRefreshFlagsDecreaseThreshold(t *testing.T) {
	r := ProductRecord{AvgCost: 50, CurrentPrice: 100, PriceModified: true}

	r.ProposedPrice = 95.0 // exactly 5% below
	RefreshFlags(&r)
	for _, f := range r.Flags {
		if IsDecreaseFlag(f) {
			t.Fatalf("5.0%% decrease must not flag, got %s", f)
		}
	}

	r.ProposedPrice = 94.99 // 5.01% below
	RefreshFlags(&r)
	if !r.HasFlag("PRICE_DECREASE_5%") {
		t.Fatalf("5.01%% decrease must flag with rounded percentage, flags=%v", r.Flags)
	}
}

func TestRefreshFlagsDecreaseReplacedNotAccumulated(t *testing.T) {
	r := ProductRecord{AvgCost: 10, CurrentPrice: 100, PriceModified: true, ProposedPrice: 80}
	RefreshFlags(&r)
	if !r.HasFlag("PRICE_DECREASE_20%") {
		t.Fatalf("expected 20%% decrease flag, flags=%v", r.Flags)
	}

	r.ProposedPrice = 50
	RefreshFlags(&r)
	if !r.HasFlag("PRICE_DECREASE_50%") || r.HasFlag("PRICE_DECREASE_20%") {
		t.Fatalf("decrease flag must be replaced, flags=%v", r.Flags)
	}

	count := 0
	for _, f := range r.Flags {
		if IsDecreaseFlag(f) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("only one decrease flag may exist, got %d", count)
	}
}

func TestRefreshFlagsDecreaseRequiresManualEdit(t *testing.T) {
	r := ProductRecord{AvgCost: 10, CurrentPrice: 100, ProposedPrice: 80}
	RefreshFlags(&r)
	for _, f := range r.Flags {
		if IsDecreaseFlag(f) {
			t.Fatalf("engine output below current price must not raise a decrease flag")
		}
	}
}

func TestRefreshFlagsRecomputesMarginTogether(t *testing.T) {
	r := ProductRecord{AvgCost: 8, ProposedPrice: 10}
	RefreshFlags(&r)
	if !approx(r.ProposedMargin, 0.2) {
		t.Fatalf("expected margin 0.2, got %.4f", r.ProposedMargin)
	}
	r.ProposedPrice = 8.2
	RefreshFlags(&r)
	if !approx(r.ProposedMargin, (8.2-8)/8.2) {
		t.Fatalf("margin must track price changes")
	}
	if !r.HasFlag(FlagLowMargin) {
		t.Fatalf("low margin flag must track the recomputed margin")
	}
}
