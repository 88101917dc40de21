package pricing

import (
	"errors"
	"math"
	"testing"
)

func sampleRecords() []InputRecord {
	return []InputRecord{
		{
			ID:           "a",
			Description:  "Amoxicillin 500mg",
			UsageVolume:  120,
			AvgCost:      10,
			NextCost:     9.5,
			CurrentPrice: 11,
			CompetitorPrices: map[string]float64{
				PrimaryCompetitor: 12,
				"nupharm":         11.5,
			},
		},
		{
			Description:  "Paracetamol 500mg",
			UsageVolume:  80,
			AvgCost:      2,
			NextCost:     2.2,
			CurrentPrice: 2.5,
			CompetitorPrices: map[string]float64{
				"aah": 2.4,
			},
		},
		{
			Description:  "Obscure SKU",
			UsageVolume:  5,
			AvgCost:      30,
			NextCost:     30,
			CurrentPrice: 31,
		},
	}
}

func TestBuildSnapshotPipeline(t *testing.T) {
	snap, err := BuildSnapshot(sampleRecords(), DefaultRuleConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(snap.Items))
	}
	if snap.Version == "" || snap.Dataset == "" {
		t.Fatalf("snapshot must carry version identifiers")
	}

	a := snap.Record("a")
	if a == nil {
		t.Fatalf("supplied id must be preserved")
	}
	if a.AppliedRule != RuleTag1a {
		t.Fatalf("record a: expected %s, got %s", RuleTag1a, a.AppliedRule)
	}
	if a.WorkflowStatus != StatusDraft {
		t.Fatalf("records start in DRAFT")
	}

	for i := range snap.Items {
		r := &snap.Items[i]
		if r.ID == "" {
			t.Fatalf("missing ids must be assigned at ingestion")
		}
		if r.ProposedPrice < r.CurrentPrice {
			t.Fatalf("record %s: proposed %.4f below current %.4f", r.ID, r.ProposedPrice, r.CurrentPrice)
		}
		if !approx(r.CalculatedPrice, r.ProposedPrice) {
			t.Fatalf("record %s: calculated price not frozen", r.ID)
		}
	}
}

func TestBuildSnapshotFlaggedViewMatchesFilter(t *testing.T) {
	snap, err := BuildSnapshot(sampleRecords(), DefaultRuleConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 0
	for i := range snap.Items {
		if len(snap.Items[i].Flags) > 0 {
			want++
		}
	}
	if len(snap.FlaggedItems) != want {
		t.Fatalf("flagged view out of sync: %d vs %d", len(snap.FlaggedItems), want)
	}
}

func TestBuildSnapshotEmptyDataset(t *testing.T) {
	if _, err := BuildSnapshot(nil, DefaultRuleConfig()); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestBuildSnapshotInvalidRecordRetainedNotFatal(t *testing.T) {
	records := append(sampleRecords(), InputRecord{
		Description: "Broken row",
		UsageVolume: math.Inf(1),
		AvgCost:     -4,
	})
	snap, err := BuildSnapshot(records, DefaultRuleConfig())
	if err != nil {
		t.Fatalf("one bad record must not fail the batch: %v", err)
	}
	if len(snap.Items) != 4 {
		t.Fatalf("invalid record must be retained")
	}
	found := false
	for i := range snap.Items {
		if snap.Items[i].Description == "Broken row" {
			found = snap.Items[i].Invalid()
		}
	}
	if !found {
		t.Fatalf("invalid record must carry the marker flag")
	}
}

func TestBuildSnapshotRejectsBadConfig(t *testing.T) {
	cfg := DefaultRuleConfig()
	cfg.Group12.CostMarkup = 4.2
	if _, err := BuildSnapshot(sampleRecords(), cfg); err == nil {
		t.Fatalf("expected config validation error")
	}
}

func TestRecalculatePreservesManualEdits(t *testing.T) {
	snap, err := BuildSnapshot(sampleRecords(), DefaultRuleConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := snap.Record("a")
	rec.ProposedPrice = 20
	rec.PriceModified = true
	RefreshFlags(rec)

	cfg := DefaultRuleConfig()
	cfg.Group12.MLUpliftDown = 0.01
	next, err := Recalculate(snap, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := next.Record("a")
	if !approx(got.ProposedPrice, 20) {
		t.Fatalf("manual edit must survive recalculation, got %.4f", got.ProposedPrice)
	}
	if !approx(got.CalculatedPrice, 12*1.01) {
		t.Fatalf("calculated baseline must move with the new config, got %.4f", got.CalculatedPrice)
	}
	if next.Version == snap.Version {
		t.Fatalf("recalculation must produce a new version")
	}
	// The input snapshot is untouched.
	if !approx(snap.Record("a").CalculatedPrice, 12) {
		t.Fatalf("recalculate must not mutate its input")
	}
}
