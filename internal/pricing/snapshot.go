package pricing

import (
	"time"

	"github.com/google/uuid"
)

// BuildSnapshot runs the full pipeline over a batch of normalized records:
// ranking, trend classification, market reference resolution, rule
// application, flag derivation and portfolio aggregation.
//
// Records with malformed numeric fields are kept, marked INVALID and skipped
// by the engine and the aggregation pass rather than failing the batch.
func BuildSnapshot(records []InputRecord, cfg RuleConfig) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	items := make([]ProductRecord, len(records))
	for i, in := range records {
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		items[i] = ProductRecord{
			ID:               id,
			Description:      in.Description,
			UsageVolume:      in.UsageVolume,
			AvgCost:          in.AvgCost,
			NextCost:         in.NextCost,
			CurrentPrice:     in.CurrentPrice,
			CompetitorPrices: in.CompetitorPrices,
			WorkflowStatus:   StatusDraft,
		}
		if !validRecord(&items[i]) {
			items[i].AddFlag(FlagInvalid)
		}
	}

	AssignRankGroups(items)

	for i := range items {
		r := &items[i]
		if r.Invalid() {
			continue
		}
		ClassifyTrend(r, records[i].TrendKeyword)
		ResolveMarketReferences(r)
		ApplyRules(r, cfg)
		RefreshFlags(r)
	}

	snap := &Snapshot{
		Dataset:    uuid.NewString(),
		RuleConfig: cfg,
		Items:      items,
	}
	snap.NextVersion(time.Now().UTC())
	snap.Aggregates = ComputeAggregates(snap.Items)
	snap.RebuildFlaggedView()
	return snap, nil
}

// Recalculate re-runs the rule engine over an existing snapshot with a new
// configuration. Manually edited prices are preserved; only the calculated
// baseline moves, so a later reset lands on the new rule output.
func Recalculate(snap *Snapshot, cfg RuleConfig) (*Snapshot, error) {
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	out := snap.Clone()
	out.RuleConfig = cfg
	for i := range out.Items {
		r := &out.Items[i]
		if r.Invalid() {
			continue
		}
		manual := r.ProposedPrice
		ApplyRules(r, cfg)
		if r.PriceModified {
			r.ProposedPrice = manual
		}
		RefreshFlags(r)
	}
	out.Aggregates = ComputeAggregates(out.Items)
	out.RebuildFlaggedView()
	out.NextVersion(time.Now().UTC())
	return out, nil
}
