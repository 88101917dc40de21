package pricing

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// CostTrend classifies the direction of a product's buying cost.
type CostTrend string

const (
	// TrendFalling indicates the next buying cost is at or below the average cost.
	TrendFalling CostTrend = "FALLING"
	// TrendRisingOrFlat indicates the next buying cost exceeds the average cost.
	TrendRisingOrFlat CostTrend = "RISING_OR_FLAT"
)

// WorkflowStatus enumerates the approval lifecycle of a record.
type WorkflowStatus string

const (
	// StatusDraft is the initial state for every record.
	StatusDraft WorkflowStatus = "DRAFT"
	// StatusSubmitted marks a manual price change awaiting review.
	StatusSubmitted WorkflowStatus = "SUBMITTED"
	// StatusApproved marks a reviewed and accepted price change.
	StatusApproved WorkflowStatus = "APPROVED"
	// StatusRejected marks a reviewed and declined price change.
	StatusRejected WorkflowStatus = "REJECTED"
)

// Well-known record flags. Decrease flags are parameterized, see DecreaseFlag.
const (
	FlagHighPrice       = "HIGH_PRICE"
	FlagLowMargin       = "LOW_MARGIN"
	FlagInvalid         = "INVALID"
	FlagNoMarketData    = "NO_MARKET_DATA"
	FlagMissingNextCost = "MISSING_NEXT_COST"
	decreaseFlagPrefix  = "PRICE_DECREASE_"
)

// InputRecord is a normalized row handed over by the importer.
type InputRecord struct {
	ID               string             `json:"id,omitempty"`
	Description      string             `json:"description"`
	UsageVolume      float64            `json:"usage_volume"`
	AvgCost          float64            `json:"avg_cost"`
	NextCost         float64            `json:"next_cost"`
	CurrentPrice     float64            `json:"current_price"`
	TrendKeyword     string             `json:"trend,omitempty"`
	CompetitorPrices map[string]float64 `json:"competitor_prices,omitempty"`
}

// ProductRecord is the core entity carried through the engine and workflow.
type ProductRecord struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	UsageVolume float64 `json:"usage_volume"`

	RankGroup int       `json:"rank_group"`
	CostTrend CostTrend `json:"cost_trend"`

	AvgCost      float64 `json:"avg_cost"`
	NextCost     float64 `json:"next_cost"`
	CurrentPrice float64 `json:"current_price"`

	CompetitorPrices map[string]float64 `json:"competitor_prices,omitempty"`
	MarketLow        float64            `json:"market_low"`
	TrueMarketLow    float64            `json:"true_market_low"`
	NoMarketData     bool               `json:"no_market_data"`

	ProposedPrice   float64 `json:"proposed_price"`
	CalculatedPrice float64 `json:"calculated_price"`
	ProposedMargin  float64 `json:"proposed_margin"`
	AppliedRule     string  `json:"applied_rule"`

	Flags []string `json:"flags,omitempty"`

	PriceModified  bool           `json:"price_modified"`
	WorkflowStatus WorkflowStatus `json:"workflow_status"`

	SubmittedBy    string     `json:"submitted_by,omitempty"`
	SubmissionDate *time.Time `json:"submission_date,omitempty"`
	Reviewer       string     `json:"reviewer,omitempty"`
	ReviewDate     *time.Time `json:"review_date,omitempty"`
	ReviewComments string     `json:"review_comments,omitempty"`
}

// Invalid reports whether the record was excluded from aggregation at ingestion.
func (r *ProductRecord) Invalid() bool {
	return r.HasFlag(FlagInvalid)
}

// HasFlag reports whether the given flag is present on the record.
func (r *ProductRecord) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddFlag appends the flag unless it is already present.
func (r *ProductRecord) AddFlag(flag string) {
	if !r.HasFlag(flag) {
		r.Flags = append(r.Flags, flag)
	}
}

// RemoveFlag drops the flag when present.
func (r *ProductRecord) RemoveFlag(flag string) {
	out := r.Flags[:0]
	for _, f := range r.Flags {
		if f != flag {
			out = append(out, f)
		}
	}
	r.Flags = out
	if len(r.Flags) == 0 {
		r.Flags = nil
	}
}

// Clone returns a deep copy of the record.
func (r *ProductRecord) Clone() ProductRecord {
	out := *r
	if r.CompetitorPrices != nil {
		out.CompetitorPrices = make(map[string]float64, len(r.CompetitorPrices))
		for k, v := range r.CompetitorPrices {
			out.CompetitorPrices[k] = v
		}
	}
	if r.Flags != nil {
		out.Flags = append([]string(nil), r.Flags...)
	}
	if r.SubmissionDate != nil {
		d := *r.SubmissionDate
		out.SubmissionDate = &d
	}
	if r.ReviewDate != nil {
		d := *r.ReviewDate
		out.ReviewDate = &d
	}
	return out
}

// Aggregates carries portfolio level metrics for a snapshot.
type Aggregates struct {
	TotalItems      int     `json:"total_items"`
	ActiveItems     int     `json:"active_items"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCost       float64 `json:"total_cost"`
	TotalProfit     float64 `json:"total_profit"`
	OverallMargin   float64 `json:"overall_margin"`
	CurrentRevenue  float64 `json:"current_revenue"`
	CurrentProfit   float64 `json:"current_profit"`
	CurrentMargin   float64 `json:"current_margin"`
	ProposedRevenue float64 `json:"proposed_revenue"`
	ProposedProfit  float64 `json:"proposed_profit"`
	ProposedMargin  float64 `json:"proposed_margin"`
	ProfitDelta     float64 `json:"profit_delta"`
	MarginLift      float64 `json:"margin_lift"`
	HighPriceFlags  int     `json:"high_price_flags"`
	LowMarginFlags  int     `json:"low_margin_flags"`
}

// Snapshot is one immutable version of the full dataset plus derived views.
type Snapshot struct {
	Version    string          `json:"version"`
	Dataset    string          `json:"dataset"`
	CreatedAt  time.Time       `json:"created_at"`
	RuleConfig RuleConfig      `json:"rule_config"`
	Items      []ProductRecord `json:"items"`
	Aggregates Aggregates      `json:"aggregates"`

	// FlaggedItems is always regenerated from Items, never mutated on its own.
	FlaggedItems []ProductRecord `json:"flagged_items"`
}

// Record returns a pointer to the item with the given id, or nil.
func (s *Snapshot) Record(id string) *ProductRecord {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return &s.Items[i]
		}
	}
	return nil
}

// Clone deep-copies the snapshot so a mutation never touches a version a
// reader may still be holding.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Items = make([]ProductRecord, len(s.Items))
	for i := range s.Items {
		out.Items[i] = s.Items[i].Clone()
	}
	out.FlaggedItems = nil
	out.RebuildFlaggedView()
	return &out
}

// RebuildFlaggedView regenerates the flagged projection from the canonical
// item list.
func (s *Snapshot) RebuildFlaggedView() {
	flagged := make([]ProductRecord, 0)
	for i := range s.Items {
		if len(s.Items[i].Flags) > 0 {
			flagged = append(flagged, s.Items[i].Clone())
		}
	}
	s.FlaggedItems = flagged
}

// NextVersion stamps a fresh version identifier and timestamp.
func (s *Snapshot) NextVersion(now time.Time) {
	s.Version = uuid.NewString()
	s.CreatedAt = now
}

var (
	// ErrEmptyDataset occurs when a snapshot is built from zero records.
	ErrEmptyDataset = errors.New("pricing: dataset is empty")
	// ErrNoSnapshot occurs when no dataset has been loaded yet.
	ErrNoSnapshot = errors.New("pricing: no snapshot loaded")
)

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// validRecord reports whether the numeric fields allow the record to take
// part in pricing and aggregation.
func validRecord(r *ProductRecord) bool {
	return validNumber(r.UsageVolume) && r.UsageVolume >= 0 &&
		validNumber(r.AvgCost) && r.AvgCost >= 0 &&
		validNumber(r.NextCost) && r.NextCost >= 0 &&
		validNumber(r.CurrentPrice)
}
