package pricing

import (
	"fmt"
	"strings"
)

// ExportRows formats snapshot items into CSV-ready strings. The snapshot is
// consumed read-only.
func ExportRows(items []ProductRecord) [][]string {
	out := make([][]string, 0, len(items)+1)
	header := []string{
		"ID", "Description", "Usage", "Rank", "Trend",
		"Avg Cost", "Market Low", "True Market Low",
		"Current Price", "Proposed Price", "Proposed Margin %",
		"Rule Applied", "Flags", "Edited", "Status",
		"Submitted By", "Reviewer", "Comments",
	}
	out = append(out, header)
	for _, r := range items {
		out = append(out, []string{
			r.ID,
			r.Description,
			fmt.Sprintf("%.0f", r.UsageVolume),
			fmt.Sprintf("%d", r.RankGroup),
			string(r.CostTrend),
			fmt.Sprintf("%.2f", r.AvgCost),
			fmt.Sprintf("%.2f", r.MarketLow),
			fmt.Sprintf("%.2f", r.TrueMarketLow),
			fmt.Sprintf("%.2f", r.CurrentPrice),
			fmt.Sprintf("%.2f", r.ProposedPrice),
			fmt.Sprintf("%.2f", r.ProposedMargin*100),
			r.AppliedRule,
			strings.Join(r.Flags, "|"),
			fmt.Sprintf("%t", r.PriceModified),
			string(r.WorkflowStatus),
			r.SubmittedBy,
			r.Reviewer,
			r.ReviewComments,
		})
	}
	return out
}
