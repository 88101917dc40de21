package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/pricedeck/pricedeck/internal/jobs"
	"github.com/pricedeck/pricedeck/internal/pricing"
	"github.com/pricedeck/pricedeck/internal/workflow"
)

// Recalculator applies rule configuration changes to the live snapshot off
// the request path.
type Recalculator struct {
	service *workflow.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewRecalculator constructs the task handler set around the workflow service.
// Metrics may be nil.
func NewRecalculator(service *workflow.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *Recalculator {
	return &Recalculator{service: service, logger: logger, metrics: metrics}
}

// HandleRecalculate processes TaskPricingRecalculate tasks.
func (r *Recalculator) HandleRecalculate(ctx context.Context, t *asynq.Task) error {
	tracker := r.metrics.Track("pricing:recalculate")
	var payload RecalculatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	snap, err := r.service.Reconfigure(ctx, payload.RuleConfig)
	if err != nil {
		r.logger.Error("recalculate snapshot", slog.Any("error", err))
		return tracker.End(err)
	}
	r.logger.Info("snapshot recalculated",
		slog.String("version", snap.Version),
		slog.String("requested_by", payload.RequestedBy),
		slog.Int("items", snap.Aggregates.TotalItems))
	return tracker.End(nil)
}

// HandleIntegrity processes TaskPricingIntegrity tasks: it verifies that the
// flagged view and per-record margins of the stored snapshot match their
// source data, logging any drift.
func (r *Recalculator) HandleIntegrity(ctx context.Context, t *asynq.Task) error {
	tracker := r.metrics.Track("pricing:integrity")
	var payload IntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	snap, err := r.service.Snapshot(ctx)
	if err != nil {
		r.logger.Info("integrity check skipped, no snapshot loaded")
		return tracker.End(nil)
	}

	flagged := 0
	drift := 0
	for i := range snap.Items {
		rec := &snap.Items[i]
		if len(rec.Flags) > 0 {
			flagged++
		}
		want := pricing.Margin(rec.ProposedPrice, rec.AvgCost)
		if rec.ProposedMargin != want {
			drift++
		}
	}
	if flagged != len(snap.FlaggedItems) || drift > 0 {
		viewDrift := flagged - len(snap.FlaggedItems)
		if viewDrift < 0 {
			viewDrift = -viewDrift
		}
		r.metrics.AddDrift("flagged_view", viewDrift)
		r.metrics.AddDrift("margin", drift)
		r.logger.Error("snapshot integrity drift",
			slog.Int("flagged_items", flagged),
			slog.Int("flagged_view", len(snap.FlaggedItems)),
			slog.Int("margin_drift", drift),
			slog.String("version", snap.Version))
		return tracker.End(nil)
	}
	r.logger.Info("snapshot integrity ok", slog.String("version", snap.Version))
	return tracker.End(nil)
}
