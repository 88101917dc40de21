// Package pricinghttp exposes the pricing workbench as a JSON API.
package pricinghttp

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"golang.org/x/sync/errgroup"

	"github.com/pricedeck/pricedeck/internal/observability"
	"github.com/pricedeck/pricedeck/internal/platform/httpx"
	"github.com/pricedeck/pricedeck/internal/pricing"
	"github.com/pricedeck/pricedeck/internal/workflow"
	"github.com/pricedeck/pricedeck/jobs"
)

// Handler wires pricing endpoints.
type Handler struct {
	logger  *slog.Logger
	service *workflow.Service
	jobs    *jobs.Client
	metrics *observability.Metrics
}

// NewHandler constructs handler. Jobs client and metrics may be nil.
func NewHandler(logger *slog.Logger, service *workflow.Service, jobsClient *jobs.Client, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, jobs: jobsClient, metrics: metrics}
}

func (h *Handler) observe(snap *pricing.Snapshot) {
	h.metrics.ObserveSnapshot(snap.Aggregates.TotalItems, len(snap.FlaggedItems))
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/pricing", func(r chi.Router) {
		r.Get("/snapshot", h.showSnapshot)
		r.Get("/flagged", h.listFlagged)
		r.Get("/summary", h.showSummary)
		r.Get("/config", h.showConfig)
		r.Put("/config", h.updateConfig)
		r.With(httprate.Limit(6, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
			Get("/export.csv", h.exportCSV)

		r.Post("/dataset", h.loadDataset)
		r.Post("/items/{id}/price", h.editPrice)
		r.Post("/items/{id}/reset", h.resetItem)
		r.Post("/reset", h.resetAll)
		r.Post("/submit", h.submit)
		r.Post("/approve", h.approve)
		r.Post("/reject", h.reject)
	})
}

type datasetRequest struct {
	Records []pricing.InputRecord `json:"records"`
	Config  *pricing.RuleConfig   `json:"config,omitempty"`
	Actor   string                `json:"actor,omitempty"`
}

type editRequest struct {
	Price float64 `json:"price"`
	Actor string  `json:"actor,omitempty"`
}

type actorRequest struct {
	Actor string `json:"actor,omitempty"`
}

type batchRequest struct {
	IDs     []string `json:"ids"`
	Actor   string   `json:"actor,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

type configRequest struct {
	Config pricing.RuleConfig `json:"config"`
	Actor  string             `json:"actor,omitempty"`
}

type batchResponse struct {
	Version   string                  `json:"version"`
	Succeeded []string                `json:"succeeded"`
	Failed    []workflow.BatchFailure `json:"failed"`
}

type summaryResponse struct {
	Version      string             `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	Aggregates   pricing.Aggregates `json:"aggregates"`
	FlaggedCount int                `json:"flagged_count"`
}

func (h *Handler) showSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) listFlagged(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.FlaggedItems(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) showSummary(w http.ResponseWriter, r *http.Request) {
	var (
		snap    *pricing.Snapshot
		flagged []pricing.ProductRecord
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		snap, err = h.service.Snapshot(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		flagged, err = h.service.FlaggedItems(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summaryResponse{
		Version:      snap.Version,
		CreatedAt:    snap.CreatedAt,
		Aggregates:   snap.Aggregates,
		FlaggedCount: len(flagged),
	})
}

func (h *Handler) showConfig(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap.RuleConfig)
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	snap, err := h.service.Reconfigure(r.Context(), req.Config)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.jobs != nil {
		if _, err := h.jobs.EnqueueIntegrityCheck(r.Context()); err != nil && h.logger != nil {
			h.logger.Warn("enqueue integrity check", slog.Any("error", err))
		}
	}
	h.observe(snap)
	httpx.JSON(w, http.StatusOK, map[string]any{"version": snap.Version, "config": snap.RuleConfig})
}

func (h *Handler) loadDataset(w http.ResponseWriter, r *http.Request) {
	var req datasetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	cfg := pricing.DefaultRuleConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	snap, err := h.service.LoadDataset(r.Context(), req.Records, cfg)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.observe(snap)
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"version": snap.Version,
		"items":   snap.Aggregates.TotalItems,
		"flagged": len(snap.FlaggedItems),
	})
}

func (h *Handler) editPrice(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	snap, err := h.service.Edit(r.Context(), chi.URLParam(r, "id"), req.Price, actorOrDefault(req.Actor))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondItem(w, snap, chi.URLParam(r, "id"))
}

func (h *Handler) resetItem(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	snap, err := h.service.Reset(r.Context(), chi.URLParam(r, "id"), actorOrDefault(req.Actor))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondItem(w, snap, chi.URLParam(r, "id"))
}

func (h *Handler) resetAll(w http.ResponseWriter, r *http.Request) {
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	snap, count, err := h.service.ResetAll(r.Context(), actorOrDefault(req.Actor))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.observe(snap)
	httpx.JSON(w, http.StatusOK, map[string]any{"version": snap.Version, "reset": count})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, func(req batchRequest) (*pricing.Snapshot, workflow.BatchResult, error) {
		return h.service.SubmitForApproval(r.Context(), req.IDs, actorOrDefault(req.Actor))
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, func(req batchRequest) (*pricing.Snapshot, workflow.BatchResult, error) {
		return h.service.Approve(r.Context(), req.IDs, req.Comment, actorOrDefault(req.Actor))
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.runBatch(w, r, func(req batchRequest) (*pricing.Snapshot, workflow.BatchResult, error) {
		return h.service.Reject(r.Context(), req.IDs, req.Comment, actorOrDefault(req.Actor))
	})
}

func (h *Handler) runBatch(w http.ResponseWriter, r *http.Request, fn func(batchRequest) (*pricing.Snapshot, workflow.BatchResult, error)) {
	var req batchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if len(req.IDs) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "ids must not be empty")
		return
	}
	snap, result, err := fn(req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.observe(snap)
	status := http.StatusOK
	if result.AllFailed() {
		status = http.StatusUnprocessableEntity
	}
	httpx.JSON(w, status, batchResponse{
		Version:   snap.Version,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=pricing_snapshot.csv")
	writer := csv.NewWriter(w)
	for _, row := range pricing.ExportRows(snap.Items) {
		if err := writer.Write(row); err != nil {
			break
		}
	}
	writer.Flush()
}

func (h *Handler) respondItem(w http.ResponseWriter, snap *pricing.Snapshot, id string) {
	h.observe(snap)
	rec := snap.Record(id)
	if rec == nil {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"version": snap.Version, "item": rec})
}

func actorOrDefault(actor string) string {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "system"
	}
	return actor
}
