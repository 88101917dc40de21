package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pricedeck/pricedeck/internal/pricing"
	"github.com/pricedeck/pricedeck/internal/shared"
	"github.com/pricedeck/pricedeck/internal/store"
)

const approvalModule = "pricing"

// defaultApproveComment is stamped when an approver leaves the comment empty.
const defaultApproveComment = "Approved"

// Service is the single writer over the current dataset snapshot. Reads hand
// out the latest snapshot pointer; writes clone it, apply the transition,
// persist and atomically swap.
type Service struct {
	mu        sync.RWMutex
	snap      *pricing.Snapshot
	store     store.SnapshotStore
	logger    *slog.Logger
	audit     *shared.AuditLogger
	approvals *shared.ApprovalRecorder
	now       func() time.Time
}

// NewService builds the workflow service around a snapshot store. The audit
// and approval recorders may be nil.
func NewService(st store.SnapshotStore, logger *slog.Logger, audit *shared.AuditLogger, approvals *shared.ApprovalRecorder) *Service {
	return &Service{
		store:     st,
		logger:    logger,
		audit:     audit,
		approvals: approvals,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Restore loads the last persisted snapshot into memory. Missing state is not
// an error on startup.
func (s *Service) Restore(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		if shared.Kind(err) == shared.KindNotFound {
			return nil
		}
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// LoadDataset replaces the previous snapshot entirely with a freshly priced
// batch of imported records.
func (s *Service) LoadDataset(ctx context.Context, records []pricing.InputRecord, cfg pricing.RuleConfig) (*pricing.Snapshot, error) {
	snap, err := pricing.BuildSnapshot(records, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.snap = snap
	s.logger.Info("dataset loaded",
		slog.Int("items", snap.Aggregates.TotalItems),
		slog.Int("flagged", len(snap.FlaggedItems)))
	return snap, nil
}

// Reconfigure re-runs the rule engine with a new configuration, keeping
// manual edits in place.
func (s *Service) Reconfigure(ctx context.Context, cfg pricing.RuleConfig) (*pricing.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, shared.ErrNotFound
	}
	next, err := pricing.Recalculate(s.snap, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, err
	}
	s.snap = next
	s.logger.Info("rule config applied", slog.String("version", next.Version))
	return next, nil
}

// Snapshot returns the current snapshot.
func (s *Service) Snapshot(ctx context.Context) (*pricing.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, shared.ErrNotFound
	}
	return s.snap, nil
}

// FlaggedItems returns the derived flagged view of the current snapshot.
func (s *Service) FlaggedItems(ctx context.Context) ([]pricing.ProductRecord, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.FlaggedItems, nil
}

// Edit applies a manual price override. The edit keeps the record's workflow
// status except on APPROVED records, where further edits require a reset
// first. Edits on REJECTED records are allowed so a revised price can be
// resubmitted without losing review history.
func (s *Service) Edit(ctx context.Context, id string, newPrice float64, actor string) (*pricing.Snapshot, error) {
	if math.IsNaN(newPrice) || math.IsInf(newPrice, 0) {
		return nil, fmt.Errorf("%w: price must be a finite number", shared.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, shared.ErrNotFound
	}
	cur := s.snap.Record(id)
	if cur == nil {
		return nil, fmt.Errorf("%w: record %s", shared.ErrNotFound, id)
	}
	if cur.WorkflowStatus == pricing.StatusApproved {
		return nil, fmt.Errorf("%w: record %s already approved, reset before editing", shared.ErrPrecondition, id)
	}

	next := s.snap.Clone()
	rec := next.Record(id)
	oldPrice := rec.ProposedPrice
	oldMargin := rec.ProposedMargin
	rec.ProposedPrice = newPrice
	rec.PriceModified = true
	pricing.RefreshFlags(rec)
	s.finalize(next)

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "PRICE_EDIT",
		Entity:   "product",
		EntityID: id,
		Meta: map[string]any{
			"old_price":     oldPrice,
			"new_price":     newPrice,
			"old_margin":    oldMargin,
			"new_margin":    rec.ProposedMargin,
			"profit_delta":  next.Aggregates.ProfitDelta,
			"margin_lift":   next.Aggregates.MarginLift,
			"applied_rule":  rec.AppliedRule,
			"below_current": newPrice < rec.CurrentPrice,
		},
		At: s.now(),
	})
	return next, nil
}

// Reset restores the rule-engine price on a manually edited record, returns
// it to DRAFT and clears the review audit fields.
func (s *Service) Reset(ctx context.Context, id string, actor string) (*pricing.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, shared.ErrNotFound
	}
	cur := s.snap.Record(id)
	if cur == nil {
		return nil, fmt.Errorf("%w: record %s", shared.ErrNotFound, id)
	}
	if !cur.PriceModified {
		return nil, fmt.Errorf("%w: record %s has no manual edit to reset", shared.ErrPrecondition, id)
	}

	next := s.snap.Clone()
	resetRecord(next.Record(id))
	s.finalize(next)

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "PRICE_RESET",
		Entity:   "product",
		EntityID: id,
		At:       s.now(),
	})
	return next, nil
}

// ResetAll reverts every manually edited record in one pass.
func (s *Service) ResetAll(ctx context.Context, actor string) (*pricing.Snapshot, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, 0, shared.ErrNotFound
	}

	next := s.snap.Clone()
	count := 0
	for i := range next.Items {
		if next.Items[i].PriceModified {
			resetRecord(&next.Items[i])
			count++
		}
	}
	if count == 0 {
		return s.snap, 0, nil
	}
	s.finalize(next)

	if err := s.commit(ctx, next); err != nil {
		return nil, 0, err
	}
	s.recordAudit(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   "PRICE_RESET_ALL",
		Entity:   "dataset",
		EntityID: next.Dataset,
		Meta:     map[string]any{"count": count},
		At:       s.now(),
	})
	return next, count, nil
}

// SubmitForApproval moves manually edited records into SUBMITTED. Records
// without a manual edit, or already under or past review, fail individually.
func (s *Service) SubmitForApproval(ctx context.Context, ids []string, actor string) (*pricing.Snapshot, BatchResult, error) {
	return s.batch(ctx, ids, func(rec *pricing.ProductRecord) error {
		if !rec.PriceModified {
			return fmt.Errorf("%w: record %s has no manual edit", shared.ErrPrecondition, rec.ID)
		}
		switch rec.WorkflowStatus {
		case pricing.StatusSubmitted:
			return fmt.Errorf("%w: record %s already submitted", shared.ErrPrecondition, rec.ID)
		case pricing.StatusApproved:
			return fmt.Errorf("%w: record %s already approved", shared.ErrPrecondition, rec.ID)
		}
		at := s.now()
		rec.WorkflowStatus = pricing.StatusSubmitted
		rec.SubmittedBy = actor
		rec.SubmissionDate = &at
		rec.Reviewer = ""
		rec.ReviewDate = nil
		rec.ReviewComments = ""
		s.recordApproval(ctx, rec.ID, actor, shared.ApprovalSubmit, "")
		return nil
	})
}

// Approve marks submitted records as APPROVED, stamping the reviewer fields.
func (s *Service) Approve(ctx context.Context, ids []string, comment, reviewer string) (*pricing.Snapshot, BatchResult, error) {
	if strings.TrimSpace(comment) == "" {
		comment = defaultApproveComment
	}
	return s.batch(ctx, ids, func(rec *pricing.ProductRecord) error {
		if rec.WorkflowStatus != pricing.StatusSubmitted {
			return fmt.Errorf("%w: record %s is %s, not SUBMITTED", shared.ErrPrecondition, rec.ID, rec.WorkflowStatus)
		}
		at := s.now()
		rec.WorkflowStatus = pricing.StatusApproved
		rec.Reviewer = reviewer
		rec.ReviewDate = &at
		rec.ReviewComments = comment
		s.recordApproval(ctx, rec.ID, reviewer, shared.ApprovalApprove, comment)
		return nil
	})
}

// Reject marks submitted records as REJECTED. A non-empty comment is
// mandatory; without one every id fails and nothing changes.
func (s *Service) Reject(ctx context.Context, ids []string, comment, reviewer string) (*pricing.Snapshot, BatchResult, error) {
	if strings.TrimSpace(comment) == "" {
		var res BatchResult
		for _, id := range ids {
			res.fail(id, fmt.Errorf("%w: rejection requires a comment", shared.ErrPrecondition))
		}
		s.mu.RLock()
		snap := s.snap
		s.mu.RUnlock()
		if snap == nil {
			return nil, res, shared.ErrNotFound
		}
		return snap, res, nil
	}
	return s.batch(ctx, ids, func(rec *pricing.ProductRecord) error {
		if rec.WorkflowStatus != pricing.StatusSubmitted {
			return fmt.Errorf("%w: record %s is %s, not SUBMITTED", shared.ErrPrecondition, rec.ID, rec.WorkflowStatus)
		}
		at := s.now()
		rec.WorkflowStatus = pricing.StatusRejected
		rec.Reviewer = reviewer
		rec.ReviewDate = &at
		rec.ReviewComments = comment
		s.recordApproval(ctx, rec.ID, reviewer, shared.ApprovalReject, comment)
		return nil
	})
}

// batch clones the snapshot, applies fn per id collecting partial results,
// and commits only when at least one id succeeded.
func (s *Service) batch(ctx context.Context, ids []string, fn func(*pricing.ProductRecord) error) (*pricing.Snapshot, BatchResult, error) {
	var res BatchResult

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, res, shared.ErrNotFound
	}

	next := s.snap.Clone()
	for _, id := range ids {
		rec := next.Record(id)
		if rec == nil {
			res.fail(id, fmt.Errorf("%w: record %s", shared.ErrNotFound, id))
			continue
		}
		if err := fn(rec); err != nil {
			res.fail(id, err)
			continue
		}
		res.ok(id)
	}
	if len(res.Succeeded) == 0 {
		return s.snap, res, nil
	}

	s.finalize(next)
	if err := s.commit(ctx, next); err != nil {
		return nil, res, err
	}
	return next, res, nil
}

// finalize recomputes everything derived before the snapshot becomes
// observable: aggregates, the flagged view and a fresh version stamp.
func (s *Service) finalize(next *pricing.Snapshot) {
	next.Aggregates = pricing.ComputeAggregates(next.Items)
	next.RebuildFlaggedView()
	next.NextVersion(s.now())
}

func (s *Service) commit(ctx context.Context, next *pricing.Snapshot) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	s.snap = next
	return nil
}

func (s *Service) recordAudit(ctx context.Context, log shared.AuditLog) {
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

func (s *Service) recordApproval(ctx context.Context, id, actor string, action shared.ApprovalAction, note string) {
	err := s.approvals.Record(ctx, shared.ApprovalLog{
		Module: approvalModule,
		RefID:  id,
		Actor:  actor,
		Action: action,
		Note:   note,
		At:     s.now(),
	})
	if err != nil {
		s.logger.Warn("approval record failed", slog.Any("error", err))
	}
}

func resetRecord(rec *pricing.ProductRecord) {
	rec.ProposedPrice = rec.CalculatedPrice
	rec.PriceModified = false
	rec.WorkflowStatus = pricing.StatusDraft
	rec.SubmittedBy = ""
	rec.SubmissionDate = nil
	rec.Reviewer = ""
	rec.ReviewDate = nil
	rec.ReviewComments = ""
	pricing.RefreshFlags(rec)
}
