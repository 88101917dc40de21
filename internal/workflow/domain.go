// Package workflow governs the approval lifecycle of manually edited prices
// over a dataset snapshot. Every mutation produces a fresh snapshot version
// with margins, flags, the flagged-item view and portfolio aggregates
// recomputed together, so readers never observe diverged state.
package workflow

import (
	"github.com/pricedeck/pricedeck/internal/shared"
)

// BatchFailure reports one id that could not be processed.
type BatchFailure struct {
	ID     string           `json:"id"`
	Kind   shared.ErrorKind `json:"kind"`
	Reason string           `json:"reason"`
}

// BatchResult is the partial-success outcome of a batch transition: ids that
// went through and ids that failed with their error kind. One bad id never
// rolls back the rest.
type BatchResult struct {
	Succeeded []string       `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

func (r *BatchResult) ok(id string) {
	r.Succeeded = append(r.Succeeded, id)
}

func (r *BatchResult) fail(id string, err error) {
	r.Failed = append(r.Failed, BatchFailure{ID: id, Kind: shared.Kind(err), Reason: err.Error()})
}

// AllFailed reports whether not a single id succeeded.
func (r *BatchResult) AllFailed() bool {
	return len(r.Succeeded) == 0 && len(r.Failed) > 0
}
