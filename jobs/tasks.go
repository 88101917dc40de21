package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pricedeck/pricedeck/internal/pricing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPricingRecalculate re-runs the rule engine over the stored snapshot
	// with a new rule configuration.
	TaskPricingRecalculate = "pricing:recalculate"
	// TaskPricingIntegrity re-checks derived data consistency of the stored
	// snapshot, scheduled nightly.
	TaskPricingIntegrity = "pricing:integrity"
)

// RecalculatePayload carries the rule configuration to apply.
type RecalculatePayload struct {
	RuleConfig  pricing.RuleConfig `json:"rule_config"`
	RequestedBy string             `json:"requested_by"`
	RequestedAt time.Time          `json:"requested_at"`
}

// NewRecalculateTask constructs an Asynq task for snapshot recalculation.
func NewRecalculateTask(payload RecalculatePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPricingRecalculate, data, asynq.Queue(QueueDefault)), nil
}

// IntegrityPayload carries scheduling metadata.
type IntegrityPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewIntegrityTask constructs the nightly integrity check task.
func NewIntegrityTask(at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPricingIntegrity, data, asynq.Queue(QueueDefault)), nil
}
