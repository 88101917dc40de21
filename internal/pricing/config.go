package pricing

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// BandConfig holds the uplift and markup percentages for one rank-group band.
// Values are fractional, e.g. 0.03 for a 3% uplift.
type BandConfig struct {
	MLUpliftDown float64 `json:"ml_uplift_down" validate:"gte=0,lte=1"`
	MLUpliftUp   float64 `json:"ml_uplift_up" validate:"gte=0,lte=1"`
	CostMarkup   float64 `json:"cost_markup" validate:"gte=0,lte=1"`
}

// RuleConfig supplies the tunable percentages for the rule engine, one band
// per pair of rank groups.
type RuleConfig struct {
	Group12 BandConfig `json:"group_1_2" validate:"required"`
	Group34 BandConfig `json:"group_3_4" validate:"required"`
	Group56 BandConfig `json:"group_5_6" validate:"required"`

	// TMLUplift is applied to the true market low under Rule 2.
	TMLUplift float64 `json:"tml_uplift" validate:"gte=0,lte=1"`
}

// DefaultRuleConfig returns the stock configuration: tighter uplifts for the
// high-volume bands, larger markups further down the rank order.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		Group12:   BandConfig{MLUpliftDown: 0.00, MLUpliftUp: 0.03, CostMarkup: 0.12},
		Group34:   BandConfig{MLUpliftDown: 0.01, MLUpliftUp: 0.04, CostMarkup: 0.13},
		Group56:   BandConfig{MLUpliftDown: 0.02, MLUpliftUp: 0.05, CostMarkup: 0.14},
		TMLUplift: 0.03,
	}
}

// Band selects the configuration for a rank group, clamping out-of-range
// groups into the lowest band.
func (c RuleConfig) Band(rankGroup int) BandConfig {
	switch {
	case rankGroup <= 2:
		return c.Group12
	case rankGroup <= 4:
		return c.Group34
	default:
		return c.Group56
	}
}

var validate = validator.New()

// Validate checks the configuration percentages are within sane bounds.
func (c RuleConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("pricing: invalid rule config: %w", err)
	}
	return nil
}
