package optimization

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Params holds the engine's tunable constants. DefaultParams fills them from
// the `default` tags; later sources decode over that so explicit zeros stay.
type Params struct {
	// Candidates must score strictly above this success probability (0-100).
	ProbabilityThreshold float64 `yaml:"probability_threshold" default:"80" validate:"gte=0,lte=100"`
	// At most this many candidates enter the optimization.
	MaxCandidates int `yaml:"max_candidates" default:"15" validate:"gte=2"`

	// Lookback window passed to the market data provider.
	LookbackPeriod string `yaml:"lookback_period" default:"1y" validate:"required"`
	// Tickers missing more than this fraction of observations are dropped.
	MaxMissingFraction float64 `yaml:"max_missing_fraction" default:"0.1" validate:"gte=0,lt=1"`
	// Annualization factor for daily returns and covariance.
	TradingDaysPerYear float64 `yaml:"trading_days_per_year" default:"252" validate:"gt=0"`
	// Upper bound on price retrieval.
	MarketDataTimeout time.Duration `yaml:"market_data_timeout" default:"30s" validate:"gt=0"`

	// Per-asset cap for the target-return problem.
	PrimaryMaxWeight float64 `yaml:"primary_max_weight" default:"0.5" validate:"gt=0,lte=1"`
	// Per-asset cap for the minimum-variance fallback.
	FallbackMaxWeight float64 `yaml:"fallback_max_weight" default:"0.3" validate:"gt=0,lte=1"`

	// The high-risk rule only applies above this expected return.
	RiskCheckMinReturn float64 `yaml:"risk_check_min_return" default:"0.05"`
	// Portfolios whose return/risk ratio falls below this are flagged.
	MinReturnToRisk float64 `yaml:"min_return_to_risk" default:"1.5" validate:"gt=0"`

	// Weights at or below this are omitted from the allocation.
	MaterialityFloor float64 `yaml:"materiality_floor" default:"0.01" validate:"gte=0,lt=1"`
}

// DefaultParams returns Params populated with the documented defaults.
func DefaultParams() Params {
	p, err := WithDefaults(Params{})
	if err != nil {
		panic(fmt.Sprintf("invalid default optimization params: %v", err))
	}
	return p
}

// WithDefaults fills zero-valued fields of p with defaults and validates the
// result. A zero that should survive must be set after defaulting.
func WithDefaults(p Params) (Params, error) {
	if err := defaults.Set(&p); err != nil {
		return Params{}, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid optimization params: %w", err)
	}
	return nil
}

// RiskPolicy returns the high-risk rule configured by p.
func (p Params) RiskPolicy() RiskPolicy {
	return RiskPolicy{
		MinReturn:       p.RiskCheckMinReturn,
		MinReturnToRisk: p.MinReturnToRisk,
	}
}
