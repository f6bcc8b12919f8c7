// Package optimization sizes a long-only stock portfolio from ranked
// candidates: selection, return-model estimation, target-return
// mean-variance optimization with a minimum-variance fallback, a risk
// quality check and allocation formatting.
package optimization

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/pkg/formulas"
)

// PortfolioMetrics are the risk metrics of a result, scaled to percent
// (12.34 means 12.34%) except the ratio.
type PortfolioMetrics struct {
	ExpectedReturn float64  `json:"expected_return"`
	EstimatedRisk  float64  `json:"estimated_risk"`
	SharpeRatio    *float64 `json:"sharpe_ratio"` // null when risk is zero
}

// Result is the sole artifact returned to the caller. It is never stored.
type Result struct {
	Status    ResultStatus     `json:"status"`
	Message   string           `json:"message"`
	Portfolio []Holding        `json:"portfolio"`
	Metrics   PortfolioMetrics `json:"metrics"`
}

// OptimizerService runs the portfolio construction pipeline. It keeps no
// per-call state, so one instance serves concurrent requests.
type OptimizerService struct {
	params    Params
	models    *ReturnModelBuilder
	optimizer *MVOptimizer
	metrics   *ServiceMetrics
	log       zerolog.Logger
}

// NewOptimizerService creates a new optimizer service. metrics may be nil.
func NewOptimizerService(provider PriceProvider, solver Solver, params Params, metrics *ServiceMetrics, log zerolog.Logger) *OptimizerService {
	log = log.With().Str("service", "optimizer").Logger()
	return &OptimizerService{
		params:    params,
		models:    NewReturnModelBuilder(provider, params, log),
		optimizer: NewMVOptimizer(solver, params, log),
		metrics:   metrics,
		log:       log,
	}
}

// Optimize recommends an allocation of amount across candidates aiming for
// targetReturn (a fraction, 0.20 for 20%).
func (s *OptimizerService) Optimize(ctx context.Context, candidates []domain.Candidate, amount, targetReturn float64) (*Result, error) {
	start := time.Now()
	log := s.log.With().Str("run_id", uuid.NewString()).Logger()

	result, err := s.run(ctx, log, candidates, amount, targetReturn)
	elapsed := time.Since(start)

	if err != nil {
		kind := KindOf(err)
		s.metrics.observe(string(kind), elapsed)
		level := zerolog.WarnLevel
		if kind == KindInternal {
			level = zerolog.ErrorLevel
		}
		log.WithLevel(level).Err(err).Str("kind", string(kind)).Dur("elapsed", elapsed).Msg("Optimization failed")
		return nil, err
	}

	s.metrics.observe(string(result.Status), elapsed)
	log.Info().
		Str("status", string(result.Status)).
		Int("holdings", len(result.Portfolio)).
		Float64("expected_return_pct", result.Metrics.ExpectedReturn).
		Float64("estimated_risk_pct", result.Metrics.EstimatedRisk).
		Dur("elapsed", elapsed).
		Msg("Optimization completed")

	return result, nil
}

func (s *OptimizerService) run(ctx context.Context, log zerolog.Logger, candidates []domain.Candidate, amount, targetReturn float64) (*Result, error) {
	if err := validateInputs(amount, targetReturn); err != nil {
		return nil, err
	}

	selected, err := SelectCandidates(candidates, s.params.ProbabilityThreshold, s.params.MaxCandidates)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("selected", len(selected)).Msg("Selected candidates")

	model, err := s.models.Build(ctx, tickersOf(selected))
	if err != nil {
		return nil, err
	}

	plan, err := s.optimizer.Optimize(model, targetReturn)
	if err != nil {
		return nil, err
	}

	prior := Assessment{Status: ResultSuccess, Message: targetAchievedMessage(targetReturn)}
	if plan.UsedFallback {
		s.metrics.fallbackUsed()
		prior = Assessment{Status: ResultAdjust, Message: targetUnreachableMessage(targetReturn)}
	}

	risk, assessment := EvaluateRisk(plan.Weights, model.Mu, model.Sigma, prior, s.params.RiskPolicy())
	if assessment != prior {
		log.Info().
			Float64("expected_return", risk.ExpectedReturn).
			Float64("risk", risk.Risk).
			Msg("Portfolio flagged as high risk")
	}

	return &Result{
		Status:    assessment.Status,
		Message:   assessment.Message,
		Portfolio: FormatAllocation(plan.Weights, model.Tickers, selected, amount, s.params.MaterialityFloor),
		Metrics:   portfolioMetrics(risk),
	}, nil
}

func validateInputs(amount, targetReturn float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return fmt.Errorf("%w: investment amount must be positive", ErrInvalidInput)
	}
	if math.IsNaN(targetReturn) || math.IsInf(targetReturn, 0) || targetReturn < 0 {
		return fmt.Errorf("%w: target return must be a non-negative number", ErrInvalidInput)
	}
	return nil
}

func portfolioMetrics(risk RiskMetrics) PortfolioMetrics {
	m := PortfolioMetrics{
		ExpectedReturn: formulas.Round(risk.ExpectedReturn*100, 2),
		EstimatedRisk:  formulas.Round(risk.Risk*100, 2),
	}
	if !math.IsNaN(risk.Sharpe) && !math.IsInf(risk.Sharpe, 0) {
		ratio := formulas.Round(risk.Sharpe, 2)
		m.SharpeRatio = &ratio
	}
	return m
}
