package optimization

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/allocator/pkg/logger"
)

// Stage is a state of the two-attempt solve protocol.
type Stage int

const (
	StageTryingPrimary Stage = iota
	StageTryingFallback
	StageResolved
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageTryingPrimary:
		return "trying_primary"
	case StageTryingFallback:
		return "trying_fallback"
	case StageResolved:
		return "resolved"
	default:
		return "failed"
	}
}

// Plan records how the weights were obtained.
type Plan struct {
	Weights      []float64
	Stage        Stage
	UsedFallback bool
	Primary      SolveOutcome
	Fallback     SolveOutcome
}

// MVOptimizer runs the target-return problem and, when it yields no usable
// weights, the global minimum-variance fallback.
type MVOptimizer struct {
	solver            Solver
	primaryMaxWeight  float64
	fallbackMaxWeight float64
	log               zerolog.Logger
}

// NewMVOptimizer creates a new mean-variance optimizer.
func NewMVOptimizer(solver Solver, params Params, log zerolog.Logger) *MVOptimizer {
	return &MVOptimizer{
		solver:            solver,
		primaryMaxWeight:  params.PrimaryMaxWeight,
		fallbackMaxWeight: params.FallbackMaxWeight,
		log:               logger.Component(log, "mv_optimizer"),
	}
}

// Optimize walks TryingPrimary → TryingFallback → {Resolved, Failed}.
// An unreachable target is an expected condition and only moves the machine
// to the fallback; ErrOptimizationInfeasible is returned when both fail.
func (o *MVOptimizer) Optimize(model ReturnModel, targetReturn float64) (Plan, error) {
	var plan Plan
	stage := StageTryingPrimary

	for {
		switch stage {
		case StageTryingPrimary:
			plan.Primary = o.solver.Solve(PrimaryProblem(model, targetReturn, o.primaryMaxWeight))
			if plan.Primary.Accepted() {
				plan.Weights = plan.Primary.Weights
				stage = StageResolved
				continue
			}
			o.log.Info().
				Str("status", plan.Primary.Status.String()).
				Float64("target_return", targetReturn).
				Msg("Target-return problem not solved, falling back to minimum variance")
			stage = StageTryingFallback

		case StageTryingFallback:
			plan.UsedFallback = true
			plan.Fallback = o.solver.Solve(FallbackProblem(model, o.fallbackMaxWeight))
			if plan.Fallback.Accepted() {
				plan.Weights = plan.Fallback.Weights
				stage = StageResolved
				continue
			}
			stage = StageFailed

		case StageResolved:
			plan.Stage = stage
			return plan, nil

		default:
			plan.Stage = StageFailed
			o.log.Warn().
				Str("primary_status", plan.Primary.Status.String()).
				Str("fallback_status", plan.Fallback.Status.String()).
				Int("num_assets", model.Len()).
				Msg("Both optimizations failed")
			return plan, fmt.Errorf("%w: primary %s, fallback %s",
				ErrOptimizationInfeasible, plan.Primary.Status, plan.Fallback.Status)
		}
	}
}
