package optimization

import (
	"errors"
)

// Failure kinds surfaced by the engine. Callers match them with errors.Is.
var (
	// ErrInsufficientCandidates means fewer than two securities survived
	// selection or data filtering. User-correctable.
	ErrInsufficientCandidates = errors.New("insufficient candidates")
	// ErrUnstableMarketData means price retrieval failed or the return model
	// contains non-finite values. Retryable later.
	ErrUnstableMarketData = errors.New("unstable market data")
	// ErrOptimizationInfeasible means neither the target-return problem nor
	// the minimum-variance fallback produced usable weights. Terminal.
	ErrOptimizationInfeasible = errors.New("optimization infeasible")
	// ErrInvalidInput means the investment amount or target return is unusable.
	ErrInvalidInput = errors.New("invalid input")
)

// ErrorKind is a stable label for a failure, used in logs and metrics.
type ErrorKind string

const (
	KindInsufficientCandidates ErrorKind = "insufficient_candidates"
	KindUnstableMarketData     ErrorKind = "unstable_market_data"
	KindOptimizationInfeasible ErrorKind = "optimization_infeasible"
	KindInvalidInput           ErrorKind = "invalid_input"
	KindInternal               ErrorKind = "internal"
)

// KindOf classifies an error returned by the engine.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInsufficientCandidates):
		return KindInsufficientCandidates
	case errors.Is(err, ErrUnstableMarketData):
		return KindUnstableMarketData
	case errors.Is(err, ErrOptimizationInfeasible):
		return KindOptimizationInfeasible
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	default:
		return KindInternal
	}
}

// UserMessage is the message shown to API clients for an error.
// Internal faults never leak their details.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindInsufficientCandidates:
		return "Not enough strong buy stocks."
	case KindUnstableMarketData:
		return "Unstable market data."
	case KindOptimizationInfeasible:
		return "Optimization failed completely."
	case KindInvalidInput:
		return err.Error()
	default:
		return "Internal error."
	}
}
