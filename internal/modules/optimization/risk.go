package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/allocator/pkg/formulas"
)

// ResultStatus is the outcome label returned to callers.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "SUCCESS"
	ResultAdjust  ResultStatus = "ADJUST"
)

// Assessment pairs a status with the message explaining it.
type Assessment struct {
	Status  ResultStatus
	Message string
}

// RiskPolicy flags portfolios whose return does not pay for their volatility.
type RiskPolicy struct {
	MinReturn       float64 // rule applies only when expected return exceeds this
	MinReturnToRisk float64 // flag when return / risk falls below this
}

// RiskMetrics are the annualized portfolio moments, as fractions.
type RiskMetrics struct {
	ExpectedReturn float64
	Risk           float64
	Sharpe         float64 // ±Inf or NaN when Risk is zero
}

// EvaluateRisk computes the portfolio moments for weights and applies the
// high-risk rule on top of prior, whichever solver produced the weights.
func EvaluateRisk(weights, mu []float64, sigma mat.Symmetric, prior Assessment, policy RiskPolicy) (RiskMetrics, Assessment) {
	ret := formulas.PortfolioReturn(weights, mu)
	risk := math.Sqrt(math.Max(formulas.PortfolioVariance(weights, sigma), 0))

	metrics := RiskMetrics{
		ExpectedReturn: ret,
		Risk:           risk,
		Sharpe:         sharpe(ret, risk),
	}

	if ret > policy.MinReturn && risk > ret/policy.MinReturnToRisk {
		return metrics, Assessment{
			Status:  ResultAdjust,
			Message: highRiskMessage(risk),
		}
	}
	return metrics, prior
}

func sharpe(ret, risk float64) float64 {
	if risk > 0 {
		return ret / risk
	}
	switch {
	case ret > 0:
		return math.Inf(1)
	case ret < 0:
		return math.Inf(-1)
	default:
		return math.NaN()
	}
}

func targetAchievedMessage(target float64) string {
	return fmt.Sprintf("Target achieved (%.1f%%).", target*100)
}

func targetUnreachableMessage(target float64) string {
	return fmt.Sprintf("WARNING: Target return of %.1f%% was too high. Portfolio optimized for MINIMUM RISK (GMVP).", target*100)
}

func highRiskMessage(risk float64) string {
	return fmt.Sprintf("HIGH RISK WARNING: Volatility (%.1f%%) is high for your return. "+
		"Lower your target return to reduce risk and improve your Sharpe Ratio.", risk*100)
}
