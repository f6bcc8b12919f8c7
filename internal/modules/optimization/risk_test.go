package optimization

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestEvaluateRisk_HighRiskOverridesSuccess(t *testing.T) {
	weights := []float64{0.5, 0.5}
	mu := []float64{0.10, 0.10}
	sigma := mat.NewSymDense(2, []float64{0.0081, 0.0081, 0.0081, 0.0081})
	prior := Assessment{Status: ResultSuccess, Message: targetAchievedMessage(0.08)}

	metrics, assessment := EvaluateRisk(weights, mu, sigma, prior, DefaultParams().RiskPolicy())

	assert.InDelta(t, 0.10, metrics.ExpectedReturn, 1e-12)
	assert.InDelta(t, 0.09, metrics.Risk, 1e-12)
	assert.InDelta(t, 0.10/0.09, metrics.Sharpe, 1e-9)
	assert.Equal(t, ResultAdjust, assessment.Status)
	assert.Equal(t, "HIGH RISK WARNING: Volatility (9.0%) is high for your return. "+
		"Lower your target return to reduce risk and improve your Sharpe Ratio.", assessment.Message)
}

func TestEvaluateRisk_OverridesFallbackMessage(t *testing.T) {
	sigma := mat.NewSymDense(1, []float64{0.04})
	prior := Assessment{Status: ResultAdjust, Message: targetUnreachableMessage(5)}

	_, assessment := EvaluateRisk([]float64{1}, []float64{0.12}, sigma, prior, DefaultParams().RiskPolicy())

	assert.Equal(t, ResultAdjust, assessment.Status)
	assert.Contains(t, assessment.Message, "HIGH RISK WARNING: Volatility (20.0%)")
}

func TestEvaluateRisk_KeepsPrior(t *testing.T) {
	policy := DefaultParams().RiskPolicy()
	prior := Assessment{Status: ResultSuccess, Message: targetAchievedMessage(0.15)}

	tests := []struct {
		name  string
		mu    float64
		sigma float64
	}{
		{"acceptable ratio", 0.18, 0.0036},
		{"return at threshold", 0.05, 0.04},
		{"low return ignores risk", 0.03, 0.09},
		{"ratio just inside limit", 0.15, 0.0081},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigma := mat.NewSymDense(1, []float64{tt.sigma})

			_, assessment := EvaluateRisk([]float64{1}, []float64{tt.mu}, sigma, prior, policy)

			assert.Equal(t, prior, assessment)
		})
	}
}

func TestEvaluateRisk_ZeroRisk(t *testing.T) {
	sigma := mat.NewSymDense(2, nil)
	prior := Assessment{Status: ResultSuccess, Message: "ok"}
	policy := DefaultParams().RiskPolicy()

	metrics, assessment := EvaluateRisk([]float64{0.5, 0.5}, []float64{0.04, 0.02}, sigma, prior, policy)
	assert.Equal(t, 0.0, metrics.Risk)
	assert.True(t, math.IsInf(metrics.Sharpe, 1))
	assert.Equal(t, prior, assessment)

	metrics, _ = EvaluateRisk([]float64{0.5, 0.5}, []float64{-0.04, 0.02}, sigma, prior, policy)
	assert.True(t, math.IsInf(metrics.Sharpe, -1))

	metrics, _ = EvaluateRisk([]float64{0.5, 0.5}, []float64{0, 0}, sigma, prior, policy)
	assert.True(t, math.IsNaN(metrics.Sharpe))
}

func TestMessages(t *testing.T) {
	assert.Equal(t, "Target achieved (15.0%).", targetAchievedMessage(0.15))
	assert.Equal(t, "WARNING: Target return of 500.0% was too high. Portfolio optimized for MINIMUM RISK (GMVP).",
		targetUnreachableMessage(5))
}
