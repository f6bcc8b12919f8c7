// Package formulas holds the numeric helpers shared by the return model and
// the risk evaluator.
package formulas

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the standard annualization factor for daily data.
const TradingDaysPerYear = 252

// SimpleReturns converts prices to period-over-period returns.
// Returns[i] = Price[i+1]/Price[i] - 1. A zero or missing price propagates
// as a non-finite return instead of being masked.
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
	}
	return returns
}

// Mean calculates the arithmetic mean; NaN for an empty slice.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// CovarianceMatrix returns the sample (N-1) covariance of the given series,
// one slice per variable, all of equal length. Fewer than two observations
// yield a NaN-filled matrix.
func CovarianceMatrix(series [][]float64) *mat.SymDense {
	n := len(series)
	if n == 0 {
		return nil
	}
	obs := len(series[0])

	if obs < 2 {
		data := make([]float64, n*n)
		for i := range data {
			data[i] = math.NaN()
		}
		return mat.NewSymDense(n, data)
	}

	x := mat.NewDense(obs, n, nil)
	for j, col := range series {
		x.SetCol(j, col)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, x, nil)
	return &cov
}

// PortfolioReturn is wᵀμ.
func PortfolioReturn(weights, mu []float64) float64 {
	return floats.Dot(weights, mu)
}

// PortfolioVariance is wᵀΣw.
func PortfolioVariance(weights []float64, sigma mat.Symmetric) float64 {
	w := mat.NewVecDense(len(weights), weights)
	return mat.Inner(w, sigma, w)
}

// AllFinite reports whether every value is neither NaN nor ±Inf.
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// SymmetricFinite reports whether every entry of a symmetric matrix is finite.
func SymmetricFinite(m mat.Symmetric) bool {
	n := m.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Round rounds half away from zero to the given number of decimal places.
// Non-finite inputs are returned unchanged.
func Round(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}
