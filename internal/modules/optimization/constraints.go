package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Problem is a long-only, fully invested minimum-variance program:
//
//	minimize   wᵀΣw
//	subject to Σw = 1
//	           0 ≤ w_i ≤ MaxWeight
//	           μᵀw ≥ Target        (only when ReturnFloor is set)
type Problem struct {
	Sigma       mat.Symmetric
	MaxWeight   float64
	ReturnFloor *ReturnFloor
}

// ReturnFloor is the minimum expected portfolio return constraint.
type ReturnFloor struct {
	Mu     []float64
	Target float64
}

// linearConstraint is aᵀw ≥ b.
type linearConstraint struct {
	a []float64
	b float64
}

// PrimaryProblem is the target-return mean-variance problem.
func PrimaryProblem(model ReturnModel, targetReturn, maxWeight float64) Problem {
	return Problem{
		Sigma:     model.Sigma,
		MaxWeight: maxWeight,
		ReturnFloor: &ReturnFloor{
			Mu:     model.Mu,
			Target: targetReturn,
		},
	}
}

// FallbackProblem is the global minimum-variance problem.
func FallbackProblem(model ReturnModel, maxWeight float64) Problem {
	return Problem{
		Sigma:     model.Sigma,
		MaxWeight: maxWeight,
	}
}

// Dim is the number of assets.
func (p Problem) Dim() int {
	if p.Sigma == nil {
		return 0
	}
	return p.Sigma.SymmetricDim()
}

func (p Problem) validate() error {
	n := p.Dim()
	if n == 0 {
		return fmt.Errorf("empty problem")
	}
	if p.MaxWeight <= 0 || math.IsNaN(p.MaxWeight) {
		return fmt.Errorf("max weight must be positive, got %v", p.MaxWeight)
	}
	if p.ReturnFloor != nil {
		if len(p.ReturnFloor.Mu) != n {
			return fmt.Errorf("expected returns size %d doesn't match covariance size %d", len(p.ReturnFloor.Mu), n)
		}
		if math.IsNaN(p.ReturnFloor.Target) || math.IsInf(p.ReturnFloor.Target, 0) {
			return fmt.Errorf("target return must be finite")
		}
	}
	return nil
}

// inequalities expands the bounds and the return floor into aᵀw ≥ b rows:
// indices [0,n) are lower bounds, [n,2n) upper bounds, 2n the return floor.
func (p Problem) inequalities() []linearConstraint {
	n := p.Dim()
	cons := make([]linearConstraint, 0, 2*n+1)
	for i := 0; i < n; i++ {
		a := make([]float64, n)
		a[i] = 1
		cons = append(cons, linearConstraint{a: a, b: 0})
	}
	for i := 0; i < n; i++ {
		a := make([]float64, n)
		a[i] = -1
		cons = append(cons, linearConstraint{a: a, b: -p.MaxWeight})
	}
	if p.ReturnFloor != nil {
		a := make([]float64, n)
		copy(a, p.ReturnFloor.Mu)
		cons = append(cons, linearConstraint{a: a, b: p.ReturnFloor.Target})
	}
	return cons
}

func budgetRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = 1
	}
	return row
}

// Violation is the largest constraint violation of w.
func (p Problem) Violation(w []float64) float64 {
	worst := math.Abs(floats.Sum(w) - 1)
	for _, c := range p.inequalities() {
		if v := c.b - floats.Dot(c.a, w); v > worst {
			worst = v
		}
	}
	return worst
}

// finish snaps round-off at the bounds and grades the final point.
func (p Problem) finish(w []float64, iterations int) SolveOutcome {
	out := make([]float64, len(w))
	for i, v := range w {
		switch {
		case v < 0 && v > -feasibilityExact:
			v = 0
		case v > p.MaxWeight && v < p.MaxWeight+feasibilityExact:
			v = p.MaxWeight
		}
		out[i] = v
	}

	switch violation := p.Violation(out); {
	case violation <= feasibilityExact:
		return SolveOutcome{Status: SolveOptimal, Weights: out, Iterations: iterations}
	case violation <= feasibilityLoose:
		return SolveOutcome{Status: SolveOptimalInaccurate, Weights: out, Iterations: iterations}
	default:
		return SolveOutcome{Status: SolveError, Iterations: iterations}
	}
}
