package optimization

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/allocator/pkg/formulas"
)

// SolveStatus reports how a quadratic program terminated.
type SolveStatus int

const (
	SolveOptimal SolveStatus = iota
	SolveOptimalInaccurate
	SolveInfeasible
	SolveIterationLimit
	SolveError
)

func (s SolveStatus) String() string {
	switch s {
	case SolveOptimal:
		return "optimal"
	case SolveOptimalInaccurate:
		return "optimal_inaccurate"
	case SolveInfeasible:
		return "infeasible"
	case SolveIterationLimit:
		return "iteration_limit"
	default:
		return "solver_error"
	}
}

// SolveOutcome is the tagged result of one solve: optimal weights, or a
// non-optimal status with no weights.
type SolveOutcome struct {
	Status     SolveStatus
	Weights    []float64
	Iterations int
}

// Accepted reports whether the outcome carries usable weights.
func (o SolveOutcome) Accepted() bool {
	return (o.Status == SolveOptimal || o.Status == SolveOptimalInaccurate) && o.Weights != nil
}

// Solver solves long-only, fully invested minimum-variance problems.
type Solver interface {
	Solve(problem Problem) SolveOutcome
}

const (
	stepTolerance       = 1e-10 // ‖p‖∞ below this is a zero step
	multiplierTolerance = 1e-10 // multipliers above -tol are treated as non-negative
	directionTolerance  = 1e-12 // aᵀp must be below -tol to block a step
	feasibilityExact    = 1e-8
	feasibilityLoose    = 1e-5
)

// ActiveSetSolver is a primal active-set method for convex quadratic programs
// (Nocedal & Wright, Algorithm 16.3). Each iteration solves the equality
// constrained subproblem through its KKT system with gonum/mat.
type ActiveSetSolver struct {
	MaxIterations int
}

// NewActiveSetSolver creates a solver with the default iteration budget.
func NewActiveSetSolver() *ActiveSetSolver {
	return &ActiveSetSolver{}
}

func (s *ActiveSetSolver) iterationBudget(constraints int) int {
	if s.MaxIterations > 0 {
		return s.MaxIterations
	}
	return 200 + 20*constraints
}

// Solve minimizes wᵀΣw subject to the problem's constraint set.
func (s *ActiveSetSolver) Solve(problem Problem) SolveOutcome {
	if err := problem.validate(); err != nil {
		return SolveOutcome{Status: SolveError}
	}

	w, ok := feasibleStart(problem)
	if !ok {
		return SolveOutcome{Status: SolveInfeasible}
	}

	n := problem.Dim()
	cons := problem.inequalities()
	hess := hessian(problem.Sigma)

	working := make([]int, 0, n)
	inWorking := make([]bool, len(cons))
	grad := make([]float64, n)

	// settled is set after a full, unblocked step: w then minimizes over the
	// working set, and any step left is KKT round-off. With a rank-deficient Σ
	// that round-off can stay above stepTolerance indefinitely.
	settled := false
	budget := s.iterationBudget(len(cons))
	for iter := 1; iter <= budget; iter++ {
		gradientInto(grad, hess, w)

		step, multipliers, err := solveKKT(hess, grad, cons, working)
		if err != nil {
			return SolveOutcome{Status: SolveError, Iterations: iter}
		}

		if settled || floats.Norm(step, math.Inf(1)) <= stepTolerance {
			settled = false
			// multipliers[0] belongs to the budget equality and is free.
			drop, most := -1, -multiplierTolerance
			for k := range working {
				if multipliers[k+1] < most {
					most = multipliers[k+1]
					drop = k
				}
			}
			if drop < 0 {
				return problem.finish(w, iter)
			}
			inWorking[working[drop]] = false
			working = append(working[:drop], working[drop+1:]...)
			continue
		}

		alpha, blocking := 1.0, -1
		for j, c := range cons {
			if inWorking[j] {
				continue
			}
			ap := floats.Dot(c.a, step)
			if ap >= -directionTolerance {
				continue
			}
			ratio := (c.b - floats.Dot(c.a, w)) / ap
			if ratio < 0 {
				ratio = 0
			}
			if ratio < alpha {
				alpha = ratio
				blocking = j
			}
		}

		floats.AddScaled(w, alpha, step)
		settled = blocking < 0
		if blocking >= 0 {
			working = append(working, blocking)
			inWorking[blocking] = true
		}
	}

	return SolveOutcome{Status: SolveIterationLimit, Iterations: budget}
}

// hessian returns 2Σ with a tiny ridge so the KKT matrix stays nonsingular
// when Σ is only positive semi-definite.
func hessian(sigma mat.Symmetric) *mat.Dense {
	n := sigma.SymmetricDim()
	h := mat.NewDense(n, n, nil)
	var trace float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			h.Set(i, j, 2*sigma.At(i, j))
		}
		trace += 2 * sigma.At(i, i)
	}
	ridge := 1e-12 + 1e-10*math.Abs(trace)/float64(n)
	for i := 0; i < n; i++ {
		h.Set(i, i, h.At(i, i)+ridge)
	}
	return h
}

func gradientInto(dst []float64, hess *mat.Dense, w []float64) {
	g := mat.NewVecDense(len(dst), dst)
	g.MulVec(hess, mat.NewVecDense(len(w), w))
}

// solveKKT solves
//
//	[ H  -Aᵀ ] [ p ]   [ -g ]
//	[ A   0  ] [ λ ] = [  0 ]
//
// where A stacks the budget row and the working constraints.
func solveKKT(hess *mat.Dense, grad []float64, cons []linearConstraint, working []int) ([]float64, []float64, error) {
	n := len(grad)
	k := 1 + len(working)
	size := n + k

	kkt := mat.NewDense(size, size, nil)
	kkt.Slice(0, n, 0, n).(*mat.Dense).Copy(hess)

	setRow := func(r int, a []float64) {
		for i := 0; i < n; i++ {
			kkt.Set(n+r, i, a[i])
			kkt.Set(i, n+r, -a[i])
		}
	}
	setRow(0, budgetRow(n))
	for r, idx := range working {
		setRow(r+1, cons[idx].a)
	}

	rhs := mat.NewVecDense(size, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, -grad[i])
	}

	var x mat.VecDense
	if err := x.SolveVec(kkt, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, nil, fmt.Errorf("kkt solve failed: %w", err)
		}
	}

	sol := x.RawVector().Data
	if !formulas.AllFinite(sol) {
		return nil, nil, fmt.Errorf("kkt system is singular")
	}
	return sol[:n], sol[n:], nil
}

// feasibleStart returns a point satisfying every constraint, or false when
// the constraint set is empty.
func feasibleStart(p Problem) ([]float64, bool) {
	n := p.Dim()
	if p.MaxWeight*float64(n) < 1-1e-12 {
		return nil, false
	}

	uniform := make([]float64, n)
	for i := range uniform {
		uniform[i] = 1 / float64(n)
	}
	if p.ReturnFloor == nil {
		return uniform, true
	}

	mu, target := p.ReturnFloor.Mu, p.ReturnFloor.Target
	best := maxReturnVertex(mu, p.MaxWeight)
	rBest := floats.Dot(mu, best)
	if rBest < target-1e-12 {
		return nil, false
	}

	rUniform := floats.Dot(mu, uniform)
	if rUniform >= target {
		return uniform, true
	}

	// Move from the uniform portfolio towards the highest-return vertex just
	// far enough to meet the floor.
	t := 1.0
	if rBest > rUniform {
		t = math.Min(1, (target-rUniform)/(rBest-rUniform))
	}
	start := make([]float64, n)
	for i := range start {
		start[i] = (1-t)*uniform[i] + t*best[i]
	}
	return start, true
}

// maxReturnVertex fills assets in order of expected return up to the cap.
// It maximizes μᵀw over {Σw = 1, 0 ≤ w ≤ cap}.
func maxReturnVertex(mu []float64, maxWeight float64) []float64 {
	order := make([]int, len(mu))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return mu[order[a]] > mu[order[b]] })

	w := make([]float64, len(mu))
	remaining := 1.0
	for _, i := range order {
		if remaining <= 0 {
			break
		}
		w[i] = math.Min(maxWeight, remaining)
		remaining -= w[i]
	}
	return w
}
