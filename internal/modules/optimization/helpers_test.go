package optimization

import (
	"context"
	"math"
	"time"

	"github.com/aristath/allocator/internal/domain"
)

// syntheticAsset describes a synthetic asset by its annualized moments.
type syntheticAsset struct {
	ticker      string
	annualRet   float64
	annualVol   float64
	probability float64
}

const syntheticReturns = 252

// syntheticTable builds prices whose daily returns are m + s·√2·sin(2πkt/T)
// with a distinct frequency k per asset. The oscillations have zero mean and
// are mutually orthogonal, so the estimated μ and Σ are exactly the
// requested annual moments with zero correlation.
func syntheticTable(assets []syntheticAsset) domain.PriceTable {
	const T = syntheticReturns
	dates := make([]time.Time, T+1)
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	closes := make(map[string][]float64, len(assets))
	for idx, asset := range assets {
		k := float64(idx + 1)
		m := asset.annualRet / 252
		s := asset.annualVol / math.Sqrt(252*float64(T)/float64(T-1))

		prices := make([]float64, T+1)
		prices[0] = 100
		for t := 0; t < T; t++ {
			x := math.Sqrt2 * math.Sin(2*math.Pi*k*float64(t)/float64(T))
			prices[t+1] = prices[t] * (1 + m + s*x)
		}
		closes[asset.ticker] = prices
	}

	return domain.PriceTable{Dates: dates, Closes: closes}
}

func candidatesFor(assets []syntheticAsset) []domain.Candidate {
	out := make([]domain.Candidate, len(assets))
	for i, asset := range assets {
		p := asset.probability
		if p == 0 {
			p = 90 - float64(i)
		}
		out[i] = domain.Candidate{
			Ticker:             asset.ticker,
			Name:               asset.ticker + " Ltd",
			Sector:             "Sector " + asset.ticker,
			SuccessProbability: p,
		}
	}
	return out
}

// stubProvider serves a fixed table and counts calls.
type stubProvider struct {
	table domain.PriceTable
	err   error
	block bool
	calls int
}

func (p *stubProvider) GetClosingPrices(ctx context.Context, tickers []string, period string) (domain.PriceTable, error) {
	p.calls++
	if p.block {
		<-ctx.Done()
		return domain.PriceTable{}, ctx.Err()
	}
	if p.err != nil {
		return domain.PriceTable{}, p.err
	}
	return p.table, nil
}

// countingSolver delegates to the active-set solver and records calls.
type countingSolver struct {
	inner    Solver
	problems []Problem
}

func newCountingSolver() *countingSolver {
	return &countingSolver{inner: NewActiveSetSolver()}
}

func (s *countingSolver) Solve(problem Problem) SolveOutcome {
	s.problems = append(s.problems, problem)
	return s.inner.Solve(problem)
}

// scriptedSolver returns canned outcomes in order.
type scriptedSolver struct {
	outcomes []SolveOutcome
	calls    int
}

func (s *scriptedSolver) Solve(Problem) SolveOutcome {
	out := s.outcomes[s.calls]
	s.calls++
	return out
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
