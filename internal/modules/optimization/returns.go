package optimization

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/pkg/formulas"
	"github.com/aristath/allocator/pkg/logger"
)

// minAssets is the smallest universe with a diversification decision.
const minAssets = 2

// ReturnModel holds annualized expected returns and covariance, both indexed
// over Tickers.
type ReturnModel struct {
	Tickers []string
	Mu      []float64
	Sigma   *mat.SymDense
}

// Len is the number of assets in the model.
func (m ReturnModel) Len() int {
	return len(m.Tickers)
}

// Validate enforces the model invariants. Non-finite estimates mean the
// quadratic program would be ill-posed.
func (m ReturnModel) Validate() error {
	n := m.Len()
	if m.Sigma == nil || len(m.Mu) != n || m.Sigma.SymmetricDim() != n {
		return fmt.Errorf("return model dimensions disagree: %d tickers, %d returns", n, len(m.Mu))
	}
	if !formulas.SymmetricFinite(m.Sigma) {
		return fmt.Errorf("%w: covariance matrix contains non-finite values", ErrUnstableMarketData)
	}
	if !formulas.AllFinite(m.Mu) {
		return fmt.Errorf("%w: expected returns contain non-finite values", ErrUnstableMarketData)
	}
	return nil
}

// ReturnModelBuilder fetches price history and derives the return model.
type ReturnModelBuilder struct {
	provider PriceProvider
	params   Params
	log      zerolog.Logger
}

// NewReturnModelBuilder creates a new return model builder.
func NewReturnModelBuilder(provider PriceProvider, params Params, log zerolog.Logger) *ReturnModelBuilder {
	return &ReturnModelBuilder{
		provider: provider,
		params:   params,
		log:      logger.Component(log, "return_model"),
	}
}

// Build retrieves prices for tickers under the configured timeout and
// estimates μ and Σ from them.
func (b *ReturnModelBuilder) Build(ctx context.Context, tickers []string) (ReturnModel, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, b.params.MarketDataTimeout)
	defer cancel()

	b.log.Debug().
		Int("num_tickers", len(tickers)).
		Str("period", b.params.LookbackPeriod).
		Msg("Fetching price history")

	table, err := b.provider.GetClosingPrices(fetchCtx, tickers, b.params.LookbackPeriod)
	if err != nil {
		return ReturnModel{}, fmt.Errorf("%w: failed to fetch price history: %v", ErrUnstableMarketData, err)
	}

	return EstimateReturnModel(table, tickers, b.params, b.log)
}

// EstimateReturnModel aligns the price table and derives annualized returns
// and covariance for the tickers with sufficient coverage.
func EstimateReturnModel(table domain.PriceTable, tickers []string, params Params, log zerolog.Logger) (ReturnModel, error) {
	rows := table.Rows()
	minObservations := int(math.Floor(float64(rows) * (1 - params.MaxMissingFraction)))
	if minObservations < 1 {
		minObservations = 1
	}

	valid := make([]string, 0, len(tickers))
	series := make([][]float64, 0, len(tickers))
	for _, ticker := range tickers {
		closes, ok := table.Column(ticker)
		if !ok {
			log.Warn().Str("ticker", ticker).Msg("No price data, dropping ticker")
			continue
		}
		if observed := countObserved(closes); observed < minObservations {
			log.Warn().
				Str("ticker", ticker).
				Int("observed", observed).
				Int("required", minObservations).
				Msg("Insufficient price coverage, dropping ticker")
			continue
		}
		valid = append(valid, ticker)
		series = append(series, fillGaps(closes))
	}

	if len(valid) < minAssets {
		return ReturnModel{}, fmt.Errorf("%w: only %d tickers have sufficient price history", ErrInsufficientCandidates, len(valid))
	}

	returns := make([][]float64, len(series))
	mu := make([]float64, len(series))
	for i, prices := range series {
		returns[i] = formulas.SimpleReturns(prices)
		mu[i] = formulas.Mean(returns[i]) * params.TradingDaysPerYear
	}

	sigma := formulas.CovarianceMatrix(returns)
	sigma.ScaleSym(params.TradingDaysPerYear, sigma)

	model := ReturnModel{Tickers: valid, Mu: mu, Sigma: sigma}
	if err := model.Validate(); err != nil {
		return ReturnModel{}, err
	}

	log.Debug().
		Int("num_tickers", len(valid)).
		Int("num_returns", rows-1).
		Msg("Estimated return model")

	return model, nil
}

func countObserved(closes []float64) int {
	count := 0
	for _, p := range closes {
		if !math.IsNaN(p) {
			count++
		}
	}
	return count
}

// fillGaps forward-fills then back-fills missing observations.
func fillGaps(prices []float64) []float64 {
	filled := make([]float64, len(prices))
	copy(filled, prices)

	last, hasLast := 0.0, false
	for i, p := range filled {
		if math.IsNaN(p) {
			if hasLast {
				filled[i] = last
			}
			continue
		}
		last, hasLast = p, true
	}

	next, hasNext := 0.0, false
	for i := len(filled) - 1; i >= 0; i-- {
		if math.IsNaN(filled[i]) {
			if hasNext {
				filled[i] = next
			}
			continue
		}
		next, hasNext = filled[i], true
	}

	return filled
}
