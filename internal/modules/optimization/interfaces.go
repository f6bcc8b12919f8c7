package optimization

import (
	"context"

	"github.com/aristath/allocator/internal/domain"
)

// PriceProvider retrieves closing prices for a set of tickers over a lookback
// period such as "1y". Columns for tickers without data may be absent.
type PriceProvider interface {
	GetClosingPrices(ctx context.Context, tickers []string, period string) (domain.PriceTable, error)
}
