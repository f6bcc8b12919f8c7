package domain

import (
	"math"
	"sort"
	"time"
)

// PriceTable is a table of closing prices indexed by date, one column per ticker.
// Dates are ascending. Every column has len(Dates) entries and NaN marks a
// missing observation. Tickers without any data may be absent entirely.
type PriceTable struct {
	Dates  []time.Time
	Closes map[string][]float64
}

// NewPriceTable builds a table from per-ticker (date, close) observations,
// aligning every series on the union of dates.
func NewPriceTable(series map[string]map[time.Time]float64) PriceTable {
	dateSet := make(map[time.Time]struct{})
	for _, obs := range series {
		for d := range obs {
			dateSet[d] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	closes := make(map[string][]float64, len(series))
	for ticker, obs := range series {
		if len(obs) == 0 {
			continue
		}
		col := make([]float64, len(dates))
		for i, d := range dates {
			if p, ok := obs[d]; ok {
				col[i] = p
			} else {
				col[i] = math.NaN()
			}
		}
		closes[ticker] = col
	}

	return PriceTable{Dates: dates, Closes: closes}
}

// Column returns the closes for a ticker and whether the column exists.
func (t PriceTable) Column(ticker string) ([]float64, bool) {
	col, ok := t.Closes[ticker]
	return col, ok
}

// Rows is the number of dates in the table.
func (t PriceTable) Rows() int {
	return len(t.Dates)
}
