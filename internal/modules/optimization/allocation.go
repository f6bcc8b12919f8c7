package optimization

import (
	"sort"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/pkg/formulas"
)

const unknownSector = "Unknown"

// Holding is one line of the recommended allocation.
type Holding struct {
	Ticker string  `json:"ticker"`
	Name   string  `json:"name"`
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"` // fraction of capital, 4 decimals
	Value  float64 `json:"value"`  // weight × amount, 2 decimals
}

// FormatAllocation turns solver weights into holdings sorted by weight
// descending. Weights at or below floor are omitted, not redistributed.
func FormatAllocation(weights []float64, tickers []string, candidates []domain.Candidate, amount, floor float64) []Holding {
	meta := make(map[string]domain.Candidate, len(candidates))
	for _, c := range candidates {
		if _, seen := meta[c.Ticker]; !seen {
			meta[c.Ticker] = c
		}
	}

	holdings := make([]Holding, 0, len(tickers))
	for i, ticker := range tickers {
		w := weights[i]
		if w <= floor {
			continue
		}

		name, sector := ticker, unknownSector
		if c, ok := meta[ticker]; ok {
			if c.Name != "" {
				name = c.Name
			}
			if c.Sector != "" {
				sector = c.Sector
			}
		}

		holdings = append(holdings, Holding{
			Ticker: ticker,
			Name:   name,
			Sector: sector,
			Weight: formulas.Round(w, 4),
			Value:  formulas.Round(w*amount, 2),
		})
	}

	sort.SliceStable(holdings, func(i, j int) bool {
		return holdings[i].Weight > holdings[j].Weight
	})

	return holdings
}
