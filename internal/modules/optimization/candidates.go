package optimization

import (
	"fmt"
	"sort"

	"github.com/aristath/allocator/internal/domain"
)

// SelectCandidates keeps candidates scoring strictly above threshold, ranks
// them by success probability (ties keep input order) and truncates to
// maxCount. The input slice is not modified.
func SelectCandidates(all []domain.Candidate, threshold float64, maxCount int) ([]domain.Candidate, error) {
	selected := make([]domain.Candidate, 0, len(all))
	for _, c := range all {
		if c.SuccessProbability > threshold {
			selected = append(selected, c)
		}
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].SuccessProbability > selected[j].SuccessProbability
	})

	if maxCount > 0 && len(selected) > maxCount {
		selected = selected[:maxCount]
	}

	if len(selected) < minAssets {
		return nil, fmt.Errorf("%w: %d candidates above probability %.0f, need at least %d",
			ErrInsufficientCandidates, len(selected), threshold, minAssets)
	}

	return selected, nil
}

func tickersOf(candidates []domain.Candidate) []string {
	tickers := make([]string, len(candidates))
	for i, c := range candidates {
		tickers[i] = c.Ticker
	}
	return tickers
}
