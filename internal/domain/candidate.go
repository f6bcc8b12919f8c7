// Package domain holds the value types shared between the candidate universe,
// the market data provider and the optimization engine.
package domain

// Recommendation labels derived from the success probability.
const (
	RecommendationStrongBuy = "Strong Buy"
	RecommendationBuy       = "Buy"
	RecommendationHold      = "Hold"
	RecommendationAvoid     = "Avoid"
)

// Candidate is a security produced by the ranking collaborator.
// The engine only reads and ranks candidates, it never mutates them.
type Candidate struct {
	Ticker             string  `json:"ticker"`
	Name               string  `json:"name"`
	Sector             string  `json:"sector"`
	SuccessProbability float64 `json:"success_probability"` // 0-100
	Recommendation     string  `json:"recommendation,omitempty"`
}

// RecommendationFor maps a success probability to its label.
func RecommendationFor(probability float64) string {
	switch {
	case probability >= 80:
		return RecommendationStrongBuy
	case probability >= 60:
		return RecommendationBuy
	case probability >= 40:
		return RecommendationHold
	default:
		return RecommendationAvoid
	}
}
