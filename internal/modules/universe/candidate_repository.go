// Package universe serves the ranked candidate universe produced by the
// ranking model.
package universe

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog"

	"github.com/aristath/allocator/internal/domain"
)

// predictionRow is one line of the predictions file. Columns not listed are
// ignored; AI_Recommendation is optional.
type predictionRow struct {
	Ticker         string  `csv:"Ticker"`
	Name           string  `csv:"Name"`
	Sector         string  `csv:"Sector"`
	Probability    float64 `csv:"AI_Success_Probability"`
	Recommendation string  `csv:"AI_Recommendation"`
}

// CandidateRepository holds the candidate universe in file order.
// It is loaded once and never modified afterwards.
type CandidateRepository struct {
	candidates []domain.Candidate
	log        zerolog.Logger
}

// LoadCandidateRepository reads the predictions CSV at path.
func LoadCandidateRepository(path string, log zerolog.Logger) (*CandidateRepository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidates file: %w", err)
	}
	defer f.Close()

	repo, err := NewCandidateRepository(f, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return repo, nil
}

// NewCandidateRepository parses predictions CSV from r. Rows without a ticker
// or with a probability outside [0, 100] are skipped.
func NewCandidateRepository(r io.Reader, log zerolog.Logger) (*CandidateRepository, error) {
	log = log.With().Str("repo", "candidates").Logger()

	var rows []predictionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse candidates: %w", err)
	}

	candidates := make([]domain.Candidate, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		ticker := strings.TrimSpace(row.Ticker)
		p := row.Probability
		if ticker == "" || math.IsNaN(p) || p < 0 || p > 100 {
			log.Warn().Int("row", i+1).Str("ticker", ticker).Float64("probability", p).Msg("Skipping invalid candidate row")
			skipped++
			continue
		}

		recommendation := strings.TrimSpace(row.Recommendation)
		if recommendation == "" {
			recommendation = domain.RecommendationFor(p)
		}

		candidates = append(candidates, domain.Candidate{
			Ticker:             ticker,
			Name:               strings.TrimSpace(row.Name),
			Sector:             strings.TrimSpace(row.Sector),
			SuccessProbability: p,
			Recommendation:     recommendation,
		})
	}

	log.Info().Int("candidates", len(candidates)).Int("skipped", skipped).Msg("Loaded candidate universe")

	return &CandidateRepository{candidates: candidates, log: log}, nil
}

// GetAll returns a copy of every candidate in file order.
func (r *CandidateRepository) GetAll() []domain.Candidate {
	out := make([]domain.Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out
}

// Head returns a copy of the first n candidates in file order.
func (r *CandidateRepository) Head(n int) []domain.Candidate {
	if n > len(r.candidates) {
		n = len(r.candidates)
	}
	if n < 0 {
		n = 0
	}
	out := make([]domain.Candidate, n)
	copy(out, r.candidates[:n])
	return out
}

// Len is the number of loaded candidates.
func (r *CandidateRepository) Len() int {
	return len(r.candidates)
}
