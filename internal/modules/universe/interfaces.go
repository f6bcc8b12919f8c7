package universe

import "github.com/aristath/allocator/internal/domain"

// CandidateRepositoryInterface defines the read-only view of the candidate
// universe used by the HTTP layer and the CLI.
type CandidateRepositoryInterface interface {
	GetAll() []domain.Candidate
	Head(n int) []domain.Candidate
	Len() int
}

var _ CandidateRepositoryInterface = (*CandidateRepository)(nil)
