package universe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/domain"
)

const predictionsCSV = `Ticker,Name,Sector,ROE,AI_Success_Probability,AI_Recommendation
RELIANCE.NS,Reliance Industries,Energy,9.2,91.5,Strong Buy
TCS.NS,Tata Consultancy,Technology,45.1,84.25,
,Missing Ticker,Unknown,1,70,Buy
INFY.NS, Infosys ,Technology,31.4,55,
BAD.NS,Bad Probability,Unknown,3,140,
`

func TestNewCandidateRepository(t *testing.T) {
	repo, err := NewCandidateRepository(strings.NewReader(predictionsCSV), zerolog.Nop())
	require.NoError(t, err)

	all := repo.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, 3, repo.Len())

	assert.Equal(t, domain.Candidate{
		Ticker:             "RELIANCE.NS",
		Name:               "Reliance Industries",
		Sector:             "Energy",
		SuccessProbability: 91.5,
		Recommendation:     "Strong Buy",
	}, all[0])
	assert.Equal(t, "TCS.NS", all[1].Ticker)
	assert.Equal(t, 84.25, all[1].SuccessProbability)
	assert.Equal(t, domain.RecommendationStrongBuy, all[1].Recommendation, "derived when the column is empty")
	assert.Equal(t, "Infosys", all[2].Name)
	assert.Equal(t, domain.RecommendationHold, all[2].Recommendation)
}

func TestNewCandidateRepository_WithoutRecommendationColumn(t *testing.T) {
	csv := "Ticker,Name,Sector,AI_Success_Probability\nAAA,Alpha,Energy,65\n"

	repo, err := NewCandidateRepository(strings.NewReader(csv), zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, 1, repo.Len())
	assert.Equal(t, domain.RecommendationBuy, repo.GetAll()[0].Recommendation)
}

func TestCandidateRepository_Head(t *testing.T) {
	repo, err := NewCandidateRepository(strings.NewReader(predictionsCSV), zerolog.Nop())
	require.NoError(t, err)

	head := repo.Head(2)
	require.Len(t, head, 2)
	assert.Equal(t, "RELIANCE.NS", head[0].Ticker)
	assert.Equal(t, "TCS.NS", head[1].Ticker)

	assert.Len(t, repo.Head(50), 3)
	assert.Empty(t, repo.Head(-1))
}

func TestCandidateRepository_ReturnsCopies(t *testing.T) {
	repo, err := NewCandidateRepository(strings.NewReader(predictionsCSV), zerolog.Nop())
	require.NoError(t, err)

	all := repo.GetAll()
	all[0].Ticker = "MUTATED"
	head := repo.Head(1)
	head[0].SuccessProbability = 0

	fresh := repo.GetAll()
	assert.Equal(t, "RELIANCE.NS", fresh[0].Ticker)
	assert.Equal(t, 91.5, fresh[0].SuccessProbability)
}

func TestLoadCandidateRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	require.NoError(t, os.WriteFile(path, []byte(predictionsCSV), 0o600))

	repo, err := LoadCandidateRepository(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, repo.Len())

	_, err = LoadCandidateRepository(filepath.Join(t.TempDir(), "missing.csv"), zerolog.Nop())
	assert.Error(t, err)
}
