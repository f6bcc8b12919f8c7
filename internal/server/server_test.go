package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/allocator/internal/domain"
	"github.com/aristath/allocator/internal/modules/optimization"
	"github.com/aristath/allocator/internal/modules/universe"
)

type stubOptimizer struct{}

func (stubOptimizer) Optimize(ctx context.Context, candidates []domain.Candidate, amount, targetReturn float64) (*optimization.Result, error) {
	return &optimization.Result{Status: optimization.ResultSuccess, Portfolio: []optimization.Holding{}}, nil
}

func newTestServer(t *testing.T) *Server {
	repo, err := universe.NewCandidateRepository(
		strings.NewReader("Ticker,Name,Sector,AI_Success_Probability\nAAA,Alpha,Energy,90\nBBB,Beta,Energy,85\n"),
		zerolog.Nop(),
	)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	optimization.NewServiceMetrics(reg)

	return New(Config{
		Log:        zerolog.Nop(),
		Port:       0,
		DevMode:    true,
		Optimizer:  stubOptimizer{},
		Candidates: repo,
		Gatherer:   reg,
	})
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/", "/health"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, `{"status":"online"}`, rec.Body.String(), path)
	}
}

func TestServer_APIRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stocks", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ticker":"AAA"`)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/optimize", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"SUCCESS"`)
}

func TestServer_Metrics(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "allocator_gmvp_fallbacks_total")
}

func TestServer_CORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/optimize", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
