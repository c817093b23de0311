package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/fraudlens/internal/analysis"
	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/health"
	"github.com/vietddude/fraudlens/internal/infra/etherscan"
	"github.com/vietddude/fraudlens/internal/infra/scoring"
	"github.com/vietddude/fraudlens/internal/infra/storage"
	"github.com/vietddude/fraudlens/internal/report"
)

// =============================================================================
// Stubs
// =============================================================================

const central = domain.Address("0x00000000000000000000000000000000000000aa")

type stubAnalyzer struct {
	report    *domain.Report
	err       error
	stored    map[string]*domain.Report
	abandoned []domain.AbandonedAddress
	lastAddr  string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, address string) (*domain.Report, error) {
	s.lastAddr = address
	return s.report, s.err
}

func (s *stubAnalyzer) Report(ctx context.Context, id string) (*domain.Report, error) {
	r, ok := s.stored[id]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	return r, nil
}

func (s *stubAnalyzer) RecentReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	var out []domain.ReportSummary
	for _, r := range s.stored {
		out = append(out, r.Summary())
	}
	return out, nil
}

func (s *stubAnalyzer) Abandoned(ctx context.Context) ([]domain.AbandonedAddress, error) {
	return s.abandoned, nil
}

func sampleReport() *domain.Report {
	peer := domain.Address("0x00000000000000000000000000000000000000bb")
	return &domain.Report{
		ID:             "report-1",
		CentralAddress: central,
		Transactions: []domain.Transaction{
			{Hash: "0x1", From: string(central), To: string(peer), Value: "1", TimeStamp: "1700000000", IsError: "0"},
		},
		Predictions: map[domain.Address]domain.PredictionResult{
			central: {Address: central, Label: domain.LabelNonFraud, FraudProbability: 0.1},
		},
		Abandoned: []domain.AbandonedAddress{
			{Address: peer, Reason: domain.AbandonFailureCeiling, Failures: 5},
		},
		Rounds:   5,
		Attempts: 6,
	}
}

func do(t *testing.T, r *Router, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.Engine().ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Analysis endpoints
// =============================================================================

func TestGraph_ReturnsBundle(t *testing.T) {
	a := &stubAnalyzer{report: sampleReport()}
	r := NewRouter(a, nil)

	rec := do(t, r, http.MethodPost, "/graph", fmt.Sprintf(`{"address":"%s"}`, central))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=analysis_results_0x00000000.zip", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "report-1", rec.Header().Get("X-Report-ID"))
	assert.Equal(t, string(central), a.lastAddr)

	body := rec.Body.Bytes()
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, report.CSVFileName)
	assert.Contains(t, names, report.DOTFileName)
}

func TestAnalyze_ReturnsJSON(t *testing.T) {
	r := NewRouter(&stubAnalyzer{report: sampleReport()}, nil)

	rec := do(t, r, http.MethodPost, "/analyze", fmt.Sprintf(`{"address":"%s"}`, central))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID             string                                     `json:"id"`
		PredictedCount int                                        `json:"predicted_count"`
		AbandonedCount int                                        `json:"abandoned_count"`
		Attempts       int                                        `json:"attempts"`
		Predictions    map[domain.Address]domain.PredictionResult `json:"predictions"`
		Abandoned      []domain.AbandonedAddress                  `json:"abandoned"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "report-1", resp.ID)
	assert.Equal(t, 1, resp.PredictedCount)
	assert.Equal(t, 1, resp.AbandonedCount)
	assert.Equal(t, 6, resp.Attempts)
	assert.InDelta(t, 0.1, resp.Predictions[central].FraudProbability, 1e-9)
	require.Len(t, resp.Abandoned, 1)
	assert.Equal(t, domain.AbandonFailureCeiling, resp.Abandoned[0].Reason)
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty address", analysis.ErrEmptyAddress, http.StatusBadRequest},
		{"no transactions", analysis.ErrNoTransactions, http.StatusNotFound},
		{"missing api key", fmt.Errorf("failed to get transactions: %w", etherscan.ErrMissingAPIKey), http.StatusInternalServerError},
		{"upstream", errors.New("etherscan error: NOTOK"), http.StatusBadGateway},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(&stubAnalyzer{err: tt.err}, nil)
			for _, path := range []string{"/graph", "/analyze"} {
				rec := do(t, r, http.MethodPost, path, `{"address":"0xabc"}`)
				assert.Equal(t, tt.want, rec.Code, path)
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestAnalyze_InvalidBody(t *testing.T) {
	r := NewRouter(&stubAnalyzer{report: sampleReport()}, nil)

	rec := do(t, r, http.MethodPost, "/analyze", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// Report endpoints
// =============================================================================

func TestReports(t *testing.T) {
	stored := sampleReport()
	r := NewRouter(&stubAnalyzer{stored: map[string]*domain.Report{stored.ID: stored}}, nil)

	rec := do(t, r, http.MethodGet, "/reports/report-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"report-1"`)

	rec = do(t, r, http.MethodGet, "/reports/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/reports/report-1/bundle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	rec = do(t, r, http.MethodGet, "/reports", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Reports []domain.ReportSummary `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Reports, 1)

	rec = do(t, r, http.MethodGet, "/reports?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAbandoned(t *testing.T) {
	a := &stubAnalyzer{abandoned: sampleReport().Abandoned}
	r := NewRouter(a, nil)

	rec := do(t, r, http.MethodGet, "/abandoned", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"failure_ceiling"`)

	a.abandoned = nil
	rec = do(t, r, http.MethodGet, "/abandoned", "")
	assert.JSONEq(t, `{"abandoned":[]}`, rec.Body.String())
}

// =============================================================================
// Health & metrics
// =============================================================================

type stubProbe struct{ status scoring.HealthStatus }

func (s stubProbe) Health() scoring.HealthStatus { return s.status }

func TestHealth(t *testing.T) {
	r := NewRouter(&stubAnalyzer{}, nil)
	rec := do(t, r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	critical := health.NewMonitor(stubProbe{status: scoring.HealthStatus{Available: false}}, nil, nil, nil)
	r = NewRouter(&stubAnalyzer{}, critical)
	rec = do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, r, http.MethodGet, "/health/detailed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"system_status":"critical"`)
}

func TestMetrics(t *testing.T) {
	r := NewRouter(&stubAnalyzer{}, nil)
	rec := do(t, r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(&stubAnalyzer{}, nil)
	rec := do(t, r, http.MethodOptions, "/analyze", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
