package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vietddude/fraudlens/internal/analysis"
	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/etherscan"
	"github.com/vietddude/fraudlens/internal/infra/storage"
	"github.com/vietddude/fraudlens/internal/report"
)

// Analyzer runs and looks up analyses.
type Analyzer interface {
	Analyze(ctx context.Context, address string) (*domain.Report, error)
	Report(ctx context.Context, id string) (*domain.Report, error)
	RecentReports(ctx context.Context, limit int) ([]domain.ReportSummary, error)
	Abandoned(ctx context.Context) ([]domain.AbandonedAddress, error)
}

// Handler handles analysis API requests
type Handler struct {
	analyzer Analyzer
}

// NewHandler creates a new Handler
func NewHandler(analyzer Analyzer) *Handler {
	return &Handler{analyzer: analyzer}
}

type addressRequest struct {
	Address string `json:"address"`
}

type analyzeResponse struct {
	domain.ReportSummary
	Attempts    int                                        `json:"attempts"`
	Predictions map[domain.Address]domain.PredictionResult `json:"predictions"`
	Abandoned   []domain.AbandonedAddress                  `json:"abandoned"`
}

func newAnalyzeResponse(r *domain.Report) analyzeResponse {
	abandoned := r.Abandoned
	if abandoned == nil {
		abandoned = []domain.AbandonedAddress{}
	}
	return analyzeResponse{
		ReportSummary: r.Summary(),
		Attempts:      r.Attempts,
		Predictions:   r.Predictions,
		Abandoned:     abandoned,
	}
}

// Graph runs an analysis and returns the zip bundle
// POST /graph
func (h *Handler) Graph(c *gin.Context) {
	r, ok := h.analyze(c)
	if !ok {
		return
	}
	h.writeBundle(c, r)
}

// Analyze runs an analysis and returns it as JSON
// POST /analyze
func (h *Handler) Analyze(c *gin.Context) {
	r, ok := h.analyze(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newAnalyzeResponse(r))
}

// GetReport returns a stored report
// GET /reports/:id
func (h *Handler) GetReport(c *gin.Context) {
	r, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newAnalyzeResponse(r))
}

// GetBundle returns the zip bundle of a stored report
// GET /reports/:id/bundle
func (h *Handler) GetBundle(c *gin.Context) {
	r, ok := h.lookup(c)
	if !ok {
		return
	}
	h.writeBundle(c, r)
}

// ListReports returns the most recent reports
// GET /reports?limit=20
func (h *Handler) ListReports(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	reports, err := h.analyzer.RecentReports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reports == nil {
		reports = []domain.ReportSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// ListAbandoned returns addresses that could not be scored
// GET /abandoned
func (h *Handler) ListAbandoned(c *gin.Context) {
	abandoned, err := h.analyzer.Abandoned(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if abandoned == nil {
		abandoned = []domain.AbandonedAddress{}
	}
	c.JSON(http.StatusOK, gin.H{"abandoned": abandoned})
}

func (h *Handler) analyze(c *gin.Context) (*domain.Report, bool) {
	var req addressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return nil, false
	}

	r, err := h.analyzer.Analyze(c.Request.Context(), req.Address)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return nil, false
	}
	return r, true
}

func (h *Handler) lookup(c *gin.Context) (*domain.Report, bool) {
	r, err := h.analyzer.Report(c.Request.Context(), c.Param("id"))
	if errors.Is(err, storage.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return r, true
}

func (h *Handler) writeBundle(c *gin.Context, r *domain.Report) {
	var buf bytes.Buffer
	if err := report.WriteBundle(&buf, r); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+report.BundleFileName(r.CentralAddress))
	c.Header("X-Report-ID", r.ID)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// statusFor maps analysis errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, analysis.ErrEmptyAddress):
		return http.StatusBadRequest
	case errors.Is(err, analysis.ErrNoTransactions):
		return http.StatusNotFound
	case errors.Is(err, etherscan.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
