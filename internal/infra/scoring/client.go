package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/metrics"
)

const maxResponseBytes = 1 << 20

// HealthStatus summarises how the scoring service has behaved so far.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
}

// Client calls the scoring endpoint over HTTP.
type Client struct {
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
	log        *slog.Logger

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewClient creates a scoring client. timeout bounds every single call.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: slog.Default().With("component", "scoring"),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}
}

type scoreRequest struct {
	Address string `json:"address"`
}

// scoreResponse accepts both shapes the scoring service has used: the
// graph API ({prediction, probability_fraud}) and the model API
// ({status, confidence_score, percent}).
type scoreResponse struct {
	Address          string   `json:"address"`
	Prediction       string   `json:"prediction"`
	Status           string   `json:"status"`
	ProbabilityFraud *float64 `json:"probability_fraud"`
	ConfidenceScore  *float64 `json:"confidence_score"`
	Percent          *float64 `json:"percent"`
}

// Score makes one scoring call for addr.
func (c *Client) Score(ctx context.Context, addr domain.Address) Outcome {
	start := time.Now()
	out := c.score(ctx, addr)
	latency := time.Since(start)

	if out.OK() {
		c.recordSuccess(latency)
		metrics.ScoringCallsTotal.WithLabelValues("success", "").Inc()
		metrics.ScoringLatency.WithLabelValues("success").Observe(latency.Seconds())
		return out
	}

	c.recordFailure()
	metrics.ScoringCallsTotal.WithLabelValues("failure", string(out.Failure.Reason)).Inc()
	metrics.ScoringLatency.WithLabelValues("failure").Observe(latency.Seconds())
	c.log.Warn("Scoring call failed",
		"address", addr.Short(),
		"reason", out.Failure.Reason,
		"status", out.Failure.StatusCode,
		"error", out.Failure.Err,
	)
	return out
}

func (c *Client) score(ctx context.Context, addr domain.Address) Outcome {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	jsonData, err := json.Marshal(scoreRequest{Address: string(addr)})
	if err != nil {
		return Failed(addr, domain.FailureDecode, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return Failed(addr, domain.FailureTransport, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Failed(addr, ClassifyError(err), fmt.Errorf("score call: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Failed(addr, ClassifyError(err), fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		reason := domain.FailureStatus
		if resp.StatusCode == http.StatusTooManyRequests {
			reason = domain.FailureRateLimited
		}
		out := Failed(addr, reason, fmt.Errorf("http %d: %s", resp.StatusCode, snippet(body)))
		out.Failure.StatusCode = resp.StatusCode
		return out
	}

	var sr scoreResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return Failed(addr, domain.FailureDecode, fmt.Errorf("parse response: %w", err))
	}

	result, err := sr.toResult(addr)
	if err != nil {
		return Failed(addr, domain.FailureDecode, err)
	}
	return Success(result)
}

var (
	errMissingAddress     = errors.New("response has no address")
	errMissingProbability = errors.New("response has neither probability nor confidence")
)

func (r scoreResponse) toResult(requested domain.Address) (domain.PredictionResult, error) {
	echoed := domain.NormalizeAddress(r.Address)
	if echoed == "" {
		return domain.PredictionResult{}, errMissingAddress
	}
	if echoed != requested {
		return domain.PredictionResult{}, fmt.Errorf("response is for %s, requested %s", echoed, requested)
	}

	rawLabel := r.Prediction
	if rawLabel == "" {
		rawLabel = r.Status
	}
	label := domain.ParseLabel(rawLabel)

	prob, err := r.fraudProbability(label)
	if err != nil {
		return domain.PredictionResult{}, err
	}
	if prob < 0 || prob > 1 {
		return domain.PredictionResult{}, fmt.Errorf("fraud probability out of range: %v", prob)
	}

	return domain.PredictionResult{
		Address:          requested,
		Label:            label,
		FraudProbability: prob,
	}, nil
}

// fraudProbability prefers the explicit field; otherwise the confidence is
// the model's score for the predicted class and gets flipped for non-fraud.
func (r scoreResponse) fraudProbability(label domain.Label) (float64, error) {
	if r.ProbabilityFraud != nil {
		return *r.ProbabilityFraud, nil
	}

	var confidence float64
	switch {
	case r.ConfidenceScore != nil:
		confidence = *r.ConfidenceScore
	case r.Percent != nil:
		confidence = *r.Percent / 100
	default:
		return 0, errMissingProbability
	}

	switch label {
	case domain.LabelFraud:
		return confidence, nil
	case domain.LabelNonFraud:
		return 1 - confidence, nil
	default:
		return 0, fmt.Errorf("cannot derive probability for label %q", label)
	}
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 150 {
		return s[:150]
	}
	return s
}

// Health returns the client's view of the scoring service.
func (c *Client) Health() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Close cleans up resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.requestCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Available = true

	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	c.health.Latency = c.totalLatency / time.Duration(c.successCount)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.requestCount++
	c.health.LastFailureAt = time.Now()
	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)

	if c.health.ErrorRate > 0.5 {
		c.health.Available = false
	}
}
