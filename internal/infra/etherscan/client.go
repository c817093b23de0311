package etherscan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/retry"
	"github.com/vietddude/fraudlens/internal/metrics"
)

// ErrMissingAPIKey is returned when the client has no API key configured.
var ErrMissingAPIKey = errors.New("etherscan api key is not set")

// Client fetches transaction lists from an Etherscan-compatible API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retryCfg   retry.Config
	log        *slog.Logger
}

// NewClient creates a new explorer client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retryCfg: retry.Config{
			MaxAttempts:     3,
			InitialDelay:    500 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			BackoffMultiple: 2.0,
		},
		log: slog.Default().With("component", "etherscan"),
	}
}

// SetRetryConfig overrides the retry behaviour for transient errors.
func (c *Client) SetRetryConfig(cfg retry.Config) {
	c.retryCfg = cfg
}

// HasAPIKey reports whether an API key is configured.
func (c *Client) HasAPIKey() bool {
	return c.apiKey != ""
}

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// GetTransactions returns every normal transaction of address, oldest first.
// An address without history yields an empty slice and no error.
func (c *Client) GetTransactions(ctx context.Context, address string) ([]domain.Transaction, error) {
	if !c.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	var txs []domain.Transaction
	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) error {
		var err error
		txs, err = c.fetchTxList(ctx, address)
		return err
	})
	if err != nil {
		metrics.TxSourceCallsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	metrics.TxSourceCallsTotal.WithLabelValues("success").Inc()
	c.log.Info("Fetched transactions", "address", address, "count", len(txs))
	return txs, nil
}

func (c *Client) fetchTxList(ctx context.Context, address string) ([]domain.Transaction, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", address)
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("sort", "asc")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("txlist call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var r txListResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if r.Status != "1" {
		if strings.Contains(strings.ToLower(r.Message), "no transactions found") {
			return []domain.Transaction{}, nil
		}
		// on errors the result field carries the explanation as a string
		var detail string
		_ = json.Unmarshal(r.Result, &detail)
		return nil, fmt.Errorf("etherscan error: %s: %s", r.Message, detail)
	}

	var txs []domain.Transaction
	if err := json.Unmarshal(r.Result, &txs); err != nil {
		return nil, fmt.Errorf("parse transactions: %w", err)
	}
	return txs, nil
}
