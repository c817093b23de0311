package domain

import "time"

// AbandonedAddress is an address the fetcher gave up on during one run.
type AbandonedAddress struct {
	Address     Address       `json:"address"`
	Reason      AbandonReason `json:"reason"`
	Failures    int           `json:"failures"`
	LastFailure FailureReason `json:"last_failure,omitempty"`
	Error       string        `json:"error_msg,omitempty"`
	RunID       string        `json:"run_id,omitempty"`
	AbandonedAt time.Time     `json:"abandoned_at"`
}

// AbandonReason says which budget ran out.
type AbandonReason string

const (
	AbandonFailureCeiling AbandonReason = "failure_ceiling"
	AbandonRoundBudget    AbandonReason = "round_budget"
	AbandonCancelled      AbandonReason = "cancelled"
)

// FailureReason classifies a single failed scoring call. It is kept for
// logs and metrics only; retries never depend on it.
type FailureReason string

const (
	FailureTimeout     FailureReason = "timeout"
	FailureTransport   FailureReason = "transport"
	FailureStatus      FailureReason = "status"
	FailureRateLimited FailureReason = "rate_limited"
	FailureDecode      FailureReason = "decode"
	FailurePanic       FailureReason = "panic"
	FailureCancelled   FailureReason = "cancelled"
)
