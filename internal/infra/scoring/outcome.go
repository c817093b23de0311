package scoring

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

// Scorer scores one address. Implementations report every problem through
// the returned Outcome and never panic.
type Scorer interface {
	Score(ctx context.Context, addr domain.Address) Outcome
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(ctx context.Context, addr domain.Address) Outcome

// Score calls f(ctx, addr).
func (f ScorerFunc) Score(ctx context.Context, addr domain.Address) Outcome {
	return f(ctx, addr)
}

// Outcome is the two-case result of a scoring call: a prediction, or a failure.
type Outcome struct {
	Address domain.Address
	Result  domain.PredictionResult
	Failure *Failure
}

// OK reports whether the call produced a prediction.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Success wraps a prediction.
func Success(result domain.PredictionResult) Outcome {
	return Outcome{Address: result.Address, Result: result}
}

// Failed wraps a failure for addr.
func Failed(addr domain.Address, reason domain.FailureReason, err error) Outcome {
	return Outcome{Address: addr, Failure: &Failure{Reason: reason, Err: err}}
}

// Failure keeps the cause of a failed call for logs and metrics.
type Failure struct {
	Reason     domain.FailureReason
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return string(f.Reason)
	}
	return fmt.Sprintf("%s: %v", f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ClassifyError maps a transport-level error to a failure reason.
func ClassifyError(err error) domain.FailureReason {
	if errors.Is(err, context.Canceled) {
		return domain.FailureCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.FailureTimeout
	}
	return domain.FailureTransport
}
