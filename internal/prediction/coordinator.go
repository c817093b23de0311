package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/scoring"
	"github.com/vietddude/fraudlens/internal/metrics"
)

// ErrNoAddresses is returned when the input holds no valid scoring target.
var ErrNoAddresses = errors.New("no addresses to score")

// Config defines the retry budget of a fetch.
type Config struct {
	Permits        int
	MaxRounds      int
	FailureCeiling int
	BaseDelay      time.Duration
	MaxDelay       time.Duration // 0 = uncapped
}

// DefaultConfig provides the values the scoring service was tuned against.
var DefaultConfig = Config{
	Permits:        4,
	MaxRounds:      5,
	FailureCeiling: 5,
	BaseDelay:      5 * time.Second,
}

func (c Config) withDefaults() Config {
	if c.Permits < 1 {
		c.Permits = DefaultConfig.Permits
	}
	if c.MaxRounds < 1 {
		c.MaxRounds = DefaultConfig.MaxRounds
	}
	if c.FailureCeiling < 1 {
		c.FailureCeiling = DefaultConfig.FailureCeiling
	}
	if c.BaseDelay < 0 {
		c.BaseDelay = 0
	}
	return c
}

// Result is what a fetch hands to the renderers.
type Result struct {
	Predictions map[domain.Address]domain.PredictionResult
	Abandoned   []domain.AbandonedAddress
	Rounds      int
	Attempts    int
}

// Coordinator drives scoring calls over a working set in bounded rounds.
// It is safe to share between concurrent fetches; all per-fetch state is
// local to Fetch.
type Coordinator struct {
	cfg     Config
	scorer  scoring.Scorer
	limiter *Limiter
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLimiter shares an existing limiter instead of creating one from Permits.
func WithLimiter(l *Limiter) Option {
	return func(c *Coordinator) { c.limiter = l }
}

// WithSleep replaces the inter-round wait.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Coordinator) { c.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

// NewCoordinator creates a coordinator calling scorer.
func NewCoordinator(cfg Config, scorer scoring.Scorer, opts ...Option) *Coordinator {
	c := &Coordinator{
		cfg:    cfg.withDefaults(),
		scorer: scorer,
		sleep:  sleepCtx,
		log:    slog.Default().With("component", "prediction"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewLimiter(c.cfg.Permits)
	}
	return c
}

// Config returns the effective configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// Limiter returns the limiter gating this coordinator's calls.
func (c *Coordinator) Limiter() *Limiter {
	return c.limiter
}

// Fetch scores every unique address in addrs. Failed addresses are retried
// in later rounds until they succeed, hit the failure ceiling, or the round
// budget runs out; given-up addresses are reported in Result.Abandoned and
// do not make Fetch fail.
//
// The only errors are ErrNoAddresses and ctx's error. On cancellation the
// partial result is returned alongside ctx.Err().
func (c *Coordinator) Fetch(ctx context.Context, addrs []domain.Address) (*Result, error) {
	working := UniqueAddresses(addrs)
	if len(working) == 0 {
		return nil, ErrNoAddresses
	}

	agg := NewAggregator()
	failures := make(map[domain.Address]int, len(working))
	lastFailure := make(map[domain.Address]*scoring.Failure)
	rounds, attempts := 0, 0

	abandon := func(addrs []domain.Address, reason domain.AbandonReason) {
		now := time.Now()
		for _, addr := range addrs {
			ab := domain.AbandonedAddress{
				Address:     addr,
				Reason:      reason,
				Failures:    failures[addr],
				AbandonedAt: now,
			}
			if f := lastFailure[addr]; f != nil {
				ab.LastFailure = f.Reason
				ab.Error = f.Error()
			}
			agg.MarkAbandoned(ab)
			metrics.AddressesAbandoned.WithLabelValues(string(reason)).Inc()
		}
	}

	c.log.Info("Starting prediction fetch",
		"addresses", len(working),
		"permits", c.limiter.Permits(),
		"max_rounds", c.cfg.MaxRounds,
		"failure_ceiling", c.cfg.FailureCeiling,
	)

	var fetchErr error
	for round := 1; len(working) > 0; round++ {
		if round > c.cfg.MaxRounds {
			abandon(working, domain.AbandonRoundBudget)
			break
		}

		if round > 1 {
			delay := c.delay(round - 1)
			c.log.Info("Retrying failed addresses", "round", round, "remaining", len(working), "delay", delay)
			if err := c.sleep(ctx, delay); err != nil {
				abandon(working, domain.AbandonCancelled)
				fetchErr = err
				break
			}
		}

		outcomes := c.runRound(ctx, working)
		rounds = round
		attempts += len(working)

		next := make([]domain.Address, 0, len(working))
		var exhausted []domain.Address
		succeeded := 0
		for i, addr := range working {
			out := outcomes[i]
			if out.OK() {
				agg.Upsert(addr, out.Result)
				succeeded++
				continue
			}

			failures[addr]++
			lastFailure[addr] = out.Failure
			if failures[addr] >= c.cfg.FailureCeiling {
				exhausted = append(exhausted, addr)
				continue
			}
			next = append(next, addr)
		}
		abandon(exhausted, domain.AbandonFailureCeiling)

		c.log.Info("Prediction round finished",
			"round", round,
			"attempted", len(working),
			"succeeded", succeeded,
			"failed", len(working)-succeeded,
			"abandoned", len(exhausted),
			"remaining", len(next),
		)
		working = next
	}

	snap := agg.Snapshot()
	metrics.FetchRounds.Observe(float64(rounds))

	if n := len(snap.Abandoned); n > 0 {
		c.log.Warn("Some addresses could not be scored", "abandoned", n, "rounds", rounds)
	} else {
		c.log.Info("All addresses scored", "predictions", len(snap.Predictions), "rounds", rounds)
	}

	return &Result{
		Predictions: snap.Predictions,
		Abandoned:   snap.Abandoned,
		Rounds:      rounds,
		Attempts:    attempts,
	}, fetchErr
}

// runRound scores every address concurrently and waits for all of them.
// outcomes[i] belongs to working[i].
func (c *Coordinator) runRound(ctx context.Context, working []domain.Address) []scoring.Outcome {
	outcomes := make([]scoring.Outcome, len(working))

	var g errgroup.Group
	for i, addr := range working {
		g.Go(func() error {
			outcomes[i] = c.scoreOne(ctx, addr)
			// never return an error: one failed call must not cancel its siblings
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (c *Coordinator) scoreOne(ctx context.Context, addr domain.Address) (out scoring.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = scoring.Failed(addr, domain.FailurePanic, fmt.Errorf("scorer panic: %v", r))
		}
	}()

	err := c.limiter.Do(ctx, func() {
		out = c.scorer.Score(ctx, addr)
	})
	if err != nil {
		return scoring.Failed(addr, scoring.ClassifyError(err), fmt.Errorf("acquire permit: %w", err))
	}

	out.Address = addr
	if out.OK() {
		out.Result.Address = addr
	}
	return out
}

// delay grows linearly with the number of completed rounds.
func (c *Coordinator) delay(completed int) time.Duration {
	d := c.cfg.BaseDelay * time.Duration(completed)
	if c.cfg.MaxDelay > 0 && d > c.cfg.MaxDelay {
		d = c.cfg.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
