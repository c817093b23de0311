package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/fraudlens/internal/infra/storage"
)

// Pruner deletes old reports based on retention policy.
type Pruner struct {
	retention time.Duration
	reports   storage.ReportRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, reports storage.ReportRepository) *Pruner {
	return &Pruner{
		retention: retention,
		reports:   reports,
		log:       slog.Default().With("component", "pruner"),
		now:       time.Now,
	}
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check every 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)

	n, err := p.reports.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.log.Error("Failed to prune reports", "cutoff", cutoff, "error", err)
		return
	}
	if n > 0 {
		p.log.Info("Pruned old reports", "deleted", n, "cutoff", cutoff)
	}
}
