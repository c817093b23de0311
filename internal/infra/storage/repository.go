package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

var (
	// ErrReportNotFound is returned when a report doesn't exist
	ErrReportNotFound = errors.New("report not found")
)

// ReportRepository handles analysis report storage
type ReportRepository interface {
	// Save stores a finished report with its predictions and abandoned addresses
	Save(ctx context.Context, report *domain.Report) error

	// Get retrieves a report by ID
	Get(ctx context.Context, id string) (*domain.Report, error)

	// ListRecent returns the newest report summaries first
	ListRecent(ctx context.Context, limit int) ([]domain.ReportSummary, error)

	// DeleteOlderThan removes reports finished before the cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AbandonedRepository keeps addresses the fetcher gave up on, for diagnostics
type AbandonedRepository interface {
	// Add records abandoned addresses
	Add(ctx context.Context, abandoned []domain.AbandonedAddress) error

	// GetAll returns recorded addresses, most failures first
	GetAll(ctx context.Context) ([]domain.AbandonedAddress, error)

	// Count returns the number of recorded addresses
	Count(ctx context.Context) (int, error)

	// Resolve drops addresses that have since been scored
	Resolve(ctx context.Context, addrs []domain.Address) error
}

// Pinger is implemented by backends that can report their connectivity
type Pinger interface {
	Ping(ctx context.Context) error
}
