package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/storage"
	"github.com/vietddude/fraudlens/internal/prediction"
)

var (
	ErrEmptyAddress   = errors.New("address is required")
	ErrNoTransactions = errors.New("no transactions found for address")
)

// TransactionSource lists the transactions of an address.
type TransactionSource interface {
	GetTransactions(ctx context.Context, address string) ([]domain.Transaction, error)
}

// Fetcher scores a set of addresses.
type Fetcher interface {
	Fetch(ctx context.Context, addrs []domain.Address) (*prediction.Result, error)
}

// Service runs one analysis: transactions, neighbourhood scoring, report.
type Service struct {
	txSource  TransactionSource
	fetcher   Fetcher
	reports   storage.ReportRepository
	abandoned storage.AbandonedRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates an analysis service. reports and abandoned may be nil
// to skip persistence.
func NewService(
	txSource TransactionSource,
	fetcher Fetcher,
	reports storage.ReportRepository,
	abandoned storage.AbandonedRepository,
) *Service {
	return &Service{
		txSource:  txSource,
		fetcher:   fetcher,
		reports:   reports,
		abandoned: abandoned,
		log:       slog.Default().With("component", "analysis"),
		now:       time.Now,
	}
}

// Analyze scores the central address and every counterparty it has
// transacted with. Addresses that could not be scored are listed in the
// report rather than failing the call.
func (s *Service) Analyze(ctx context.Context, address string) (*domain.Report, error) {
	central := domain.NormalizeAddress(address)
	if !central.Valid() {
		return nil, ErrEmptyAddress
	}

	started := s.now()
	s.log.Info("Starting analysis", "address", central)

	txs, err := s.txSource.GetTransactions(ctx, string(central))
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil, ErrNoTransactions
	}

	addrs := prediction.AddressesFromTransactions(string(central), txs)
	s.log.Info("Scoring neighbourhood", "address", central, "transactions", len(txs), "addresses", len(addrs))

	result, err := s.fetcher.Fetch(ctx, addrs)
	if err != nil && result == nil {
		return nil, fmt.Errorf("failed to fetch predictions: %w", err)
	}

	report := &domain.Report{
		ID:             uuid.NewString(),
		CentralAddress: central,
		Transactions:   txs,
		Predictions:    result.Predictions,
		Abandoned:      result.Abandoned,
		Rounds:         result.Rounds,
		Attempts:       result.Attempts,
		StartedAt:      started,
		FinishedAt:     s.now(),
	}
	for i := range report.Abandoned {
		report.Abandoned[i].RunID = report.ID
	}

	if err != nil {
		// cancelled mid-fetch: hand back what was scored, skip persistence
		return report, err
	}

	s.persist(ctx, report)

	if n := len(report.Abandoned); n > 0 {
		s.log.Warn("Analysis finished with unscored addresses",
			"report_id", report.ID,
			"address", central,
			"predictions", len(report.Predictions),
			"abandoned", n,
		)
	} else {
		s.log.Info("Analysis finished",
			"report_id", report.ID,
			"address", central,
			"predictions", len(report.Predictions),
			"duration", report.FinishedAt.Sub(started),
		)
	}

	return report, nil
}

// persist stores the report. Storage errors are logged and swallowed.
func (s *Service) persist(ctx context.Context, report *domain.Report) {
	if s.reports != nil {
		if err := s.reports.Save(ctx, report); err != nil {
			s.log.Error("Failed to save report", "report_id", report.ID, "error", err)
		}
	}
	if s.abandoned == nil {
		return
	}
	if len(report.Predictions) > 0 {
		scored := make([]domain.Address, 0, len(report.Predictions))
		for addr := range report.Predictions {
			scored = append(scored, addr)
		}
		if err := s.abandoned.Resolve(ctx, scored); err != nil {
			s.log.Error("Failed to resolve abandoned addresses", "report_id", report.ID, "error", err)
		}
	}
	if len(report.Abandoned) > 0 {
		if err := s.abandoned.Add(ctx, report.Abandoned); err != nil {
			s.log.Error("Failed to record abandoned addresses", "report_id", report.ID, "error", err)
		}
	}
}

// Report looks up a stored report.
func (s *Service) Report(ctx context.Context, id string) (*domain.Report, error) {
	if s.reports == nil {
		return nil, storage.ErrReportNotFound
	}
	return s.reports.Get(ctx, id)
}

// RecentReports lists stored reports, newest first.
func (s *Service) RecentReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	if s.reports == nil {
		return []domain.ReportSummary{}, nil
	}
	return s.reports.ListRecent(ctx, limit)
}

// Abandoned lists addresses that could not be scored in earlier runs.
func (s *Service) Abandoned(ctx context.Context) ([]domain.AbandonedAddress, error) {
	if s.abandoned == nil {
		return []domain.AbandonedAddress{}, nil
	}
	return s.abandoned.GetAll(ctx)
}
