package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/storage"
)

// ReportRepo implements storage.ReportRepository using PostgreSQL.
type ReportRepo struct {
	db *DB
}

// NewReportRepo creates a new PostgreSQL report repository.
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

type reportRow struct {
	ID               string    `db:"id"`
	CentralAddress   string    `db:"central_address"`
	TransactionCount int       `db:"transaction_count"`
	PredictedCount   int       `db:"predicted_count"`
	AbandonedCount   int       `db:"abandoned_count"`
	Rounds           int       `db:"rounds"`
	Attempts         int       `db:"attempts"`
	Transactions     []byte    `db:"transactions"`
	Abandoned        []byte    `db:"abandoned"`
	StartedAt        time.Time `db:"started_at"`
	FinishedAt       time.Time `db:"finished_at"`
}

type predictionRow struct {
	Address          string  `db:"address"`
	Label            string  `db:"label"`
	FraudProbability float64 `db:"fraud_probability"`
}

// Save stores the report and its predictions in one transaction.
func (r *ReportRepo) Save(ctx context.Context, report *domain.Report) error {
	txs, err := json.Marshal(nonNil(report.Transactions))
	if err != nil {
		return fmt.Errorf("failed to marshal transactions: %w", err)
	}
	abandoned, err := json.Marshal(nonNil(report.Abandoned))
	if err != nil {
		return fmt.Errorf("failed to marshal abandoned addresses: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	summary := report.Summary()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO reports (id, central_address, transaction_count, predicted_count, abandoned_count,
			rounds, attempts, transactions, abandoned, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			predicted_count = EXCLUDED.predicted_count,
			abandoned_count = EXCLUDED.abandoned_count,
			rounds = EXCLUDED.rounds,
			attempts = EXCLUDED.attempts,
			abandoned = EXCLUDED.abandoned,
			finished_at = EXCLUDED.finished_at
	`,
		report.ID,
		string(report.CentralAddress),
		summary.TransactionCount,
		summary.PredictedCount,
		summary.AbandonedCount,
		report.Rounds,
		report.Attempts,
		string(txs),
		string(abandoned),
		report.StartedAt,
		report.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	for addr, p := range report.Predictions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO predictions (report_id, address, label, fraud_probability)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (report_id, address) DO UPDATE SET
				label = EXCLUDED.label,
				fraud_probability = EXCLUDED.fraud_probability
		`, report.ID, string(addr), string(p.Label), p.FraudProbability)
		if err != nil {
			return fmt.Errorf("failed to save prediction for %s: %w", addr, err)
		}
	}

	return tx.Commit()
}

// Get retrieves a report by ID.
func (r *ReportRepo) Get(ctx context.Context, id string) (*domain.Report, error) {
	var row reportRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, central_address, transaction_count, predicted_count, abandoned_count,
			rounds, attempts, transactions, abandoned, started_at, finished_at
		FROM reports WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report := &domain.Report{
		ID:             row.ID,
		CentralAddress: domain.Address(row.CentralAddress),
		Rounds:         row.Rounds,
		Attempts:       row.Attempts,
		StartedAt:      row.StartedAt,
		FinishedAt:     row.FinishedAt,
		Predictions:    make(map[domain.Address]domain.PredictionResult),
	}
	if err := json.Unmarshal(row.Transactions, &report.Transactions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
	}
	if err := json.Unmarshal(row.Abandoned, &report.Abandoned); err != nil {
		return nil, fmt.Errorf("failed to unmarshal abandoned addresses: %w", err)
	}

	var preds []predictionRow
	if err := r.db.SelectContext(ctx, &preds, `
		SELECT address, label, fraud_probability FROM predictions WHERE report_id = $1
	`, id); err != nil {
		return nil, fmt.Errorf("failed to get predictions: %w", err)
	}
	for _, p := range preds {
		addr := domain.Address(p.Address)
		report.Predictions[addr] = domain.PredictionResult{
			Address:          addr,
			Label:            domain.Label(p.Label),
			FraudProbability: p.FraudProbability,
		}
	}

	return report, nil
}

// ListRecent returns report summaries, newest first.
func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []domain.ReportSummary
	err := r.db.SelectContext(ctx, &out, `
		SELECT id, central_address, transaction_count, predicted_count, abandoned_count, rounds, finished_at
		FROM reports
		ORDER BY finished_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return out, nil
}

// DeleteOlderThan removes reports finished before cutoff. Predictions
// cascade.
func (r *ReportRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reports WHERE finished_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old reports: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted reports: %w", err)
	}
	return int(n), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
