package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

// AbandonedRepo implements storage.AbandonedRepository using PostgreSQL.
type AbandonedRepo struct {
	db *DB
}

// NewAbandonedRepo creates a new PostgreSQL abandoned address repository.
func NewAbandonedRepo(db *DB) *AbandonedRepo {
	return &AbandonedRepo{db: db}
}

type abandonedRow struct {
	Address     string    `db:"address"`
	Reason      string    `db:"reason"`
	Failures    int       `db:"failures"`
	LastFailure string    `db:"last_failure"`
	ErrorMsg    string    `db:"error_msg"`
	RunID       string    `db:"run_id"`
	AbandonedAt time.Time `db:"abandoned_at"`
}

// Add upserts abandoned addresses; the latest run wins.
func (r *AbandonedRepo) Add(ctx context.Context, abandoned []domain.AbandonedAddress) error {
	if len(abandoned) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO abandoned_addresses (address, reason, failures, last_failure, error_msg, run_id, abandoned_at)
		VALUES (:address, :reason, :failures, :last_failure, :error_msg, :run_id, :abandoned_at)
		ON CONFLICT (address) DO UPDATE SET
			reason = EXCLUDED.reason,
			failures = EXCLUDED.failures,
			last_failure = EXCLUDED.last_failure,
			error_msg = EXCLUDED.error_msg,
			run_id = EXCLUDED.run_id,
			abandoned_at = EXCLUDED.abandoned_at
	`
	for _, a := range abandoned {
		at := a.AbandonedAt
		if at.IsZero() {
			at = time.Now()
		}
		row := abandonedRow{
			Address:     string(a.Address),
			Reason:      string(a.Reason),
			Failures:    a.Failures,
			LastFailure: string(a.LastFailure),
			ErrorMsg:    a.Error,
			RunID:       a.RunID,
			AbandonedAt: at,
		}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("failed to add abandoned address %s: %w", a.Address, err)
		}
	}

	return tx.Commit()
}

// GetAll returns abandoned addresses, most failures first.
func (r *AbandonedRepo) GetAll(ctx context.Context) ([]domain.AbandonedAddress, error) {
	var rows []abandonedRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT address, reason, failures, last_failure, error_msg, run_id, abandoned_at
		FROM abandoned_addresses
		ORDER BY failures DESC, address ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get abandoned addresses: %w", err)
	}

	out := make([]domain.AbandonedAddress, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.AbandonedAddress{
			Address:     domain.Address(row.Address),
			Reason:      domain.AbandonReason(row.Reason),
			Failures:    row.Failures,
			LastFailure: domain.FailureReason(row.LastFailure),
			Error:       row.ErrorMsg,
			RunID:       row.RunID,
			AbandonedAt: row.AbandonedAt,
		})
	}
	return out, nil
}

// Count returns the number of abandoned addresses.
func (r *AbandonedRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM abandoned_addresses`); err != nil {
		return 0, fmt.Errorf("failed to count abandoned addresses: %w", err)
	}
	return count, nil
}

// Resolve deletes addresses that have since been scored.
func (r *AbandonedRepo) Resolve(ctx context.Context, addrs []domain.Address) error {
	if len(addrs) == 0 {
		return nil
	}

	args := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		args = append(args, string(addr))
	}
	query, params, err := sqlx.In(`DELETE FROM abandoned_addresses WHERE address IN (?)`, args)
	if err != nil {
		return fmt.Errorf("failed to build resolve query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), params...); err != nil {
		return fmt.Errorf("failed to resolve abandoned addresses: %w", err)
	}
	return nil
}
