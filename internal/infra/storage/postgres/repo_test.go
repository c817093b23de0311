package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/storage"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &DB{DB: sqlx.NewDb(conn, "postgres")}, mock
}

func checkExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

var reportColumns = []string{
	"id", "central_address", "transaction_count", "predicted_count", "abandoned_count",
	"rounds", "attempts", "transactions", "abandoned", "started_at", "finished_at",
}

func TestReportRepo_Save(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepo(db)

	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	finished := started.Add(time.Minute)
	report := &domain.Report{
		ID:             "r1",
		CentralAddress: "0xaa",
		Predictions: map[domain.Address]domain.PredictionResult{
			"0xbb": {Address: "0xbb", Label: domain.LabelFraud, FraudProbability: 0.9},
		},
		Rounds:     2,
		Attempts:   3,
		StartedAt:  started,
		FinishedAt: finished,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports .*"+regexp.QuoteMeta("ON CONFLICT (id) DO UPDATE")).
		WithArgs("r1", "0xaa", 0, 1, 0, 2, 3, "[]", "[]", started, finished).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO predictions .*"+regexp.QuoteMeta("ON CONFLICT (report_id, address) DO UPDATE")).
		WithArgs("r1", "0xbb", "fraud", 0.9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), report); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	checkExpectations(t, mock)
}

func TestReportRepo_SaveRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO reports").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), &domain.Report{ID: "r1", CentralAddress: "0xaa"})
	if err == nil {
		t.Fatal("Save() should fail when the insert fails")
	}
	checkExpectations(t, mock)
}

func TestReportRepo_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepo(db)

	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports WHERE id = $1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows(reportColumns).AddRow(
			"r1", "0xaa", 1, 1, 1, 2, 4,
			[]byte(`[{"hash":"0x01","from":"0xaa","to":"0xbb"}]`),
			[]byte(`[{"address":"0xcc","reason":"failure_ceiling","failures":5}]`),
			started, started.Add(time.Minute),
		))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT address, label, fraud_probability FROM predictions WHERE report_id = $1")).
		WithArgs("r1").
		WillReturnRows(sqlmock.NewRows([]string{"address", "label", "fraud_probability"}).
			AddRow("0xbb", "fraud", 0.8))

	report, err := repo.Get(context.Background(), "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if report.CentralAddress != "0xaa" || report.Rounds != 2 || report.Attempts != 4 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Transactions) != 1 || report.Transactions[0].Hash != "0x01" {
		t.Errorf("transactions = %+v", report.Transactions)
	}
	if len(report.Abandoned) != 1 || report.Abandoned[0].Reason != domain.AbandonFailureCeiling {
		t.Errorf("abandoned = %+v", report.Abandoned)
	}
	p, ok := report.Predictions["0xbb"]
	if !ok || p.Label != domain.LabelFraud || p.FraudProbability != 0.8 || p.Address != "0xbb" {
		t.Errorf("prediction = %+v, found %v", p, ok)
	}
	checkExpectations(t, mock)
}

func TestReportRepo_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepo(db)

	mock.ExpectQuery("FROM reports WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(reportColumns))

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, storage.ErrReportNotFound) {
		t.Errorf("Get() error = %v, want ErrReportNotFound", err)
	}
	checkExpectations(t, mock)
}

func TestReportRepo_ListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepo(db)

	finished := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reports ORDER BY finished_at DESC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "central_address", "transaction_count", "predicted_count", "abandoned_count", "rounds", "finished_at",
		}).
			AddRow("r2", "0xbb", 4, 3, 1, 2, finished).
			AddRow("r1", "0xaa", 1, 1, 0, 1, finished.Add(-time.Hour)))

	out, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("ListRecent() returned %d summaries, want 2", len(out))
	}
	want := domain.ReportSummary{
		ID: "r2", CentralAddress: "0xbb", TransactionCount: 4, PredictedCount: 3,
		AbandonedCount: 1, Rounds: 2, FinishedAt: finished,
	}
	if out[0] != want {
		t.Errorf("out[0] = %+v, want %+v", out[0], want)
	}
	checkExpectations(t, mock)
}

func TestReportRepo_DeleteOlderThan(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewReportRepo(db)

	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports WHERE finished_at < $1")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteOlderThan() error = %v", err)
	}
	if n != 3 {
		t.Errorf("DeleteOlderThan() = %d, want 3", n)
	}
	checkExpectations(t, mock)
}

func TestAbandonedRepo_Add(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAbandonedRepo(db)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO abandoned_addresses .*"+regexp.QuoteMeta("ON CONFLICT (address) DO UPDATE")).
		WithArgs("0x1", "failure_ceiling", 5, "timeout", "deadline exceeded", "r1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Add(context.Background(), []domain.AbandonedAddress{{
		Address:     "0x1",
		Reason:      domain.AbandonFailureCeiling,
		Failures:    5,
		LastFailure: domain.FailureTimeout,
		Error:       "deadline exceeded",
		RunID:       "r1",
		AbandonedAt: at,
	}})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	checkExpectations(t, mock)
}

func TestAbandonedRepo_GetAllAndCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAbandonedRepo(db)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM abandoned_addresses ORDER BY failures DESC, address ASC")).
		WillReturnRows(sqlmock.NewRows([]string{
			"address", "reason", "failures", "last_failure", "error_msg", "run_id", "abandoned_at",
		}).
			AddRow("0x2", "failure_ceiling", 5, "status", "status 500", "r1", at).
			AddRow("0x1", "round_budget", 2, "", "", "r1", at))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM abandoned_addresses")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	all, err := repo.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 2 || all[0].Address != "0x2" || all[0].LastFailure != domain.FailureStatus {
		t.Errorf("GetAll() = %+v", all)
	}
	if all[1].Reason != domain.AbandonRoundBudget {
		t.Errorf("all[1].Reason = %q", all[1].Reason)
	}

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	checkExpectations(t, mock)
}

func TestAbandonedRepo_Resolve(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAbandonedRepo(db)

	mock.ExpectExec(`DELETE FROM abandoned_addresses WHERE address IN \(\$1,\s*\$2\)`).
		WithArgs("0x1", "0x2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Resolve(context.Background(), nil); err != nil {
		t.Fatalf("Resolve(nil) error = %v", err)
	}
	if err := repo.Resolve(context.Background(), []domain.Address{"0x1", "0x2"}); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	checkExpectations(t, mock)
}
