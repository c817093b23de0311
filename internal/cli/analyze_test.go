package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

type stubAnalyzer struct {
	report *domain.Report
	err    error
}

func (s stubAnalyzer) Analyze(ctx context.Context, address string) (*domain.Report, error) {
	return s.report, s.err
}

func testReport() *domain.Report {
	central := domain.Address("0x00000000000000000000000000000000000000aa")
	peer := domain.Address("0x00000000000000000000000000000000000000bb")
	return &domain.Report{
		ID:             "run-1",
		CentralAddress: central,
		Transactions: []domain.Transaction{{
			Hash: "0x01", BlockNumber: "1", TimeStamp: "1700000000",
			From: string(central), To: string(peer),
			Value: "1000000000000000000", GasPrice: "1", GasUsed: "21000", IsError: "0",
		}},
		Predictions: map[domain.Address]domain.PredictionResult{
			central: {Address: central, Label: domain.LabelNonFraud, FraudProbability: 0.2},
			peer:    {Address: peer, Label: domain.LabelFraud, FraudProbability: 0.9},
		},
		Rounds:     1,
		Attempts:   2,
		StartedAt:  time.Unix(1700000000, 0),
		FinishedAt: time.Unix(1700000010, 0),
	}
}

func TestAnalyzeTo(t *testing.T) {
	tests := []struct {
		name      string
		analyzer  stubAnalyzer
		wantCode  int
		wantFile  bool
		wantInOut string
	}{
		{"success", stubAnalyzer{report: testReport()}, 0, true, "VERDICT"},
		{"interrupted writes partial bundle", stubAnalyzer{report: testReport(), err: context.Canceled}, 1, true, "PREDICTED"},
		{"failed analysis", stubAnalyzer{err: errors.New("explorer down")}, 1, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.zip")
			var out bytes.Buffer

			code := analyzeTo(context.Background(), tt.analyzer, "0xaa", path, &out)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}

			_, err := os.Stat(path)
			if tt.wantFile && err != nil {
				t.Errorf("bundle not written: %v", err)
			}
			if !tt.wantFile && err == nil {
				t.Error("bundle written for a failed analysis")
			}
			if !strings.Contains(out.String(), tt.wantInOut) {
				t.Errorf("summary missing %q:\n%s", tt.wantInOut, out.String())
			}
		})
	}
}

func TestWriteBundleFile_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.zip")
	if err := writeBundleFile(path, testReport()); err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, []domain.ReportSummary{testReport().Summary()}, 3)

	if !strings.Contains(out.String(), "run-1") {
		t.Errorf("report row missing:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "Abandoned addresses on record: 3") {
		t.Errorf("abandoned count missing:\n%s", out.String())
	}
}
