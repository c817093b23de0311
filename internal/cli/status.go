package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/storage/postgres"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent reports and abandoned addresses from the database",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of reports to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	if code := status(); code != 0 {
		os.Exit(code)
	}
}

func status() int {
	cfg := loadConfig()
	if !cfg.Database.Enabled() {
		slog.Error("status needs database.url or DATABASE_URL")
		return 1
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return 1
	}
	defer func() {
		_ = db.Close()
	}()

	reports, err := postgres.NewReportRepo(db).ListRecent(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to list reports", "error", err)
		return 1
	}
	abandoned, err := postgres.NewAbandonedRepo(db).Count(ctx)
	if err != nil {
		slog.Error("Failed to count abandoned addresses", "error", err)
		return 1
	}

	printStatus(os.Stdout, reports, abandoned)
	return 0
}

func printStatus(out io.Writer, reports []domain.ReportSummary, abandoned int) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "REPORT\tADDRESS\tTXS\tPREDICTED\tABANDONED\tROUNDS\tFINISHED")
	for _, r := range reports {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.CentralAddress, r.TransactionCount, r.PredictedCount,
			r.AbandonedCount, r.Rounds, r.FinishedAt.Format(time.RFC3339))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nAbandoned addresses on record: %d\n", abandoned)
}
