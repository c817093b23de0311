package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/vietddude/fraudlens/internal/control"
	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/report"
)

var outPath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <address>",
	Short: "Analyze one wallet and write the result bundle",
	Args:  cobra.ExactArgs(1),
	Run:   runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&outPath, "out", "o", "", "output zip file (default analysis_results_<address>.zip)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	if code := analyze(args[0]); code != 0 {
		os.Exit(code)
	}
}

// analyze returns the process exit code so deferred cleanup runs first.
func analyze(address string) int {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize fraudlens", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Error closing fraudlens", "error", err)
		}
	}()

	return analyzeTo(ctx, app.Service(), address, outPath, os.Stdout)
}

// reportAnalyzer is the part of analysis.Service the command needs.
type reportAnalyzer interface {
	Analyze(ctx context.Context, address string) (*domain.Report, error)
}

// analyzeTo runs one analysis and writes its bundle to path, or to the
// default bundle name when path is empty. An interrupted analysis still
// writes what was scored but exits non-zero.
func analyzeTo(ctx context.Context, svc reportAnalyzer, address, path string, out io.Writer) int {
	r, err := svc.Analyze(ctx, address)
	if r == nil {
		slog.Error("Analysis failed", "address", address, "error", err)
		return 1
	}
	if err != nil {
		slog.Warn("Analysis interrupted, writing partial result", "error", err)
	}

	if path == "" {
		path = report.BundleFileName(r.CentralAddress)
	}
	if werr := writeBundleFile(path, r); werr != nil {
		slog.Error("Failed to write bundle", "path", path, "error", werr)
		return 1
	}

	printSummary(out, r, path)
	if err != nil {
		return 1
	}
	return 0
}

func writeBundleFile(path string, r *domain.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()
	return report.WriteBundle(f, r)
}

func printSummary(out io.Writer, r *domain.Report, path string) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "REPORT\t%s\n", r.ID)
	_, _ = fmt.Fprintf(w, "ADDRESS\t%s\n", r.CentralAddress)
	_, _ = fmt.Fprintf(w, "TRANSACTIONS\t%d\n", len(r.Transactions))
	_, _ = fmt.Fprintf(w, "PREDICTED\t%d\n", len(r.Predictions))
	_, _ = fmt.Fprintf(w, "ABANDONED\t%d\n", len(r.Abandoned))
	_, _ = fmt.Fprintf(w, "ROUNDS\t%d\n", r.Rounds)
	_, _ = fmt.Fprintf(w, "OUTPUT\t%s\n", path)
	if p, ok := r.Predictions[r.CentralAddress]; ok {
		_, _ = fmt.Fprintf(w, "VERDICT\t%s (%.2f)\n", p.Label, p.FraudProbability)
	}
	_ = w.Flush()

	if len(r.Abandoned) == 0 {
		return
	}
	w = tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "\nABANDONED ADDRESS\tREASON\tFAILURES\tLAST ERROR")
	for _, a := range r.Abandoned {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", a.Address, a.Reason, a.Failures, a.LastFailure)
	}
	_ = w.Flush()
}
