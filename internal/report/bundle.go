package report

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

// Bundle entry names.
const (
	CSVFileName   = "enriched_transactions.csv"
	DOTFileName   = "transaction_graph.dot"
	GraphFileName = "transaction_graph.json"
)

// BundleFileName is the download name of a report archive.
func BundleFileName(central domain.Address) string {
	return fmt.Sprintf("analysis_results_%s.zip", central.Short())
}

// WriteBundle writes a zip archive holding the CSV and both graph renderings.
// The graph files are omitted when the central address has no direct
// transactions.
func WriteBundle(w io.Writer, r *domain.Report) error {
	zw := zip.NewWriter(w)

	f, err := zw.Create(CSVFileName)
	if err != nil {
		return fmt.Errorf("create %s: %w", CSVFileName, err)
	}
	if err := WriteCSV(f, r.CentralAddress, r.Transactions, r.Predictions); err != nil {
		return err
	}

	g := BuildGraph(r.CentralAddress, r.Transactions, r.Predictions)
	if !g.Empty() {
		f, err := zw.Create(DOTFileName)
		if err != nil {
			return fmt.Errorf("create %s: %w", DOTFileName, err)
		}
		if err := g.WriteDOT(f); err != nil {
			return fmt.Errorf("write %s: %w", DOTFileName, err)
		}

		f, err = zw.Create(GraphFileName)
		if err != nil {
			return fmt.Errorf("create %s: %w", GraphFileName, err)
		}
		if err := g.WriteJSON(f); err != nil {
			return fmt.Errorf("write %s: %w", GraphFileName, err)
		}
	}

	return zw.Close()
}
