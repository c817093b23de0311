package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

const (
	DirectionOutgoing = "Outgoing"
	DirectionIncoming = "Incoming"
	DirectionIndirect = "Indirect"

	notPredicted     = "Not Predicted"
	contractCreation = "Contract Creation"

	etherscanTxURL = "https://etherscan.io/tx/"
)

var csvHeader = []string{
	"transaction_hash",
	"timestamp_utc",
	"block_number",
	"direction",
	"from_address",
	"to_address",
	"value_eth",
	"transaction_fee_eth",
	"transaction_status",
	"gas_price_gwei",
	"gas_used",
	"is_contract_creation",
	"from_address_prediction",
	"from_address_fraud_probability",
	"to_address_prediction",
	"to_address_fraud_probability",
	"transaction_risk_score",
	"etherscan_url",
}

// Row is one enriched transaction.
type Row struct {
	Hash             string
	Timestamp        string
	BlockNumber      string
	Direction        string
	From             domain.Address
	To               string
	ValueETH         float64
	FeeETH           float64
	Status           string
	GasPriceGwei     float64
	GasUsed          uint64
	ContractCreation bool
	FromPrediction   string
	FromProbability  float64
	ToPrediction     string
	ToProbability    float64
	RiskScore        float64
	EtherscanURL     string
}

// EnrichTransactions joins transactions with predictions, highest risk first.
// Transactions without a sender are skipped.
func EnrichTransactions(
	central domain.Address,
	txs []domain.Transaction,
	predictions map[domain.Address]domain.PredictionResult,
) []Row {
	central = domain.NormalizeAddress(string(central))
	rows := make([]Row, 0, len(txs))

	for _, tx := range txs {
		from := domain.NormalizeAddress(tx.From)
		if !from.Valid() {
			continue
		}
		to := domain.NormalizeAddress(tx.To)

		fromPred, fromProb := lookup(from, predictions)
		toPred, toProb := lookup(to, predictions)

		row := Row{
			Hash:             tx.Hash,
			Timestamp:        tx.Time().Format("2006-01-02 15:04:05"),
			BlockNumber:      tx.BlockNumber,
			Direction:        direction(central, from, to),
			From:             from,
			To:               string(to),
			ValueETH:         tx.ValueETH(),
			FeeETH:           tx.FeeETH(),
			Status:           "Success",
			GasPriceGwei:     tx.GasPriceGwei(),
			GasUsed:          tx.GasUsedInt(),
			ContractCreation: tx.IsContractCreation(),
			FromPrediction:   fromPred,
			FromProbability:  fromProb,
			ToPrediction:     toPred,
			ToProbability:    toProb,
			RiskScore:        fromProb + toProb,
			EtherscanURL:     etherscanTxURL + tx.Hash,
		}
		if tx.Failed() {
			row.Status = "Failed"
		}
		if row.ContractCreation {
			row.To = contractCreation
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RiskScore > rows[j].RiskScore
	})
	return rows
}

// WriteCSV writes the enriched transaction table.
func WriteCSV(
	w io.Writer,
	central domain.Address,
	txs []domain.Transaction,
	predictions map[domain.Address]domain.PredictionResult,
) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range EnrichTransactions(central, txs, predictions) {
		record := []string{
			r.Hash,
			r.Timestamp,
			r.BlockNumber,
			r.Direction,
			string(r.From),
			r.To,
			formatFloat(r.ValueETH),
			strconv.FormatFloat(r.FeeETH, 'f', 12, 64),
			r.Status,
			strconv.FormatFloat(r.GasPriceGwei, 'f', 2, 64),
			strconv.FormatUint(r.GasUsed, 10),
			strconv.FormatBool(r.ContractCreation),
			r.FromPrediction,
			formatFloat(r.FromProbability),
			r.ToPrediction,
			formatFloat(r.ToProbability),
			formatFloat(r.RiskScore),
			r.EtherscanURL,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %s: %w", r.Hash, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func lookup(addr domain.Address, predictions map[domain.Address]domain.PredictionResult) (string, float64) {
	if !addr.Valid() {
		return contractCreation, 0
	}
	p, ok := predictions[addr]
	if !ok {
		return notPredicted, 0
	}
	return string(p.Label), p.FraudProbability
}

func direction(central, from, to domain.Address) string {
	switch central {
	case from:
		return DirectionOutgoing
	case to:
		return DirectionIncoming
	default:
		return DirectionIndirect
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
