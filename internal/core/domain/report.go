package domain

import "time"

// Report is the outcome of analysing one central address.
type Report struct {
	ID             string                       `json:"id"`
	CentralAddress Address                      `json:"central_address"`
	Transactions   []Transaction                `json:"transactions,omitempty"`
	Predictions    map[Address]PredictionResult `json:"predictions"`
	Abandoned      []AbandonedAddress           `json:"abandoned"`
	Rounds         int                          `json:"rounds"`
	Attempts       int                          `json:"attempts"`
	StartedAt      time.Time                    `json:"started_at"`
	FinishedAt     time.Time                    `json:"finished_at"`
}

// ReportSummary is the list view of a stored report.
type ReportSummary struct {
	ID               string    `json:"id"             db:"id"`
	CentralAddress   Address   `json:"central_address" db:"central_address"`
	TransactionCount int       `json:"transaction_count" db:"transaction_count"`
	PredictedCount   int       `json:"predicted_count" db:"predicted_count"`
	AbandonedCount   int       `json:"abandoned_count" db:"abandoned_count"`
	Rounds           int       `json:"rounds"          db:"rounds"`
	FinishedAt       time.Time `json:"finished_at"     db:"finished_at"`
}

// Summary builds the list view of the report.
func (r *Report) Summary() ReportSummary {
	return ReportSummary{
		ID:               r.ID,
		CentralAddress:   r.CentralAddress,
		TransactionCount: len(r.Transactions),
		PredictedCount:   len(r.Predictions),
		AbandonedCount:   len(r.Abandoned),
		Rounds:           r.Rounds,
		FinishedAt:       r.FinishedAt,
	}
}
