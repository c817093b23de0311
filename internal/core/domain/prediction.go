package domain

import "strings"

// Label is the categorical verdict of the scoring model.
type Label string

const (
	LabelFraud    Label = "fraud"
	LabelNonFraud Label = "non-fraud"
	LabelUnknown  Label = "unknown"
)

// ParseLabel maps the scoring service vocabulary onto a Label.
func ParseLabel(raw string) Label {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fraud", "illicit":
		return LabelFraud
	case "non-fraud", "nonfraud", "non_fraud", "licit":
		return LabelNonFraud
	default:
		return LabelUnknown
	}
}

// PredictionResult is one successful scoring of one address.
type PredictionResult struct {
	Address          Address `json:"address"`
	Label            Label   `json:"prediction"`
	FraudProbability float64 `json:"probability_fraud"`
}

// Suspicious band: probabilities strictly inside it are neither clearly
// licit nor clearly illicit.
const (
	SuspiciousLowerBound = 0.45
	SuspiciousUpperBound = 0.55
)

// Suspicious reports whether the probability falls in the undecided band.
func (p PredictionResult) Suspicious() bool {
	return p.FraudProbability > SuspiciousLowerBound && p.FraudProbability < SuspiciousUpperBound
}
