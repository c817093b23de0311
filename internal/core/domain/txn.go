package domain

import (
	"math/big"
	"strconv"
	"time"
)

// Transaction is a normal transaction as returned by the explorer's txlist
// endpoint. Numeric fields stay as decimal strings, the way the API sends them.
type Transaction struct {
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	Gas         string `json:"gas"`
	GasPrice    string `json:"gasPrice"`
	GasUsed     string `json:"gasUsed"`
	IsError     string `json:"isError"`
	Input       string `json:"input,omitempty"`
}

var weiPerEther = new(big.Float).SetFloat64(1e18)

// ValueETH converts the wei value to ether. Unparseable values are zero.
func (t Transaction) ValueETH() float64 {
	return weiToFloat(t.Value, weiPerEther)
}

// FeeETH is gasUsed * gasPrice in ether.
func (t Transaction) FeeETH() float64 {
	used, ok1 := new(big.Int).SetString(t.GasUsed, 10)
	price, ok2 := new(big.Int).SetString(t.GasPrice, 10)
	if !ok1 || !ok2 {
		return 0
	}
	fee := new(big.Int).Mul(used, price)
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(fee), weiPerEther).Float64()
	return f
}

// GasPriceGwei converts the gas price to gwei.
func (t Transaction) GasPriceGwei() float64 {
	return weiToFloat(t.GasPrice, new(big.Float).SetFloat64(1e9))
}

// GasUsedInt returns gasUsed as an integer, zero if absent.
func (t Transaction) GasUsedInt() uint64 {
	v, _ := strconv.ParseUint(t.GasUsed, 10, 64)
	return v
}

// Time returns the block timestamp in UTC.
func (t Transaction) Time() time.Time {
	sec, _ := strconv.ParseInt(t.TimeStamp, 10, 64)
	return time.Unix(sec, 0).UTC()
}

// Failed reports whether the explorer flagged the transaction as reverted.
func (t Transaction) Failed() bool {
	return t.IsError != "" && t.IsError != "0"
}

// IsContractCreation reports whether the transaction deployed a contract.
func (t Transaction) IsContractCreation() bool {
	return !NormalizeAddress(t.To).Valid()
}

func weiToFloat(raw string, unit *big.Float) float64 {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), unit).Float64()
	return f
}
