package domain

import "strings"

// Address is a lowercase-normalized wallet identifier.
type Address string

// ContractCreationPlaceholder is what block explorers put in the "to" field
// of a contract-creation transaction.
const ContractCreationPlaceholder = "0x"

// NormalizeAddress trims and lowercases a raw address.
func NormalizeAddress(raw string) Address {
	return Address(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether the address can be sent to the scoring service.
// Empty values and the contract-creation placeholder are never valid targets.
func (a Address) Valid() bool {
	return a != "" && a != ContractCreationPlaceholder
}

// Short returns the first 10 characters, used in log lines and file names.
func (a Address) Short() string {
	if len(a) <= 10 {
		return string(a)
	}
	return string(a[:10])
}

func (a Address) String() string {
	return string(a)
}
