package prediction

import "github.com/vietddude/fraudlens/internal/core/domain"

// UniqueAddresses normalizes addrs, drops invalid scoring targets and
// removes case-insensitive duplicates. First-seen order is kept.
func UniqueAddresses(addrs []domain.Address) []domain.Address {
	seen := make(map[domain.Address]struct{}, len(addrs))
	out := make([]domain.Address, 0, len(addrs))
	for _, raw := range addrs {
		addr := domain.NormalizeAddress(string(raw))
		if !addr.Valid() {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// AddressesFromTransactions returns the central address followed by every
// distinct counterparty found in txs.
func AddressesFromTransactions(central string, txs []domain.Transaction) []domain.Address {
	addrs := make([]domain.Address, 0, 2*len(txs)+1)
	addrs = append(addrs, domain.Address(central))
	for _, tx := range txs {
		addrs = append(addrs, domain.Address(tx.From), domain.Address(tx.To))
	}
	return UniqueAddresses(addrs)
}
