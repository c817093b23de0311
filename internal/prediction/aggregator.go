package prediction

import (
	"maps"
	"slices"
	"sync"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

// Aggregator accumulates the predictions and abandonments of one fetch.
// The coordinator is its only writer; Snapshot may be called concurrently.
type Aggregator struct {
	mu          sync.RWMutex
	predictions map[domain.Address]domain.PredictionResult
	abandoned   map[domain.Address]domain.AbandonedAddress
	order       []domain.Address
}

// Snapshot is an immutable copy of an Aggregator's state.
type Snapshot struct {
	Predictions map[domain.Address]domain.PredictionResult
	Abandoned   []domain.AbandonedAddress
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		predictions: make(map[domain.Address]domain.PredictionResult),
		abandoned:   make(map[domain.Address]domain.AbandonedAddress),
	}
}

// Upsert stores result under the normalized addr, replacing any earlier one.
func (a *Aggregator) Upsert(addr domain.Address, result domain.PredictionResult) {
	addr = domain.NormalizeAddress(string(addr))
	result.Address = addr

	a.mu.Lock()
	defer a.mu.Unlock()

	a.predictions[addr] = result
	if _, ok := a.abandoned[addr]; ok {
		delete(a.abandoned, addr)
		a.order = slices.DeleteFunc(a.order, func(x domain.Address) bool { return x == addr })
	}
}

// MarkAbandoned records that the fetch gave up on an address.
func (a *Aggregator) MarkAbandoned(ab domain.AbandonedAddress) {
	ab.Address = domain.NormalizeAddress(string(ab.Address))

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.predictions[ab.Address]; ok {
		return
	}
	if _, ok := a.abandoned[ab.Address]; !ok {
		a.order = append(a.order, ab.Address)
	}
	a.abandoned[ab.Address] = ab
}

// Snapshot copies the current state. Abandoned addresses keep the order in
// which they were given up on.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	abandoned := make([]domain.AbandonedAddress, 0, len(a.order))
	for _, addr := range a.order {
		abandoned = append(abandoned, a.abandoned[addr])
	}
	return Snapshot{
		Predictions: maps.Clone(a.predictions),
		Abandoned:   abandoned,
	}
}
