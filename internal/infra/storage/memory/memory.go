package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/storage"
)

type MemoryStorage struct {
	reports   map[string]*domain.Report
	order     []string
	abandoned map[domain.Address]domain.AbandonedAddress
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		reports:   make(map[string]*domain.Report),
		abandoned: make(map[domain.Address]domain.AbandonedAddress),
	}
}

// -----------------------------------------------------------------------------
// Report Repository
// -----------------------------------------------------------------------------

type ReportRepo struct {
	store *MemoryStorage
}

func NewReportRepo(store *MemoryStorage) *ReportRepo {
	return &ReportRepo{store: store}
}

func (r *ReportRepo) Save(ctx context.Context, report *domain.Report) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.reports[report.ID]; !ok {
		r.store.order = append(r.store.order, report.ID)
	}
	r.store.reports[report.ID] = report
	return nil
}

func (r *ReportRepo) Get(ctx context.Context, id string) (*domain.Report, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	report, ok := r.store.reports[id]
	if !ok {
		return nil, storage.ErrReportNotFound
	}
	return report, nil
}

func (r *ReportRepo) ListRecent(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []domain.ReportSummary
	for i := len(r.store.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, r.store.reports[r.store.order[i]].Summary())
	}
	return out, nil
}

func (r *ReportRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.order[:0]
	deleted := 0
	for _, id := range r.store.order {
		if r.store.reports[id].FinishedAt.Before(cutoff) {
			delete(r.store.reports, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	r.store.order = kept
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Abandoned Address Repository
// -----------------------------------------------------------------------------

type AbandonedRepo struct {
	store *MemoryStorage
}

func NewAbandonedRepo(store *MemoryStorage) *AbandonedRepo {
	return &AbandonedRepo{store: store}
}

func (r *AbandonedRepo) Add(ctx context.Context, abandoned []domain.AbandonedAddress) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, a := range abandoned {
		r.store.abandoned[a.Address] = a
	}
	return nil
}

func (r *AbandonedRepo) GetAll(ctx context.Context) ([]domain.AbandonedAddress, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]domain.AbandonedAddress, 0, len(r.store.abandoned))
	for _, a := range r.store.abandoned {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b domain.AbandonedAddress) int {
		if a.Failures != b.Failures {
			return b.Failures - a.Failures
		}
		if a.Address < b.Address {
			return -1
		}
		if a.Address > b.Address {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *AbandonedRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.abandoned), nil
}

func (r *AbandonedRepo) Resolve(ctx context.Context, addrs []domain.Address) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, addr := range addrs {
		delete(r.store.abandoned, addr)
	}
	return nil
}
