package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/infra/storage/memory"
)

func TestPruner_DeletesExpiredReports(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewReportRepo(memory.NewMemoryStorage())
	now := time.Now()

	_ = repo.Save(ctx, &domain.Report{ID: "expired", FinishedAt: now.Add(-2 * time.Hour)})
	_ = repo.Save(ctx, &domain.Report{ID: "fresh", FinishedAt: now.Add(-10 * time.Minute)})

	p := NewPruner(time.Hour, repo)
	p.now = func() time.Time { return now }
	p.prune(ctx)

	recent, _ := repo.ListRecent(ctx, 0)
	if len(recent) != 1 || recent[0].ID != "fresh" {
		t.Errorf("expected only fresh report to remain, got %+v", recent)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	p := NewPruner(0, memory.NewReportRepo(memory.NewMemoryStorage()))

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return when retention is disabled")
	}
}

func TestPruner_StopsOnCancel(t *testing.T) {
	p := NewPruner(time.Hour, memory.NewReportRepo(memory.NewMemoryStorage()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return after cancel")
	}
}
