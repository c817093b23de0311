package scoring

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/vietddude/fraudlens/internal/core/domain"
	"github.com/vietddude/fraudlens/internal/metrics"
)

type cacheEntry struct {
	result    domain.PredictionResult
	expiresAt time.Time
}

// CachedScorer remembers successful predictions for a while so repeated
// analyses of overlapping neighbourhoods don't rescore the same address.
// Failures are never cached.
type CachedScorer struct {
	next  Scorer
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

// NewCachedScorer wraps next with an LRU cache of size entries.
func NewCachedScorer(next Scorer, size int, ttl time.Duration) (*CachedScorer, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction cache: %w", err)
	}
	return &CachedScorer{
		next:  next,
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

func (s *CachedScorer) Score(ctx context.Context, addr domain.Address) Outcome {
	if v, ok := s.cache.Get(addr); ok {
		entry := v.(cacheEntry)
		if s.ttl <= 0 || s.now().Before(entry.expiresAt) {
			metrics.ScoringCacheTotal.WithLabelValues("hit").Inc()
			return Success(entry.result)
		}
		s.cache.Remove(addr)
	}
	metrics.ScoringCacheTotal.WithLabelValues("miss").Inc()

	out := s.next.Score(ctx, addr)
	if out.OK() {
		s.cache.Add(addr, cacheEntry{result: out.Result, expiresAt: s.now().Add(s.ttl)})
	}
	return out
}
