package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/fraudlens/internal/core/domain"
)

// DefaultAbandonedTTL bounds how long an abandoned address stays queued.
const DefaultAbandonedTTL = 24 * time.Hour

// AbandonedRepo implements storage.AbandonedRepository using Redis.
// Addresses live in a sorted set scored by failure count; each member's
// details are stored under its own key with a TTL.
type AbandonedRepo struct {
	client *Client
	ttl    time.Duration
}

// NewAbandonedRepo creates a new Redis-backed abandoned address repository.
func NewAbandonedRepo(client *Client, ttl time.Duration) *AbandonedRepo {
	if ttl <= 0 {
		ttl = DefaultAbandonedTTL
	}
	return &AbandonedRepo{client: client, ttl: ttl}
}

// Add queues abandoned addresses. A re-added address replaces its old entry.
func (r *AbandonedRepo) Add(ctx context.Context, abandoned []domain.AbandonedAddress) error {
	if len(abandoned) == 0 {
		return nil
	}

	pipe := r.client.rdb.TxPipeline()
	for _, a := range abandoned {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal abandoned address: %w", err)
		}
		member := string(a.Address)
		pipe.Set(ctx, r.client.abandonedKey(member), data, r.ttl)
		pipe.ZAdd(ctx, r.client.abandonedQueueKey(), redis.Z{
			Score:  float64(a.Failures),
			Member: member,
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add abandoned addresses: %w", err)
	}
	return nil
}

// GetAll returns queued addresses, most failures first. Members whose
// details expired are dropped from the set.
func (r *AbandonedRepo) GetAll(ctx context.Context) ([]domain.AbandonedAddress, error) {
	members, err := r.client.rdb.ZRevRange(ctx, r.client.abandonedQueueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	out := make([]domain.AbandonedAddress, 0, len(members))
	for _, member := range members {
		data, err := r.client.rdb.Get(ctx, r.client.abandonedKey(member)).Bytes()
		if err == redis.Nil {
			r.client.rdb.ZRem(ctx, r.client.abandonedQueueKey(), member)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get abandoned address: %w", err)
		}

		var a domain.AbandonedAddress
		if err := json.Unmarshal(data, &a); err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Count returns the number of queued addresses.
func (r *AbandonedRepo) Count(ctx context.Context) (int, error) {
	count, err := r.client.rdb.ZCard(ctx, r.client.abandonedQueueKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard failed: %w", err)
	}
	return int(count), nil
}

// Resolve removes scored addresses from the queue.
func (r *AbandonedRepo) Resolve(ctx context.Context, addrs []domain.Address) error {
	if len(addrs) == 0 {
		return nil
	}

	members := make([]any, 0, len(addrs))
	keys := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		members = append(members, string(addr))
		keys = append(keys, r.client.abandonedKey(string(addr)))
	}

	pipe := r.client.rdb.TxPipeline()
	pipe.ZRem(ctx, r.client.abandonedQueueKey(), members...)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to resolve abandoned addresses: %w", err)
	}
	return nil
}
