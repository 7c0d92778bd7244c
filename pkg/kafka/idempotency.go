package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore is the interface for checking and storing processed events.
// Implementations must be safe for concurrent use.
type IdempotencyStore interface {
	// Contains returns true if the key has already been processed.
	Contains(ctx context.Context, key string) (bool, error)
	// Add marks a key as processed. It should be called after successful processing.
	Add(ctx context.Context, key string) error
}

// MemoryIdempotencyStore is an in-memory implementation of IdempotencyStore.
// Suitable for development and single-instance deployments. Entries expire
// after the configured TTL to bound memory usage.
type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
}

// NewMemoryIdempotencyStore creates a new in-memory idempotency store with the
// given TTL. Expired entries are lazily cleaned up on access.
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]time.Time),
		ttl:     ttl,
	}
}

// Contains checks if the key exists and is not expired.
func (s *MemoryIdempotencyStore) Contains(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	ts, exists := s.entries[key]
	s.mu.RUnlock()

	if !exists {
		return false, nil
	}

	// Lazily expire old entries.
	if time.Since(ts) > s.ttl {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

// Add marks the key as processed with the current timestamp.
func (s *MemoryIdempotencyStore) Add(_ context.Context, key string) error {
	s.mu.Lock()
	s.entries[key] = time.Now()
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries in the store (including potentially expired ones).
func (s *MemoryIdempotencyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RedisIdempotencyStore tracks processed events in Redis so deduplication
// survives restarts and works across replicas of the same consumer group.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisIdempotencyStore creates a Redis-backed idempotency store. Keys are
// namespaced by prefix and expire after ttl.
func NewRedisIdempotencyStore(client *redis.Client, prefix string, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *RedisIdempotencyStore) key(k string) string {
	return fmt.Sprintf("%s:processed:%s", s.prefix, k)
}

// Contains checks whether the key has been recorded in Redis.
func (s *RedisIdempotencyStore) Contains(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Add records the key in Redis with the configured TTL.
func (s *RedisIdempotencyStore) Add(ctx context.Context, key string) error {
	if err := s.client.Set(ctx, s.key(key), 1, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// IdempotentHandler wraps a Handler with deduplication logic. Events are
// deduplicated on (aggregate id, version) so redelivered transitions are
// skipped; events without an aggregate id fall back to the event ID.
func IdempotentHandler(store IdempotencyStore, consumerGroup string, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		key := event.DedupKey()
		if event.AggregateID == "" {
			key = event.EventID
		}
		if key == "" || key == ":0" {
			// Nothing to deduplicate on, pass through.
			return inner(ctx, event)
		}

		exists, err := store.Contains(ctx, key)
		if err != nil {
			logger.Warn("idempotency store lookup failed, processing anyway",
				slog.String("dedup_key", key),
				slog.String("error", err.Error()),
			)
			// On store failure, process the message rather than risk data loss.
			return inner(ctx, event)
		}

		if exists {
			ConsumerMessagesDuplicate.WithLabelValues(event.EventType, consumerGroup).Inc()
			logger.Debug("skipping duplicate event",
				slog.String("dedup_key", key),
				slog.String("event_type", event.EventType),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			return err
		}

		// Mark as processed only after successful handling.
		if addErr := store.Add(ctx, key); addErr != nil {
			logger.Warn("failed to record event in idempotency store",
				slog.String("dedup_key", key),
				slog.String("error", addErr.Error()),
			)
		}

		return nil
	}
}
