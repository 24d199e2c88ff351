package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	dedupeKeyPrefix  = "leadanalyzer:notified:"
	defaultDedupeTTL = 72 * time.Hour
)

// Deduper guards against notifying the same conversation twice.
type Deduper interface {
	// Claim reports true the first time a conversation is claimed within the TTL.
	Claim(ctx context.Context, orgID, conversationID string) (bool, error)
	// Release forgets a claim so a later attempt can retry.
	Release(ctx context.Context, orgID, conversationID string) error
}

// RedisDedupeStore keeps "already notified" markers in Redis with a TTL.
type RedisDedupeStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewRedisDedupeStore(client *redis.Client, ttl time.Duration) *RedisDedupeStore {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &RedisDedupeStore{
		redis:  client,
		tracer: otel.Tracer("leadanalyzer/notify/dedupe"),
		ttl:    ttl,
	}
}

func (s *RedisDedupeStore) Claim(ctx context.Context, orgID, conversationID string) (bool, error) {
	if orgID == "" || conversationID == "" {
		return false, errors.New("notify: dedupe org and conversation required")
	}
	ctx, span := s.tracer.Start(ctx, "notify.dedupe.claim")
	defer span.End()

	ok, err := s.redis.SetNX(ctx, dedupeKey(orgID, conversationID), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("notify: dedupe claim: %w", err)
	}
	return ok, nil
}

func (s *RedisDedupeStore) Release(ctx context.Context, orgID, conversationID string) error {
	if err := s.redis.Del(ctx, dedupeKey(orgID, conversationID)).Err(); err != nil {
		return fmt.Errorf("notify: dedupe release: %w", err)
	}
	return nil
}

func dedupeKey(orgID, conversationID string) string {
	return dedupeKeyPrefix + orgID + ":" + conversationID
}

// MemoryDedupeStore is a single-process Deduper used when Redis is absent.
type MemoryDedupeStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	claimed map[string]time.Time
}

func NewMemoryDedupeStore(ttl time.Duration) *MemoryDedupeStore {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &MemoryDedupeStore{
		ttl:     ttl,
		now:     time.Now,
		claimed: make(map[string]time.Time),
	}
}

func (s *MemoryDedupeStore) Claim(_ context.Context, orgID, conversationID string) (bool, error) {
	if orgID == "" || conversationID == "" {
		return false, errors.New("notify: dedupe org and conversation required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupeKey(orgID, conversationID)
	now := s.now()
	if expires, ok := s.claimed[key]; ok && now.Before(expires) {
		return false, nil
	}
	s.claimed[key] = now.Add(s.ttl)
	return true, nil
}

func (s *MemoryDedupeStore) Release(_ context.Context, orgID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, dedupeKey(orgID, conversationID))
	return nil
}

var (
	_ Deduper = (*RedisDedupeStore)(nil)
	_ Deduper = (*MemoryDedupeStore)(nil)
)
