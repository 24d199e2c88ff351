package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const keyPrefix = "leadanalyzer:ratelimit:"

// windowScript counts one event and arms the expiry in the same step. A key
// left without a TTL gets one on its next hit.
var windowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter is a fixed-window counter shared through Redis, so every instance
// sees the same per-key budget.
type Limiter struct {
	redis  *redis.Client
	tracer trace.Tracer
	limit  int64
	window time.Duration
}

// New returns a limiter allowing limit events per window for each key.
// A nil client or non-positive limit yields nil; a nil *Limiter allows everything.
func New(client *redis.Client, limit int, window time.Duration) *Limiter {
	if client == nil || limit <= 0 {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		redis:  client,
		tracer: otel.Tracer("leadanalyzer/ratelimit"),
		limit:  int64(limit),
		window: window,
	}
}

// Allow counts one event against key and reports whether it fits in the
// current window.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.redis == nil {
		return true, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, errors.New("ratelimit: key required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := l.tracer.Start(ctx, "ratelimit.allow")
	defer span.End()

	count, err := windowScript.Run(ctx, l.redis, []string{keyPrefix + key}, l.window.Milliseconds()).Int64()
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("ratelimit: count %s: %w", key, err)
	}

	span.SetAttributes(attribute.Int64("ratelimit.count", count))
	return count <= l.limit, nil
}
