package window

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gatekeeper/internal/admission/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

// allowScript performs the whole check-and-record atomically on the server:
// expire old entries, compare the remaining cardinality against the limit,
// and add the new member only when admitted. Scores are microsecond
// timestamps; members carry a random suffix so same-instant requests stay
// distinct.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

local admitted = 0
redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, math.ceil(window / 1000))
  count = count + 1
  admitted = 1
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then
  oldestScore = tonumber(oldest[2])
end
return {admitted, count, oldestScore}
`)

// RedisStore is a sliding-window store shared across instances. Each
// identity maps to a ZSET of admission timestamps.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Allow performs the atomic check-and-record for one request.
func (s *RedisStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.QuotaResult, error) {
	now := requestcontext.Now(ctx)
	nowMicro := now.UnixMicro()
	member := strconv.FormatInt(nowMicro, 10) + "-" + uuid.NewString()

	raw, err := allowScript.Run(ctx, s.rdb,
		[]string{key},
		nowMicro,
		window.Microseconds(),
		limit,
		member,
	).Result()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "window store check failed")
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 3 {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("unexpected window script reply %T", raw))
	}
	allowed := toInt64(reply[0]) == 1
	count := int(toInt64(reply[1]))
	oldest := time.UnixMicro(toInt64(reply[2]))
	resetAt := oldest.Add(window)

	if allowed {
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		return &models.QuotaResult{
			Allowed:   true,
			Limit:     limit,
			Remaining: remaining,
			ResetAt:   resetAt,
		}, nil
	}

	return &models.QuotaResult{
		Allowed:    false,
		Limit:      limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: retryAfterSeconds(now, resetAt),
	}, nil
}

// Reset clears the counter for a key.
func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "window store reset failed")
	}
	return nil
}

// CurrentCount returns the number of admissions currently in window.
// Expired members are trimmed by the next Allow; subtracting them here
// would race it, so the count may briefly overshoot after idle periods.
func (s *RedisStore) CurrentCount(ctx context.Context, key string) (int, error) {
	n, err := s.rdb.ZCard(ctx, key).Result()
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "window store count failed")
	}
	return int(n), nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case string:
		parsed, _ := strconv.ParseInt(n, 10, 64)
		return parsed
	default:
		return 0
	}
}
