package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrUnavailable wraps every transport or script failure reported by the backend.
	ErrUnavailable = errors.New("counter store unavailable")
	// ErrChallengeNotFound is returned by CompareAndDelete when the key is absent.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrChallengeMismatch is returned by CompareAndDelete when the stored value differs.
	ErrChallengeMismatch = errors.New("challenge mismatch")
)

// CounterStore is the shared state used by limiters, lockout tracking and
// OTP challenges. Every method is a single round trip and atomic on the
// server side.
type CounterStore interface {
	WindowAcquire(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int, error)
	WindowCount(ctx context.Context, key string, now time.Time, window time.Duration) (int, error)
	WindowOldest(ctx context.Context, key string) (time.Time, bool, error)
	IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
	GetInt(ctx context.Context, key string) (int64, error)
	Get(ctx context.Context, key string) (string, bool, error)
	SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	CompareAndDelete(ctx context.Context, key, expected string, alsoDelete ...string) error
	Ping(ctx context.Context) error
}

// windowAcquireLua prunes, counts and conditionally records one hit.
// KEYS[1] = sorted set key
// ARGV[1] = now (unix ms)
// ARGV[2] = window (ms)
// ARGV[3] = limit
// ARGV[4] = member
//
// Returns {allowed(0|1), count after the call}. A rejected hit is not recorded.
var windowAcquireLua = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', tostring(now - window))
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
  return {0, count}
end

redis.call('ZADD', KEYS[1], tostring(now), ARGV[4])
redis.call('PEXPIRE', KEYS[1], tostring(window * 2))
return {1, count + 1}
`)

// incrWithExpiryLua sets the TTL only on the first increment so the
// window is anchored to the first hit.
var incrWithExpiryLua = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// compareAndDeleteLua consumes a single-use value.
// KEYS[1] = challenge key, KEYS[2..n] = keys cleared together with it
// ARGV[1] = candidate value
var compareAndDeleteLua = redis.NewScript(`
local stored = redis.call('GET', KEYS[1])
if not stored then
  return {err='not_found'}
end
if stored ~= ARGV[1] then
  return {err='mismatch'}
end
redis.call('DEL', unpack(KEYS))
return 1
`)

// RedisCounterStore implements CounterStore on go-redis.
type RedisCounterStore struct {
	redis redis.UniversalClient
}

// NewRedisCounterStore wraps an existing client. The store never closes it.
func NewRedisCounterStore(redisClient redis.UniversalClient) *RedisCounterStore {
	return &RedisCounterStore{redis: redisClient}
}

func (s *RedisCounterStore) WindowAcquire(
	ctx context.Context,
	key string,
	now time.Time,
	window time.Duration,
	limit int,
) (bool, int, error) {
	nowMs := now.UnixMilli()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	result, err := windowAcquireLua.Run(ctx, s.redis,
		[]string{key},
		nowMs,
		window.Milliseconds(),
		limit,
		member,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("%w: unexpected lua result length %d", ErrUnavailable, len(result))
	}

	return result[0] == 1, int(result[1]), nil
}

func (s *RedisCounterStore) WindowCount(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	cutoff := strconv.FormatInt(now.UnixMilli()-window.Milliseconds(), 10)

	var card *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
		card = pipe.ZCard(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return int(card.Val()), nil
}

func (s *RedisCounterStore) WindowOldest(ctx context.Context, key string) (time.Time, bool, error) {
	entries, err := s.redis.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(entries) == 0 {
		return time.Time{}, false, nil
	}

	return time.UnixMilli(int64(entries[0].Score)), true, nil
}

func (s *RedisCounterStore) IncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrWithExpiryLua.Run(ctx, s.redis, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func (s *RedisCounterStore) GetInt(ctx context.Context, key string) (int64, error) {
	n, err := s.redis.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

func (s *RedisCounterStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, true, nil
}

func (s *RedisCounterStore) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisCounterStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *RedisCounterStore) CompareAndDelete(ctx context.Context, key, expected string, alsoDelete ...string) error {
	keys := make([]string, 0, 1+len(alsoDelete))
	keys = append(keys, key)
	keys = append(keys, alsoDelete...)

	err := compareAndDeleteLua.Run(ctx, s.redis, keys, expected).Err()
	if err == nil {
		return nil
	}

	switch err.Error() {
	case "not_found":
		return ErrChallengeNotFound
	case "mismatch":
		return ErrChallengeMismatch
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

func (s *RedisCounterStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
