package challenge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"idverse/pkg/platform/sentinel"
)

const challengeKeyPrefix = "chal:nonce:"

// consumeScript spends a nonce atomically. The value holds the expiry in
// unix milliseconds until consumption, then the literal "used". Keys live
// past their TTL (see retention) so replays and late presentations stay
// distinguishable from unknown nonces.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return 'unknown'
end
if v == 'used' then
	return 'replayed'
end
if tonumber(v) < tonumber(ARGV[1]) then
	return 'expired'
end
redis.call('SET', KEYS[1], 'used', 'KEEPTTL')
return 'ok'
`)

// RedisStore is the distributed challenge store. Single-use semantics hold
// across instances: the Lua script makes check-and-mark one atomic step on
// the Redis side.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, ch Challenge) error {
	key := challengeKeyPrefix + ch.Nonce
	value := strconv.FormatInt(ch.ExpiresAt.UnixMilli(), 10)
	ttl := time.Until(ch.ExpiresAt) + retention
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, nonce string, now time.Time) error {
	key := challengeKeyPrefix + nonce
	result, err := consumeScript.Run(ctx, s.client, []string{key}, now.UnixMilli()).Text()
	if err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	switch result {
	case "ok":
		return nil
	case "unknown":
		return sentinel.ErrNotFound
	case "expired":
		return sentinel.ErrExpired
	case "replayed":
		return sentinel.ErrAlreadyUsed
	default:
		return fmt.Errorf("consume challenge: unexpected script result %q", result)
	}
}

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
