package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// consumeScript deletes KEYS[1] only if it holds ARGV[1].
// Returns 1 on match, 0 on mismatch, -1 when the key is absent.
var consumeScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if not v then
  return -1
end
if v == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// RedisStore keeps codes in Redis with a native TTL.
type RedisStore struct {
	c      *redis.Client
	prefix string
}

func NewRedisStore(c *redis.Client) *RedisStore {
	return &RedisStore{c: c, prefix: "otp:"}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return c, nil
}

func (r *RedisStore) Save(ctx context.Context, key, code string, ttl time.Duration) error {
	return r.c.Set(ctx, r.prefix+key, code, ttl).Err()
}

func (r *RedisStore) Consume(ctx context.Context, key, code string) (bool, error) {
	res, err := consumeScript.Run(ctx, r.c, []string{r.prefix + key}, code).Int()
	if err != nil {
		return false, err
	}
	switch res {
	case 1:
		return true, nil
	case -1:
		return false, ErrNoCode
	default:
		return false, nil
	}
}
