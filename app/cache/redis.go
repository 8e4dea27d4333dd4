package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"
)

const (
	redisPrefix   = "inkwell:"
	redisEpochKey = redisPrefix + "epoch"
)

// Redis shares cached pages between server processes. Generations live in
// Redis too, so one process's invalidation is seen by all.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.WithContext(ctx).Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func genKey(scope string) string {
	return redisPrefix + "gen:" + scope
}

func (c *Redis) Versioned(ctx context.Context, scope, key string) string {
	vals, err := c.client.WithContext(ctx).MGet(redisEpochKey, genKey(scope)).Result()
	if err != nil {
		log.WithError(err).Warn("cache: read generations")
		vals = nil
	}
	epoch, gen := counter(vals, 0), counter(vals, 1)
	return fmt.Sprintf("%spage:%d:%s:%d:%s", redisPrefix, epoch, scope, gen, key)
}

// counter reads the i-th MGET reply; missing keys count as zero.
func counter(vals []interface{}, i int) int64 {
	if i >= len(vals) {
		return 0
	}
	s, ok := vals[i].(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.client.WithContext(ctx).Get(key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.WithError(err).Warn("cache: get")
		return nil, false
	}
	return b, true
}

func (c *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.WithContext(ctx).Set(key, value, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("cache: set")
	}
}

func (c *Redis) Invalidate(ctx context.Context, scopes ...string) {
	if len(scopes) == 0 {
		return
	}
	_, err := c.client.WithContext(ctx).Pipelined(func(pipe redis.Pipeliner) error {
		for _, scope := range scopes {
			pipe.Incr(genKey(scope))
		}
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("scopes", scopes).Error("cache: invalidate")
	}
}

// Clear bumps the epoch; old pages expire through their TTL.
func (c *Redis) Clear(ctx context.Context) {
	if err := c.client.WithContext(ctx).Incr(redisEpochKey).Err(); err != nil {
		log.WithError(err).Error("cache: clear")
	}
}

func (c *Redis) Close() error {
	return c.client.Close()
}
