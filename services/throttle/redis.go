package throttle

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/Jati804/internal-web-sanur-akademi-sub000/core"
)

const keyPrefix = "sanur:login:attempts:"

type redisLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
}

func NewRedisClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

// NewRedisLimiter counts attempts in redis so that every API instance shares them.
func NewRedisLimiter(client *redis.Client, conf *core.Config) core.AttemptLimiter {
	return &redisLimiter{
		client:      client,
		maxAttempts: int64(conf.Login.MaxAttempts),
		window:      conf.Login.Window,
	}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, keyPrefix+key).Int64()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		return false, errors.Wrap(err, "reading attempts")
	}
	return n < l.maxAttempts, nil
}

func (l *redisLimiter) Fail(ctx context.Context, key string) error {
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, keyPrefix+key)
		pipe.Expire(ctx, keyPrefix+key, l.window)
		return nil
	})
	return errors.Wrap(err, "recording attempt")
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	return errors.Wrap(l.client.Del(ctx, keyPrefix+key).Err(), "resetting attempts")
}
