package ingress

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zoff-tech/webhook-relay/pkg/config"
)

type redisSource struct {
	client *redis.Client
	key    string
}

func newRedisSource(cfg *config.IngressSettings) Source {
	client := redis.NewClient(&redis.Options{Addr: cfg.URL})

	// Ping to surface connection problems early, but keep going so the
	// consumer can retry once Redis comes up.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: failed to connect to Redis at %s: %v", cfg.URL, err)
	}

	return &redisSource{client: client, key: cfg.Key}
}

func (r *redisSource) Run(ctx context.Context, handle Handler) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		result, err := r.client.BRPop(ctx, 0, r.key).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Redis ingress error: %v, retrying in 1s", err)
			time.Sleep(time.Second)
			continue
		}
		// result is a pair: [key, value]
		if len(result) < 2 {
			continue
		}
		handle(ctx, []byte(result[1]))
	}
}

func (r *redisSource) Close() error {
	return r.client.Close()
}
