package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClients derives two clients from one REDIS_URL.
//
// PubSub carries websocket events between instances. A subscribed connection
// cannot issue other commands, so it never shares a pool with Store.
//
// Store backs the key-value store and is nil unless STORE_BACKEND=redis. It
// honours context deadlines, and its read deadline stays below the store's
// own timeout so a stalled server shows up as a failed read.
type RedisClients struct {
	Store  *redis.Client
	PubSub *redis.Client
}

const redisStoreReadTimeout = 3 * time.Second

func NewRedisClients(redisURL string, withStore bool) (*RedisClients, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clients := &RedisClients{}

	pubsubOpt := *opt
	pubsubOpt.ClientName = "lexconsul-pubsub"
	clients.PubSub = redis.NewClient(&pubsubOpt)
	if err := clients.PubSub.Ping(ctx).Err(); err != nil {
		clients.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	if withStore {
		storeOpt := *opt
		storeOpt.ClientName = "lexconsul-store"
		storeOpt.ReadTimeout = redisStoreReadTimeout
		storeOpt.ContextTimeoutEnabled = true
		clients.Store = redis.NewClient(&storeOpt)
		if err := clients.Store.Ping(ctx).Err(); err != nil {
			clients.Close()
			return nil, fmt.Errorf("failed to ping Redis (store): %w", err)
		}
	}

	return clients, nil
}

func (r *RedisClients) Close() error {
	var errs []error
	for _, c := range []*redis.Client{r.Store, r.PubSub} {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
