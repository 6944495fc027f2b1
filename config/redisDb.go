package config

import (
	"context"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects the shared redis client and the lock client.
// Redis here is a best-effort optimization (rate limiting, renumber
// serialization); the service stays up without it.
func ConnectRedisWithRetry(ctx context.Context) {
	logger := GetLogger()
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		address = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr: address,
	})

	var attempt int
	for {
		attempt++
		err := client.Ping(ctx).Err()
		if err == nil {
			rdb = client
			locker = redislock.New(client)
			return
		}

		LogError(logger, "redisDb.go", "ConnectRedisWithRetry", "client.Ping", map[string]any{
			"attempt": attempt,
			"address": address,
		}, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoffDelay(attempt)):
		}
	}
}
