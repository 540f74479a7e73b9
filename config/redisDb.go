package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/bsm/redislock"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)
var rctx = context.Background()

func GetRedisDB() *redis.Client {
	return rdb
}

func GetRedisLock() *redislock.Client {
	return locker
}

// ConnectRedisWithRetry connects the Redis client used for the per-site
// submission lock. Redis being down degrades locking, not data integrity,
// so a bounded number of attempts is enough.
func ConnectRedisWithRetry() {
	godotenv.Load()
	address := os.Getenv("REDIS_ADDRESS")
	if address == "" {
		address = "127.0.0.1:6379"
	}

	for attempt := 1; attempt <= 5; attempt++ {
		client := redis.NewClient(&redis.Options{
			Addr: address,
		})
		if err := client.Ping(rctx).Err(); err == nil {
			rdb = client
			locker = redislock.New(client)
			log.Printf("connected to redis (attempt=%d)", attempt)
			return
		} else {
			log.Printf("failed to connect redis (attempt=%d): %v", attempt, err)
		}
		time.Sleep(time.Second * time.Duration(attempt))
	}
	log.Printf("redis unavailable; site locking disabled")
}
