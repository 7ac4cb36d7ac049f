package database

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"road-quest-server/config"
)

// Cache key layout:
//   cache:available-cars:{q}:{sortBy}:{order} -> JSON listing payload
const KeyAvailableCars = "cache:available-cars:%s:%s:%s"

var Redis *redis.Client

// InitializeRedis connects the optional listing cache. The server runs
// without it when REDIS_URL is unset.
func InitializeRedis() {
	url := config.AppConfig.Redis.URL
	if url == "" {
		log.Println("ℹ️ REDIS_URL not set, available-cars cache disabled")
		return
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("⚠️ Invalid REDIS_URL, cache disabled: %v", err)
		return
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable, cache disabled: %v", err)
		return
	}

	Redis = client
	log.Println("✅ Successfully connected to redis")
}

// CacheTTL returns the configured listing cache TTL
func CacheTTL() time.Duration {
	return time.Duration(config.AppConfig.Redis.CacheTTL) * time.Second
}

// CacheGet reads a cached payload. A miss or a disabled cache returns ok=false.
func CacheGet(ctx context.Context, key string) ([]byte, bool) {
	if Redis == nil {
		return nil, false
	}
	data, err := Redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// CacheSet stores a payload with the listing TTL. Failures are logged only;
// the cache is never allowed to fail a request.
func CacheSet(ctx context.Context, key string, data []byte) {
	if Redis == nil {
		return
	}
	if err := Redis.Set(ctx, key, data, CacheTTL()).Err(); err != nil {
		log.Printf("⚠️ Failed to cache %s: %v", key, err)
	}
}

// CacheInvalidatePrefix drops all keys under a prefix after a car mutation
func CacheInvalidatePrefix(ctx context.Context, prefix string) {
	if Redis == nil {
		return
	}
	iter := Redis.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := Redis.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("⚠️ Failed to invalidate cache key %s: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("⚠️ Cache invalidation scan failed: %v", err)
	}
}
