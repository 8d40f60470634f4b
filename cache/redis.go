package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisOnce   sync.Once
	redisClient *redis.Client
	redisErr    error
)

// GetRedisClient returns a singleton Redis client configured from environment
// variables. REDIS_URL takes precedence when set; otherwise REDIS_ADDR
// (default localhost:6379), REDIS_PASSWORD and REDIS_DB are used.
func GetRedisClient() (*redis.Client, error) {
	redisOnce.Do(func() {
		var options *redis.Options

		if rawURL := strings.TrimSpace(os.Getenv("REDIS_URL")); rawURL != "" {
			parsed, err := redis.ParseURL(rawURL)
			if err != nil {
				redisErr = fmt.Errorf("cache: parse REDIS_URL: %w", err)
				return
			}
			options = parsed
		} else {
			addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
			if addr == "" {
				addr = "localhost:6379"
			}
			db := 0
			if rawDB := strings.TrimSpace(os.Getenv("REDIS_DB")); rawDB != "" {
				if parsed, err := strconv.Atoi(rawDB); err == nil {
					db = parsed
				}
			}
			options = &redis.Options{
				Addr:     addr,
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       db,
			}
		}

		client := redis.NewClient(options)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			redisErr = fmt.Errorf("cache: ping redis %s failed: %w", options.Addr, err)
			_ = client.Close()
			return
		}

		redisClient = client
	})

	return redisClient, redisErr
}

// Enabled reports whether a usable Redis client was initialized.
func Enabled() bool {
	client, err := GetRedisClient()
	return err == nil && client != nil
}

// Close releases the cached Redis connection. Mainly useful for tests.
func Close() error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Close()
}
