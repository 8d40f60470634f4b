package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"vocalia_back/cache"
)

const (
	reuseCacheTTL     = 24 * time.Hour
	reuseCacheTimeout = 300 * time.Millisecond
)

// reuseCache memoizes the filename produced for a (text, voice) pair so an
// identical request within the TTL skips a provider round trip. It only maps
// inputs to filenames; it never owns or deletes the audio files themselves.
type reuseCache struct {
	client *redis.Client
}

func newReuseCacheFromEnv() *reuseCache {
	client, err := cache.GetRedisClient()
	if err != nil {
		log.Printf("tts: reuse cache disabled: %v", err)
		return nil
	}
	return &reuseCache{client: client}
}

func (c *reuseCache) key(text, voiceID string) string {
	sum := sha256.Sum256([]byte(voiceID + "\x00" + text))
	return "tts:reuse:" + hex.EncodeToString(sum[:])
}

func (c *reuseCache) lookup(ctx context.Context, text, voiceID string) (string, bool) {
	if c == nil || c.client == nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, reuseCacheTimeout)
	defer cancel()

	filename, err := c.client.Get(ctx, c.key(text, voiceID)).Result()
	if err != nil {
		return "", false
	}
	return filename, filename != ""
}

func (c *reuseCache) store(ctx context.Context, text, voiceID, filename string) {
	if c == nil || c.client == nil || filename == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, reuseCacheTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.key(text, voiceID), filename, reuseCacheTTL).Err(); err != nil {
		log.Printf("tts: store reuse cache entry failed: %v", err)
	}
}
