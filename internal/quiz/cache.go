package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storyquiz/backend/internal/models"
)

const (
	statsKeyFmt       = "stats:user:%d"
	leaderboardKey    = "leaderboard:weekly"
	defaultCacheTTL   = 5 * time.Minute
	cacheJitterWindow = 30 * time.Second
)

// Cache fronts the stats and leaderboard reads with Redis. A nil
// *Cache is valid and caches nothing, so the service works unchanged
// when Redis is not configured. TTLs carry a small random jitter so
// entries written in a burst do not all expire together.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) GetStats(ctx context.Context, userID int64) (*models.UserStats, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(statsKeyFmt, userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get stats: %v", err)
		}
		return nil, false
	}
	var stats models.UserStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (c *Cache) SetStats(ctx context.Context, userID int64, stats *models.UserStats) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(statsKeyFmt, userID), raw, c.jitteredTTL()).Err(); err != nil {
		log.Printf("[cache] set stats: %v", err)
	}
}

func (c *Cache) GetLeaderboard(ctx context.Context) ([]models.LeaderboardEntry, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, leaderboardKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get leaderboard: %v", err)
		}
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *Cache) SetLeaderboard(ctx context.Context, entries []models.LeaderboardEntry) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, leaderboardKey, raw, c.jitteredTTL()).Err(); err != nil {
		log.Printf("[cache] set leaderboard: %v", err)
	}
}

// Invalidate drops the user's stats entry and the shared leaderboard
// after a new attempt lands.
func (c *Cache) Invalidate(ctx context.Context, userID int64) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, fmt.Sprintf(statsKeyFmt, userID), leaderboardKey).Err(); err != nil {
		log.Printf("[cache] invalidate: %v", err)
	}
}

func (c *Cache) jitteredTTL() time.Duration {
	return c.ttl + time.Duration(rand.Int63n(int64(cacheJitterWindow)))
}
