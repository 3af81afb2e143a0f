package cache

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/middleware"
	"agora/internal/models"

	"github.com/redis/go-redis/v9"
)

// TallyCache is a cache-aside layer for vote tallies. A nil client disables it.
type TallyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewTallyCache(rdb *redis.Client, ttl time.Duration) *TallyCache {
	if ttl <= 0 {
		ttl = DefaultTallyTTL
	}
	return &TallyCache{rdb: rdb, ttl: ttl}
}

// Get returns the cached tally or loads it with load.
func (c *TallyCache) Get(ctx context.Context, targetType models.TargetType, targetID uint, load func() (models.VoteTally, error)) (models.VoteTally, error) {
	var tally models.VoteTally
	if c == nil {
		return load()
	}
	err := Aside(ctx, c.rdb, TallyKey(targetType, targetID), &tally, c.ttl, func() error {
		loaded, err := load()
		tally = loaded
		return err
	})
	return tally, err
}

// Forget drops the cached tally of one target. Failures are logged and
// left to expire with the TTL.
func (c *TallyCache) Forget(ctx context.Context, targetType models.TargetType, targetID uint) {
	if c == nil {
		return
	}
	if err := Invalidate(ctx, c.rdb, TallyKey(targetType, targetID)); err != nil {
		middleware.Logger.WarnContext(ctx, "tally cache invalidation failed",
			slog.String("target_type", string(targetType)),
			slog.Uint64("target_id", uint64(targetID)),
			slog.String("error", err.Error()),
		)
	}
}
