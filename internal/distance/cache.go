package distance

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes estimator results in Redis. Cache failures never fail the
// lookup; they fall through to the wrapped estimator.
type Cache struct {
	next Estimator
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
}

func NewCache(next Estimator, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{next: next, rdb: rdb, ttl: ttl, log: log}
}

type cachedLeg struct {
	Km            float64 `json:"km"`
	TravelMinutes float64 `json:"travel_minutes"`
}

func (c *Cache) Between(ctx context.Context, from, to string) (Leg, error) {
	key := cacheKey(from, to)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var cl cachedLeg
		if err := json.Unmarshal([]byte(raw), &cl); err == nil {
			return Leg{Km: cl.Km, TravelTime: minutesToDuration(cl.TravelMinutes)}, nil
		}
	} else if err != redis.Nil {
		c.log.Warn("distance cache read failed", slog.Any("err", err))
	}

	leg, err := c.next.Between(ctx, from, to)
	if err != nil {
		return Leg{}, err
	}

	payload, err := json.Marshal(cachedLeg{Km: leg.Km, TravelMinutes: leg.TravelTime.Minutes()})
	if err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.Warn("distance cache write failed", slog.Any("err", err))
		}
	}
	return leg, nil
}

func cacheKey(from, to string) string {
	// Travel cost is treated as symmetric; canonicalize the pair.
	if to < from {
		from, to = to, from
	}
	return "distance:" + from + "|" + to
}
