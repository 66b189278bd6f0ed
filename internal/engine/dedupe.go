package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator remembers delivery ids in Redis so retried deliveries are
// processed once. Each id is claimed with SET NX and expires after ttl.
type Deduplicator struct {
	redisClient *redis.Client
	logger      *slog.Logger
	ttl         time.Duration
}

func NewDeduplicator(redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *Deduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Deduplicator{
		redisClient: redisClient,
		logger:      logger,
		ttl:         ttl,
	}
}

func dedupeKey(deliveryID string) string {
	return fmt.Sprintf("webhook:delivery:%s", deliveryID)
}

// Claim reports whether this is the first time deliveryID is seen.
// Redis failures fail open: the delivery is treated as new and the database
// unique index catches true duplicates.
func (d *Deduplicator) Claim(ctx context.Context, deliveryID string) bool {
	ok, err := d.redisClient.SetNX(ctx, dedupeKey(deliveryID), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		d.logger.Error("dedupe claim failed", "error", err, "delivery_id", deliveryID)
		return true
	}

	if !ok {
		d.logger.Debug("duplicate delivery", "delivery_id", deliveryID)
	}
	return ok
}

// Release forgets deliveryID so a provider retry is processed again.
// Used when processing fails after a successful claim.
func (d *Deduplicator) Release(ctx context.Context, deliveryID string) {
	if err := d.redisClient.Del(ctx, dedupeKey(deliveryID)).Err(); err != nil {
		d.logger.Error("dedupe release failed", "error", err, "delivery_id", deliveryID)
	}
}
