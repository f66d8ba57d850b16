// Package redisstore holds Redis backed adapters.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"charity/internal/domain"
)

const sequenceTTL = 48 * time.Hour

// TrackingSequence issues per-day tracking numbers with INCR. The key expires
// once the day can no longer be used for new donations.
type TrackingSequence struct {
	client *redis.Client
	prefix string
}

// NewTrackingSequence builds a sequence on client. An empty prefix defaults to "tracking:DON".
func NewTrackingSequence(client *redis.Client, prefix string) *TrackingSequence {
	if prefix == "" {
		prefix = "tracking:DON"
	}
	return &TrackingSequence{client: client, prefix: prefix}
}

func (t *TrackingSequence) key(day time.Time) string {
	return fmt.Sprintf("%s:%s", t.prefix, day.UTC().Format("20060102"))
}

func (t *TrackingSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	key := t.key(day)
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, sequenceTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, domain.Internal("tracking sequence", err)
	}
	return incr.Val(), nil
}

var _ domain.TrackingSequence = (*TrackingSequence)(nil)
