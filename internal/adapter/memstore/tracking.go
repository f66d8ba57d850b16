package memstore

import (
	"context"
	"time"

	"charity/internal/domain"
)

// TrackingSequence implements domain.TrackingSequence with a per-day counter.
type TrackingSequence struct {
	s *Store
}

func (t *TrackingSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	key := day.UTC().Format("20060102")
	t.s.sequences[key]++
	return t.s.sequences[key], nil
}

var _ domain.TrackingSequence = (*TrackingSequence)(nil)
