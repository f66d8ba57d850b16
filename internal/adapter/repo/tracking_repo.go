package repo

import (
	"context"
	"time"

	"charity/internal/domain"
	"charity/internal/infra"
	"charity/internal/sqlinline"
)

// TrackingSequencePG hands out per-day tracking numbers from an upserted counter row.
type TrackingSequencePG struct {
	sql infra.SQLExecutor
}

func NewTrackingSequence(sql infra.SQLExecutor) *TrackingSequencePG {
	return &TrackingSequencePG{sql: sql}
}

func (s *TrackingSequencePG) Next(ctx context.Context, day time.Time) (int64, error) {
	var n int64
	if err := s.sql.QueryRow(ctx, sqlinline.QNextTrackingSequence, day.UTC().Format("2006-01-02")).Scan(&n); err != nil {
		return 0, mapErr("next tracking sequence", err)
	}
	return n, nil
}

var _ domain.TrackingSequence = (*TrackingSequencePG)(nil)
