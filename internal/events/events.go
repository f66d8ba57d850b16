// Package events publishes lifecycle events to downstream consumers. Publishing
// is best-effort: callers log failures and never undo the transition.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Event types emitted by the lifecycles.
const (
	DonationCompleted   = "donation.completed"
	DonationVerified    = "donation.verified"
	DonationRefunded    = "donation.refunded"
	VolunteerRegistered = "volunteer.registered"
	VolunteerApproved   = "volunteer.approved"
	VolunteerWithdrawn  = "volunteer.withdrawn"
	VolunteerCompleted  = "volunteer.completed"
)

// Event is one lifecycle fact. Key is the entity id and partitions the stream.
type Event struct {
	Type       string         `json:"type"`
	Key        string         `json:"key"`
	ProjectID  string         `json:"project_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

func encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// LogPublisher writes events to the structured log. It is used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) error {
	p.logger.Info().
		Str("event", e.Type).
		Str("key", e.Key).
		Str("project_id", e.ProjectID).
		Interface("data", e.Data).
		Msg("lifecycle event")
	return nil
}
