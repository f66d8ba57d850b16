package events

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEncodeEnvelope(t *testing.T) {
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	raw, err := encode(Event{Type: DonationCompleted, Key: "d1", ProjectID: "p1", OccurredAt: at, Data: map[string]any{"amount": 1000}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != DonationCompleted || got["key"] != "d1" || got["project_id"] != "p1" {
		t.Fatalf("unexpected envelope: %v", got)
	}
}

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	if err := p.Publish(context.Background(), Event{Type: VolunteerApproved, Key: "r1", ProjectID: "p1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"event":"volunteer.approved"`) || !strings.Contains(out, `"component":"events"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}
