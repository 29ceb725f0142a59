package broadcast

import (
	"context"
	"time"
)

// Config controls one broadcast cycle.
type Config struct {
	// MinEvents is the minimum usable digest size; shortfalls trigger the
	// reset policy (re-announce already-seen events).
	MinEvents int
	// MaxEvents caps the digest.
	MaxEvents int
	// RatePerSec limits outbound sends across all recipients.
	RatePerSec int
	// SendTimeout bounds a single recipient send.
	SendTimeout time.Duration
	// WindowDays is the fetch horizon handed to the aggregator.
	WindowDays int
}

// Sender delivers one message. Implementations must not panic; delivery
// problems surface as ok=false.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) bool
}

// Directory is the read-only view of the subscriber base at cycle time.
type Directory interface {
	ChatIDs(ctx context.Context) ([]int64, error)
}

// Result aggregates one cycle's counts.
type Result struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
	Events int `json:"events"`
}

// Stats is the read-only introspection snapshot.
type Stats struct {
	DeliveredEventCount int    `json:"delivered_event_count"`
	LastFireMarker      string `json:"last_fire_marker"`
	SubscriberCount     int    `json:"subscriber_count"`
}
