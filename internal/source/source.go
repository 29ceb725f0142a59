// Package source contains the event provider adapters.
//
// Every adapter maps one third-party API to the common event shape. Adapters
// are fetch-and-map only: no persistence, no retries beyond the request
// timeout, and any transport/parse/schema problem comes back as an error for
// the aggregator to absorb.
package source

import (
	"context"
	"net/http"
	"time"

	"eventbot/internal/event"
)

// Adapter is a single event provider.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, w event.Window) ([]event.Event, error)
}

const defaultFetchTimeout = 15 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}
