// Package aggregate fans out to all source adapters, merges and deduplicates
// their output, and guarantees a minimum usable result via the fallback
// catalog.
package aggregate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventbot/internal/event"
	"eventbot/internal/source"
	logx "eventbot/pkg/logx"
)

// Config controls the fan-out.
type Config struct {
	// Workers bounds fetch parallelism; 0 means one worker per adapter
	// (capped at 8).
	Workers int
	// CollectDeadline bounds the whole fan-out; adapters still running when it
	// expires contribute nothing. Default 45s.
	CollectDeadline time.Duration
}

type Aggregator struct {
	mu       sync.Mutex
	cfg      Config
	adapters []source.Adapter

	fallback *source.Fallback
	log      logx.Logger

	now func() time.Time
}

func New(cfg Config, adapters []source.Adapter, fallback *source.Fallback, log logx.Logger) *Aggregator {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Aggregator{cfg: cfg, adapters: adapters, fallback: fallback, log: log, now: time.Now}
}

// Apply swaps the adapter set and fan-out limits (config reload: source
// toggles and keyword changes arrive as a rebuilt adapter list).
func (a *Aggregator) Apply(cfg Config, adapters []source.Adapter) {
	a.mu.Lock()
	a.cfg = cfg
	a.adapters = adapters
	a.mu.Unlock()
}

type fetchResult struct {
	name   string
	events []event.Event
	err    error
}

// Collect runs every adapter concurrently against the window, concatenates
// results in completion order, deduplicates by normalized title key (first
// occurrence wins), and, when the result is below minCount, pads with the
// fallback catalog.
//
// Collect never fails: a zero-result cycle returns an empty slice. The caller
// applies the final cap.
func (a *Aggregator) Collect(ctx context.Context, w event.Window, minCount int) []event.Event {
	a.mu.Lock()
	cfg := a.cfg
	adapters := a.adapters
	a.mu.Unlock()

	deadline := cfg.CollectDeadline
	if deadline <= 0 {
		deadline = 45 * time.Second
	}
	fctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	merged := a.fetchAll(fctx, cfg, adapters, w)

	seen := make(map[string]bool, len(merged))
	out := make([]event.Event, 0, len(merged))
	for _, ev := range merged {
		key := event.TitleKey(ev.Title)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ev)
	}
	live := len(out)

	// A shortfall pulls in the whole catalog (minus title collisions), not
	// just enough to reach the minimum; the caller applies the final cap.
	if a.fallback != nil && len(out) < minCount {
		for _, ev := range a.fallback.All(a.now()) {
			key := event.TitleKey(ev.Title)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ev)
		}
	}

	if len(out) < minCount {
		a.log.Info("collection below minimum",
			logx.Int("got", len(out)), logx.Int("min", minCount))
	}
	a.log.Debug("collection done",
		logx.Int("live", live), logx.Int("total", len(out)))
	return out
}

// fetchAll runs the bounded worker pool over all adapters and concatenates
// outputs in the order adapters complete. Downstream steps are
// order-insensitive aside from the final cap, so first-to-finish is fine.
func (a *Aggregator) fetchAll(ctx context.Context, cfg Config, adapters []source.Adapter, w event.Window) []event.Event {
	if len(adapters) == 0 {
		return nil
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = len(adapters)
		if workers > 8 {
			workers = 8
		}
	}

	jobs := make(chan source.Adapter, len(adapters))
	results := make(chan fetchResult, len(adapters))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for ad := range jobs {
				results <- fetchOne(ctx, ad, w)
			}
		}()
	}

	for _, ad := range adapters {
		jobs <- ad
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var merged []event.Event
	for r := range results {
		if r.err != nil {
			a.log.Warn("source fetch failed", logx.String("source", r.name), logx.Err(r.err))
			continue
		}
		a.log.Debug("source fetched", logx.String("source", r.name), logx.Int("events", len(r.events)))
		merged = append(merged, r.events...)
	}
	return merged
}

// fetchOne isolates a single adapter call: a panic or an error both degrade
// to an empty contribution instead of aborting the cycle.
func fetchOne(ctx context.Context, ad source.Adapter, w event.Window) (res fetchResult) {
	res.name = ad.Name()
	defer func() {
		if r := recover(); r != nil {
			res.events = nil
			res.err = fmt.Errorf("panic in %s adapter: %v", res.name, r)
		}
	}()
	evs, err := ad.Fetch(ctx, w)
	res.events, res.err = evs, err
	return res
}
