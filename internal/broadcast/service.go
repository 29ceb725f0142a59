// Package broadcast orchestrates one delivery cycle: collect, filter against
// the ledger, dispatch to every subscriber, record what was sent.
package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"eventbot/internal/aggregate"
	"eventbot/internal/event"
	"eventbot/internal/ledger"
	logx "eventbot/pkg/logx"
)

type Coordinator struct {
	mu  sync.Mutex
	cfg Config

	agg    *aggregate.Aggregator
	led    *ledger.Ledger
	dir    Directory
	sender Sender
	log    logx.Logger

	limiter *rate.Limiter

	// lastFire is supplied by the scheduler for Stats(); the coordinator
	// itself does not own schedule state.
	lastFire func() string

	now func() time.Time

	// cycleMu serializes cycles: a manual trigger racing the scheduled one
	// must not interleave ledger read-modify-write.
	cycleMu sync.Mutex
}

func NewCoordinator(cfg Config, agg *aggregate.Aggregator, led *ledger.Ledger, dir Directory, sender Sender, lastFire func() string, log logx.Logger) *Coordinator {
	if cfg.MinEvents <= 0 {
		cfg.MinEvents = 10
	}
	if cfg.MaxEvents <= 0 {
		cfg.MaxEvents = 10
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if lastFire == nil {
		lastFire = func() string { return "" }
	}
	return &Coordinator{
		cfg:      cfg,
		agg:      agg,
		led:      led,
		dir:      dir,
		sender:   sender,
		log:      log,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		lastFire: lastFire,
		now:      time.Now,
	}
}

// Apply updates hot-reloadable limits.
func (c *Coordinator) Apply(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg.MinEvents > 0 {
		c.cfg.MinEvents = cfg.MinEvents
	}
	if cfg.MaxEvents > 0 {
		c.cfg.MaxEvents = cfg.MaxEvents
	}
	if cfg.RatePerSec > 0 {
		c.cfg.RatePerSec = cfg.RatePerSec
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	if cfg.SendTimeout > 0 {
		c.cfg.SendTimeout = cfg.SendTimeout
	}
	if cfg.WindowDays > 0 {
		c.cfg.WindowDays = cfg.WindowDays
	}
}

// RunCycle executes one broadcast cycle.
//
// force bypasses delivery-history filtering and leaves the ledger untouched
// (operator re-announce). Otherwise unseen events are selected, falling back
// to the full list when the unseen count is under the minimum (freshness is
// secondary to hitting the content bar), and the ledger records the digest.
func (c *Coordinator) RunCycle(ctx context.Context, force bool) Result {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	c.mu.Lock()
	cfg := c.cfg
	lim := c.limiter
	c.mu.Unlock()

	cycleID := uuid.NewString()[:8]
	log := c.log.With(logx.String("cycle", cycleID), logx.Bool("force", force))
	start := c.now()

	chatIDs, err := c.dir.ChatIDs(ctx)
	if err != nil {
		log.Error("subscriber list unavailable", logx.Err(err))
		return Result{}
	}
	if len(chatIDs) == 0 {
		log.Info("no subscribers; skipping cycle")
		return Result{}
	}

	window := event.NewWindow(start, cfg.WindowDays)
	events := c.agg.Collect(ctx, window, cfg.MinEvents)

	var toSend []event.Event
	if force {
		toSend = capEvents(events, cfg.MaxEvents)
	} else {
		unseen := c.led.FilterUnseen(events)
		if len(unseen) < cfg.MinEvents {
			log.Info("unseen below minimum; re-announcing full list",
				logx.Int("unseen", len(unseen)), logx.Int("min", cfg.MinEvents))
			unseen = events
		}
		toSend = capEvents(unseen, cfg.MaxEvents)
	}

	if len(toSend) == 0 {
		log.Warn("zero events collected; nothing sent")
		return Result{}
	}

	body := FormatDigest(toSend, start)

	res := Result{Events: len(toSend)}
	for _, chatID := range chatIDs {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				// Context gone mid-dispatch: count the rest as failed rather
				// than silently dropping them.
				res.Failed += len(chatIDs) - res.Sent - res.Failed
				break
			}
		}
		sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
		ok := c.sender.Send(sctx, chatID, body)
		cancel()
		if ok {
			res.Sent++
		} else {
			res.Failed++
			log.Warn("send failed", logx.Int64("chat_id", chatID))
		}
	}

	if !force {
		if err := c.led.MarkSent(toSend); err != nil {
			// Content is already out; losing the write risks duplicate
			// delivery next cycle. Loud, but not fatal.
			log.Error("ledger write failed", logx.Err(err))
		}
	}

	if res.Failed > 0 {
		log.Warn("cycle finished with failures",
			logx.Int("sent", res.Sent), logx.Int("failed", res.Failed),
			logx.Int("events", res.Events), logx.Duration("took", c.now().Sub(start)))
	} else {
		log.Info("cycle finished",
			logx.Int("sent", res.Sent), logx.Int("events", res.Events),
			logx.Duration("took", c.now().Sub(start)))
	}
	return res
}

// Digest collects and caps events without touching the ledger, for the
// on-demand /events command.
func (c *Coordinator) Digest(ctx context.Context) ([]event.Event, string) {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	now := c.now()
	events := capEvents(c.agg.Collect(ctx, event.NewWindow(now, cfg.WindowDays), cfg.MinEvents), cfg.MaxEvents)
	if len(events) == 0 {
		return nil, ""
	}
	return events, FormatDigest(events, now)
}

// Stats returns the read-only introspection snapshot.
func (c *Coordinator) Stats(ctx context.Context) Stats {
	count := 0
	if ids, err := c.dir.ChatIDs(ctx); err == nil {
		count = len(ids)
	}
	return Stats{
		DeliveredEventCount: c.led.Len(),
		LastFireMarker:      c.lastFire(),
		SubscriberCount:     count,
	}
}

func capEvents(events []event.Event, max int) []event.Event {
	if max > 0 && len(events) > max {
		return events[:max]
	}
	return events
}
