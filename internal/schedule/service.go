// Package schedule fires the broadcast cycle on a timezone-aware recurring
// schedule that survives process restarts.
//
// The trigger is a poll loop over durable state, not an edge-triggered timer:
// every tick re-derives "due" from the clock and the persisted marker, so a
// restart shortly after a fire does not double-fire, and a restart after a
// missed window catches up immediately.
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	logx "eventbot/pkg/logx"
)

const (
	ModeDaily    = "daily"
	ModeInterval = "interval"
)

// Config controls the trigger.
type Config struct {
	Enabled  bool
	Mode     string // ModeDaily or ModeInterval
	SendTime string // "HH:MM", daily mode
	Interval time.Duration
	Timezone string // IANA TZ; empty means local
	// PollEvery is the tick cadence (default 30s). Shutdown is observed
	// within one tick.
	PollEvery  time.Duration
	MarkerPath string
}

// Validate rejects configs the loop could not act on.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeDaily:
		if _, _, err := parseHHMM(c.SendTime); err != nil {
			return err
		}
	case ModeInterval:
		if c.Interval <= 0 {
			return fmt.Errorf("schedule.interval must be > 0 in interval mode")
		}
	default:
		return fmt.Errorf("schedule.mode: unknown %q", c.Mode)
	}
	if tz := strings.TrimSpace(c.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("schedule.timezone: invalid %q: %w", tz, err)
		}
	}
	if strings.TrimSpace(c.MarkerPath) == "" {
		return fmt.Errorf("schedule.marker_path is required")
	}
	return nil
}

// CycleFunc runs one broadcast cycle. Once started it runs to completion;
// the scheduler never cancels an in-flight cycle.
type CycleFunc func(ctx context.Context)

type Service struct {
	mu  sync.Mutex
	cfg Config
	loc *time.Location

	run   CycleFunc
	clock Clock
	log   logx.Logger

	marker marker

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(cfg Config, run CycleFunc, clock Clock, log logx.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = RealClock
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	m, err := loadMarker(cfg.MarkerPath)
	if err != nil {
		return nil, fmt.Errorf("schedule: load marker: %w", err)
	}

	return &Service{
		cfg:    cfg,
		loc:    loc,
		run:    run,
		clock:  clock,
		log:    log,
		marker: m,
	}, nil
}

// Enabled reports the current config flag. (Thread-safe; Apply() may run concurrently.)
func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

// Apply updates hot-reloadable trigger settings (send time, interval,
// timezone). Mode and marker path changes require a restart.
func (s *Service) Apply(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return err
		}
		loc = l
	}
	s.mu.Lock()
	cfg.MarkerPath = s.cfg.MarkerPath
	cfg.Mode = s.cfg.Mode
	s.cfg = cfg
	s.loc = loc
	s.mu.Unlock()
	return nil
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	poll := s.cfg.PollEvery
	s.mu.Unlock()

	if poll <= 0 {
		poll = 30 * time.Second
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx, stopCh, poll)
	}()
	s.log.Info("scheduler started",
		logx.String("mode", s.cfg.Mode),
		logx.String("tz", s.loc.String()),
		logx.Duration("poll", poll))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// loop exits within one poll tick; stop continues in background
	}
}

func (s *Service) loop(ctx context.Context, stopCh <-chan struct{}, poll time.Duration) {
	t := s.clock.NewTicker(poll)
	defer t.Stop()

	// Immediate check on start: a restart after a missed window fires now
	// instead of waiting a tick.
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-t.C():
			s.Tick(ctx)
		}
	}
}

// Tick performs one due-check and fires at most one cycle. Exported for
// deterministic tests; the loop calls it on every poll.
func (s *Service) Tick(ctx context.Context) {
	s.mu.Lock()
	cfg := s.cfg
	loc := s.loc
	m := s.marker
	s.mu.Unlock()

	if !cfg.Enabled {
		return
	}
	now := s.clock.Now().In(loc)

	var next marker
	switch cfg.Mode {
	case ModeDaily:
		today := now.Format("2006-01-02")
		if m.LastFiredDay == today {
			return
		}
		h, min, err := parseHHMM(cfg.SendTime)
		if err != nil {
			s.log.Error("invalid send_time", logx.Err(err))
			return
		}
		if now.Hour() < h || (now.Hour() == h && now.Minute() < min) {
			return
		}
		next = marker{LastFiredDay: today}
	case ModeInterval:
		if now.Unix()-m.LastFiredEpochSeconds < int64(cfg.Interval/time.Second) {
			return
		}
		next = marker{LastFiredEpochSeconds: now.Unix()}
	default:
		return
	}

	// Persist before dispatch so a crash mid-dispatch does not duplicate this
	// period on restart. A failed write does not block the fire: the marker
	// stays stale, so the next tick re-fires and retries the write at the
	// cost of a possible duplicate delivery.
	if err := saveMarker(cfg.MarkerPath, next); err != nil {
		s.log.Error("marker write failed; next tick may duplicate this fire", logx.Err(err))
	} else {
		s.mu.Lock()
		s.marker = next
		s.mu.Unlock()
	}

	s.log.Info("schedule due; firing cycle", logx.Time("at", now))
	// The cycle must run to completion even if the app is shutting down.
	s.run(context.WithoutCancel(ctx))
}

// LastFire describes the persisted marker for stats.
func (s *Service) LastFire() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker.LastFiredDay != "" {
		return s.marker.LastFiredDay
	}
	if s.marker.LastFiredEpochSeconds != 0 {
		return time.Unix(s.marker.LastFiredEpochSeconds, 0).In(s.loc).Format(time.RFC3339)
	}
	return ""
}

func parseHHMM(s string) (h, m int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schedule.send_time: want HH:MM, got %q", s)
	}
	h, err = strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("schedule.send_time: bad hour in %q", s)
	}
	m, err = strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("schedule.send_time: bad minute in %q", s)
	}
	return h, m, nil
}
