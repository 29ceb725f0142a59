// Package app wires the services together and owns the process lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventbot/internal/admin"
	"eventbot/internal/aggregate"
	"eventbot/internal/broadcast"
	"eventbot/internal/config"
	"eventbot/internal/keepalive"
	"eventbot/internal/ledger"
	"eventbot/internal/schedule"
	"eventbot/internal/source"
	"eventbot/internal/subscriber"
	"eventbot/internal/transport"
	"eventbot/internal/transport/telegram"
	logx "eventbot/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	store *subscriber.Store
	led   *ledger.Ledger
	agg   *aggregate.Aggregator
	coord *broadcast.Coordinator
	sched *schedule.Service
	tg    *telegram.Adapter
	adm   *admin.Server
	keep  *keepalive.Service

	updates chan transport.Update

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(configPath string) (*App, error) {
	cfgMgr := config.NewManager(configPath)
	cfg, err := cfgMgr.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgMgr.SetLogger(log.With(logx.String("svc", "config")))

	a := &App{cfgMgr: cfgMgr, logSvc: logSvc, log: log}
	if err := a.build(cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config) error {
	store, err := a.buildStore(cfg)
	if err != nil {
		return err
	}
	a.store = store

	if cfg.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	led, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	a.led = led

	aggCfg, adapters, err := a.buildAdapters(cfg)
	if err != nil {
		return err
	}
	agg := aggregate.New(aggCfg, adapters, source.NewFallback(), a.log.With(logx.String("svc", "aggregate")))
	a.agg = agg

	schedCfg, err := scheduleConfig(cfg.Schedule)
	if err != nil {
		return err
	}

	pollTimeout, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout)
	if err != nil {
		return err
	}
	sendTimeout, err := config.ParseDurationOrDefault("broadcast.send_timeout", cfg.Broadcast.SendTimeout, 15*time.Second)
	if err != nil {
		return err
	}
	tg, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
		SendTimeout: sendTimeout,
	}, a.log.With(logx.String("svc", "telegram")))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	a.tg = tg

	bcCfg, err := broadcastConfig(cfg)
	if err != nil {
		return err
	}

	// Coordinator and scheduler reference each other (lastFire for stats, run
	// for the trigger); the scheduler is built second with a closure over the
	// coordinator.
	var sched *schedule.Service
	lastFire := func() string {
		if sched == nil {
			return ""
		}
		return sched.LastFire()
	}
	coord := broadcast.NewCoordinator(bcCfg, agg, led, store,
		&reportingSender{tg: tg, log: a.log.With(logx.String("svc", "sender"))},
		lastFire, a.log.With(logx.String("svc", "broadcast")))
	a.coord = coord

	sched, err = schedule.New(schedCfg, func(ctx context.Context) {
		coord.RunCycle(ctx, false)
	}, schedule.RealClock, a.log.With(logx.String("svc", "schedule")))
	if err != nil {
		return err
	}
	a.sched = sched

	if cfg.Admin.Enabled {
		adm, err := admin.New(admin.Config{
			Enabled:  true,
			Addr:     cfg.Admin.Addr,
			Password: cfg.Admin.Password,
		}, coord, store, a.log.With(logx.String("svc", "admin")))
		if err != nil {
			return fmt.Errorf("admin: %w", err)
		}
		a.adm = adm
	}

	if cfg.Keepalive != nil && cfg.Keepalive.Enabled {
		keep, err := keepalive.New(keepalive.Config{
			Enabled: true,
			URL:     cfg.Keepalive.URL,
			Spec:    cfg.Keepalive.Spec,
		}, a.log.With(logx.String("svc", "keepalive")))
		if err != nil {
			return fmt.Errorf("keepalive: %w", err)
		}
		a.keep = keep
	}

	a.cfgMgr.SetValidator(func(ctx context.Context, cfg *config.Config) error {
		return validate(cfg)
	})
	return nil
}

func (a *App) buildStore(cfg *config.Config) (*subscriber.Store, error) {
	busy, err := config.ParseDurationField("subscribers.busy_timeout", cfg.Subscribers.BusyTimeout)
	if err != nil {
		return nil, err
	}
	store, err := subscriber.Open(subscriber.Config{
		Path:        cfg.Subscribers.Path,
		BusyTimeout: busy,
	}, a.log.With(logx.String("svc", "subscribers")))
	if err != nil {
		return nil, fmt.Errorf("subscribers: %w", err)
	}
	return store, nil
}

func (a *App) buildAdapters(cfg *config.Config) (aggregate.Config, []source.Adapter, error) {
	fetchTimeout, err := config.ParseDurationOrDefault("sources.fetch_timeout", cfg.Sources.FetchTimeout, 15*time.Second)
	if err != nil {
		return aggregate.Config{}, nil, err
	}
	collectDeadline, err := config.ParseDurationOrDefault("sources.collect_deadline", cfg.Sources.CollectDeadline, 45*time.Second)
	if err != nil {
		return aggregate.Config{}, nil, err
	}

	filter := source.NewFilter(cfg.Sources.Keywords)

	var adapters []source.Adapter
	if cfg.Sources.Eventbrite.Enabled {
		adapters = append(adapters, source.NewEventbrite(source.EventbriteConfig{
			Token:    cfg.Sources.Eventbrite.Token,
			BaseURL:  cfg.Sources.Eventbrite.BaseURL,
			PageSize: cfg.Sources.Eventbrite.PageSize,
			Timeout:  fetchTimeout,
		}, filter))
	}
	if cfg.Sources.Meetup.Enabled {
		adapters = append(adapters, source.NewMeetup(source.MeetupConfig{
			BaseURL: cfg.Sources.Meetup.BaseURL,
			Queries: cfg.Sources.Meetup.Queries,
			Timeout: fetchTimeout,
		}, filter))
	}
	if cfg.Sources.RSS.Enabled && len(cfg.Sources.RSS.Feeds) > 0 {
		adapters = append(adapters, source.NewRSS(source.RSSConfig{
			Feeds:   cfg.Sources.RSS.Feeds,
			Timeout: fetchTimeout,
		}, filter))
	}
	if len(adapters) == 0 {
		a.log.Warn("no live sources enabled; every digest will come from the fallback catalog")
	}

	return aggregate.Config{CollectDeadline: collectDeadline}, adapters, nil
}

// Start brings the services up and launches the background loops.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.updates = make(chan transport.Update, 64)
	if err := a.tg.Start(runCtx, a.updates); err != nil {
		cancel()
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.commandLoop(runCtx)
	}()

	if a.sched.Enabled() {
		a.sched.Start(runCtx)
	} else {
		a.log.Info("scheduler disabled; broadcasts are manual only")
	}

	if a.adm != nil {
		if err := a.adm.Start(); err != nil {
			cancel()
			return err
		}
	}
	if a.keep != nil {
		if err := a.keep.Start(); err != nil {
			cancel()
			return err
		}
	}

	// Config watch + reload fan-out.
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgMgr.Watch(runCtx); err != nil {
			a.log.Warn("config watch exited", logx.Err(err))
		}
	}()
	ch := a.cfgMgr.Subscribe(1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgMgr.Unsubscribe(ch)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-ch:
				if !ok {
					return
				}
				a.reload(cfg)
			}
		}
	}()

	a.log.Info("started")
	return nil
}

// reload applies the hot-reloadable slice of a new config: log level/sinks,
// trigger timing, broadcast limits, source toggles and keywords. Storage paths
// and the telegram token need a restart.
func (a *App) reload(cfg *config.Config) {
	a.logSvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	if schedCfg, err := scheduleConfig(cfg.Schedule); err != nil {
		a.log.Warn("reload: schedule config rejected", logx.Err(err))
	} else if err := a.sched.Apply(schedCfg); err != nil {
		a.log.Warn("reload: schedule apply failed", logx.Err(err))
	}

	if bcCfg, err := broadcastConfig(cfg); err != nil {
		a.log.Warn("reload: broadcast config rejected", logx.Err(err))
	} else {
		a.coord.Apply(bcCfg)
	}

	if aggCfg, adapters, err := a.buildAdapters(cfg); err != nil {
		a.log.Warn("reload: sources config rejected", logx.Err(err))
	} else {
		a.agg.Apply(aggCfg, adapters)
	}

	a.log.Info("config reloaded")
}

// Stop shuts the services down in dependency order: trigger first so no new
// cycle starts, then inbound traffic, then the outer surfaces and storage.
func (a *App) Stop(ctx context.Context) {
	a.sched.Stop(ctx)

	if a.cancel != nil {
		a.cancel()
	}
	_ = a.tg.Stop(ctx)

	if a.adm != nil {
		_ = a.adm.Stop(ctx)
	}
	if a.keep != nil {
		_ = a.keep.Stop(ctx)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("shutdown timed out waiting for loops")
	}

	_ = a.store.Close()
	a.log.Info("stopped")
	_ = a.logSvc.Close()
}

// reportingSender adapts the transport error contract to the coordinator's
// boolean one, logging the error detail here so the cycle log stays compact.
type reportingSender struct {
	tg  *telegram.Adapter
	log logx.Logger
}

func (s *reportingSender) Send(ctx context.Context, chatID int64, text string) bool {
	if err := s.tg.SendText(ctx, chatID, text); err != nil {
		s.log.Debug("send error", logx.Int64("chat_id", chatID), logx.Err(err))
		return false
	}
	return true
}

func scheduleConfig(sc config.ScheduleConfig) (schedule.Config, error) {
	interval, err := config.ParseDurationField("schedule.interval", sc.Interval)
	if err != nil {
		return schedule.Config{}, err
	}
	poll, err := config.ParseDurationOrDefault("schedule.poll_every", sc.PollEvery, 30*time.Second)
	if err != nil {
		return schedule.Config{}, err
	}
	mode := sc.Mode
	if mode == "" {
		mode = schedule.ModeDaily
	}
	sendTime := sc.SendTime
	if sendTime == "" && mode == schedule.ModeDaily {
		sendTime = "09:00"
	}
	return schedule.Config{
		Enabled:    sc.Enabled,
		Mode:       mode,
		SendTime:   sendTime,
		Interval:   interval,
		Timezone:   sc.Timezone,
		PollEvery:  poll,
		MarkerPath: sc.MarkerPath,
	}, nil
}

func broadcastConfig(cfg *config.Config) (broadcast.Config, error) {
	sendTimeout, err := config.ParseDurationOrDefault("broadcast.send_timeout", cfg.Broadcast.SendTimeout, 15*time.Second)
	if err != nil {
		return broadcast.Config{}, err
	}
	return broadcast.Config{
		MinEvents:   cfg.Broadcast.MinEvents,
		MaxEvents:   cfg.Broadcast.MaxEvents,
		RatePerSec:  cfg.Broadcast.RatePerSec,
		SendTimeout: sendTimeout,
		WindowDays:  cfg.Sources.WindowDays,
	}, nil
}

// validate is the reload gate: a config that fails here never replaces the
// running one.
func validate(cfg *config.Config) error {
	sc, err := scheduleConfig(cfg.Schedule)
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	if _, err := broadcastConfig(cfg); err != nil {
		return err
	}
	if _, err := config.ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		return err
	}
	return nil
}
