// Package keepalive periodically pings the service's own public URL so
// free-tier hosts don't idle the process out.
package keepalive

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "eventbot/pkg/logx"
)

type Config struct {
	Enabled bool
	// URL to ping; required when enabled.
	URL string
	// Spec is a cron expression; defaults to every 10 minutes.
	Spec string
}

type Service struct {
	cfg    Config
	log    logx.Logger
	client *http.Client
	cron   *cron.Cron
}

func New(cfg Config, log logx.Logger) (*Service, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("keepalive.url is required when keepalive is enabled")
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 10m"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:    cfg,
		log:    log,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Spec, s.ping); err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.log.Info("keepalive started", logx.String("url", s.cfg.URL), logx.String("spec", s.cfg.Spec))
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
	}
	return nil
}

func (s *Service) ping() {
	req, err := http.NewRequest(http.MethodGet, s.cfg.URL, nil)
	if err != nil {
		s.log.Warn("keepalive request build failed", logx.Err(err))
		return
	}
	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn("keepalive ping failed", logx.Err(err))
		return
	}
	_ = resp.Body.Close()
	s.log.Debug("keepalive ping", logx.Int("status", resp.StatusCode))
}
