// Package admin serves the operator HTTP surface: a health probe, a stats
// endpoint, the subscriber list, and a manual broadcast trigger, all behind a
// shared-password header.
package admin

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"eventbot/internal/broadcast"
	"eventbot/internal/subscriber"
	logx "eventbot/pkg/logx"
)

//go:embed web
var webFS embed.FS

// Broadcaster is the slice of the broadcast coordinator the admin surface
// needs.
type Broadcaster interface {
	RunCycle(ctx context.Context, force bool) broadcast.Result
	Stats(ctx context.Context) broadcast.Stats
}

// Lister exposes the full subscriber rows (not just chat ids).
type Lister interface {
	List(ctx context.Context) ([]subscriber.Subscriber, error)
}

type Config struct {
	Enabled  bool
	Addr     string
	Password string
}

type Server struct {
	cfg  Config
	bc   Broadcaster
	subs Lister
	log  logx.Logger

	srv *http.Server
}

func New(cfg Config, bc Broadcaster, subs Lister, log logx.Logger) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:5000"
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("admin.password is required when admin is enabled")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{cfg: cfg, bc: bc, subs: subs, log: log}
	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Handle("/", http.HandlerFunc(s.handleIndex))

	r.Group(func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/admin/stats", s.handleStats)
		r.Get("/admin/subscribers", s.handleSubscribers)
		r.Post("/admin/broadcast", s.handleBroadcast)
	})
	return r
}

// auth checks the shared password header. Constant-time compare keeps the
// password length from leaking through response timing.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Admin-Password")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Password)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	b, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bc.Stats(r.Context()))
}

func (s *Server) handleSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subs.List(r.Context())
	if err != nil {
		s.log.Error("subscriber list failed", logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if subs == nil {
		subs = []subscriber.Subscriber{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(subs),
		"subscribers": subs,
	})
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"
	res := s.bc.RunCycle(r.Context(), force)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	go func() {
		s.log.Info("admin server listening", logx.String("addr", s.cfg.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("admin server exited", logx.Err(err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
