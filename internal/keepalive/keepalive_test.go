package keepalive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	logx "eventbot/pkg/logx"
)

func TestNewRequiresURLWhenEnabled(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Enabled: true}, logx.Nop()); err == nil {
		t.Fatal("expected error for enabled keepalive without url")
	}
	if _, err := New(Config{Enabled: false}, logx.Nop()); err != nil {
		t.Fatalf("disabled keepalive must not require a url: %v", err)
	}
}

func TestDisabledStartIsNoop(t *testing.T) {
	t.Parallel()
	s, err := New(Config{}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestPing(t *testing.T) {
	t.Parallel()
	hit := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case hit <- struct{}{}:
		default:
		}
	}))
	defer srv.Close()

	s, err := New(Config{Enabled: true, URL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.ping()
	select {
	case <-hit:
	case <-time.After(time.Second):
		t.Fatal("ping did not reach the server")
	}
}

func TestBadSpecRejectedAtStart(t *testing.T) {
	t.Parallel()
	s, err := New(Config{Enabled: true, URL: "http://localhost:1", Spec: "not a spec"}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Start(); err == nil {
		_ = s.Stop(context.Background())
		t.Fatal("expected error for invalid cron spec")
	}
}
