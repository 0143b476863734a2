package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRunServerFallsBackWithoutRedis(t *testing.T) {
	t.Setenv("ADDR", "127.0.0.1:0")

	var captured *http.Server
	open := func(ctx context.Context) (*redis.Client, error) {
		return nil, errors.New("connection refused")
	}
	listen := func(server *http.Server) error {
		captured = server
		return nil
	}

	if err := runServer(open, listen); err != nil {
		t.Fatalf("runServer: %v", err)
	}
	if captured == nil {
		t.Fatalf("listen was not called")
	}
	if captured.Addr != "127.0.0.1:0" {
		t.Fatalf("addr = %q", captured.Addr)
	}

	// The handler must be serviceable even with every remote backend down.
	rec := httptest.NewRecorder()
	captured.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}
}

func TestRunServerRequiresListen(t *testing.T) {
	open := func(ctx context.Context) (*redis.Client, error) {
		return nil, errors.New("connection refused")
	}
	if err := runServer(open, nil); err == nil {
		t.Fatalf("expected error for nil listen function")
	}
}

func TestRunServerPropagatesListenError(t *testing.T) {
	open := func(ctx context.Context) (*redis.Client, error) {
		return nil, errors.New("connection refused")
	}
	listenErr := errors.New("bind failed")
	listen := func(server *http.Server) error { return listenErr }
	if err := runServer(open, listen); !errors.Is(err, listenErr) {
		t.Fatalf("err = %v, want %v", err, listenErr)
	}
}
