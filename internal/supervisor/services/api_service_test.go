// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/rulemine/internal/repository"
)

var _ suture.Service = (*APIService)(nil)

// fakeHTTPServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type fakeHTTPServer struct {
	listenErr   error
	shutdownErr error
	listens     atomic.Int32
	shutdowns   atomic.Int32
	started     chan struct{}
	stopOnce    sync.Once
	stop        chan struct{}
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 4), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	f.listens.Add(1)
	f.started <- struct{}{}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func awaitStart(t *testing.T, f *fakeHTTPServer) {
	t.Helper()
	select {
	case <-f.started:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}
}

// fakeWarmer records the ids it was asked to compile.
type fakeWarmer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (w *fakeWarmer) Prewarm(_ context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ids = append(w.ids, id)
	return w.err
}

func (w *fakeWarmer) calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ids...)
}

func TestNewAPIService_Defaults(t *testing.T) {
	t.Parallel()

	for _, timeout := range []time.Duration{0, -5 * time.Second} {
		svc := NewAPIService(newFakeHTTPServer(), APIServiceConfig{ShutdownTimeout: timeout}, zerolog.Nop())
		if svc.shutdownTimeout != DefaultShutdownTimeout {
			t.Errorf("NewAPIService(%v).shutdownTimeout = %v, want %v", timeout, svc.shutdownTimeout, DefaultShutdownTimeout)
		}
	}
	if got := NewAPIService(newFakeHTTPServer(), APIServiceConfig{}, zerolog.Nop()).String(); got != "api-server" {
		t.Errorf("String() = %q, want api-server", got)
	}
}

func TestAPIService_Serve(t *testing.T) {
	t.Parallel()

	bindErr := errors.New("bind: address already in use")
	drainErr := errors.New("shutdown timeout")

	tests := []struct {
		name        string
		listenErr   error
		shutdownErr error
		cancel      bool
		wantErr     error
	}{
		{name: "graceful shutdown", cancel: true, wantErr: context.Canceled},
		{name: "startup failure", listenErr: bindErr, wantErr: bindErr},
		{name: "shutdown failure", shutdownErr: drainErr, cancel: true, wantErr: drainErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := newFakeHTTPServer()
			server.listenErr = tt.listenErr
			server.shutdownErr = tt.shutdownErr
			svc := NewAPIService(server, APIServiceConfig{ShutdownTimeout: time.Second}, zerolog.Nop())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			awaitStart(t, server)
			if tt.cancel {
				cancel()
			}

			select {
			case err := <-errCh:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Serve() error = %v, want %v", err, tt.wantErr)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("Serve did not return")
			}
			if tt.cancel && server.shutdowns.Load() != 1 {
				t.Errorf("Shutdown calls = %d, want 1", server.shutdowns.Load())
			}
		})
	}
}

func TestAPIService_WarmsLatestRuleSet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		warmErr error
		wantLog string
	}{
		{name: "compiled", wantLog: "Latest rule set compiled"},
		{name: "empty store", warmErr: fmt.Errorf("load: %w", repository.ErrNotFound), wantLog: "No rule set stored yet"},
		{name: "store failure still serves", warmErr: repository.ErrClosed, wantLog: "Serving without a precompiled rule set"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf syncBuffer
			warmer := &fakeWarmer{err: tt.warmErr}
			server := newFakeHTTPServer()
			svc := NewAPIService(server, APIServiceConfig{Addr: ":8080", ShutdownTimeout: time.Second, Warmer: warmer}, zerolog.New(&buf))

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			awaitStart(t, server)
			cancel()
			if err := <-errCh; !errors.Is(err, context.Canceled) {
				t.Errorf("Serve() error = %v, want context.Canceled", err)
			}

			if got := warmer.calls(); len(got) != 1 || got[0] != latestRuleSet {
				t.Errorf("Prewarm ids = %v, want [%s]", got, latestRuleSet)
			}
			out := buf.String()
			for _, want := range []string{tt.wantLog, `"addr":":8080"`, "API drained"} {
				if !strings.Contains(out, want) {
					t.Errorf("log = %s, want %q", out, want)
				}
			}
		})
	}
}

func TestAPIService_UnderSupervisor(t *testing.T) {
	t.Parallel()

	server := newFakeHTTPServer()
	sup := suture.New("test-sup", suture.Spec{FailureBackoff: 10 * time.Millisecond, Timeout: 2 * time.Second})
	sup.Add(NewAPIService(server, APIServiceConfig{ShutdownTimeout: time.Second}, zerolog.Nop()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	awaitStart(t, server)

	cancel()
	<-errCh
	if server.shutdowns.Load() < 1 {
		t.Error("Shutdown was not called")
	}
}

// syncBuffer is a bytes.Buffer safe for a logger writing from another goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
