// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/rulemine/internal/logging"
)

func newTestTree(t *testing.T) *SupervisorTree {
	t.Helper()
	tree, err := NewSupervisorTree(logging.NewSlogLogger(zerolog.Nop()), TreeConfig{
		FailureBackoff:  50 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	return tree
}

func waitStarted(t *testing.T, svc *mockService, times int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for range times {
		select {
		case <-svc.started:
		case <-deadline:
			t.Fatalf("%s started %d times, want %d", svc.name, svc.startCount.Load(), times)
		}
	}
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	t.Parallel()

	tree, err := NewSupervisorTree(nil, TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree() error = %v", err)
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("config = %+v, want %+v", tree.config, DefaultTreeConfig())
	}
}

func TestSupervisorTree_RunsEveryLayer(t *testing.T) {
	t.Parallel()

	tree := newTestTree(t)
	data := newMockService("data", 0)
	messaging := newMockService("messaging", 0)
	api := newMockService("api", 0)
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, svc := range []*mockService{data, messaging, api} {
		waitStarted(t, svc, 1)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("ServeBackground() error = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not shut down in time")
	}

	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("UnstoppedServiceReport() = %v, %v, want none", report, err)
	}
}

func TestSupervisorTree_RestartsFailedService(t *testing.T) {
	t.Parallel()

	tree := newTestTree(t)
	flaky := newMockService("flaky-listener", 2)
	steady := newMockService("steady-api", 0)
	tree.AddMessagingService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tree.ServeBackground(ctx)

	waitStarted(t, flaky, 3)
	if n := steady.startCount.Load(); n != 1 {
		t.Errorf("api service started %d times, want 1", n)
	}
}
