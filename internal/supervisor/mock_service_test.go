// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// mockService counts its runs and can fail a fixed number of times.
type mockService struct {
	name       string
	maxFails   int32
	startCount atomic.Int32
	failCount  atomic.Int32
	started    chan struct{}
}

func newMockService(name string, maxFails int) *mockService {
	return &mockService{name: name, maxFails: int32(maxFails), started: make(chan struct{}, 16)}
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.failCount.Add(1) <= m.maxFails {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }
