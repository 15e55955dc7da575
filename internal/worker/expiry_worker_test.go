package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExpirer counts sweeps and returns a fixed number of expirations.
type stubExpirer struct {
	mu      sync.Mutex
	calls   int
	limit   int
	expired int
	err     error
}

func (s *stubExpirer) ExpirePending(ctx context.Context, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.limit = limit
	return s.expired, s.err
}

func (s *stubExpirer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubExpirer) lastLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit
}

func TestExpiryWorkerSweeps(t *testing.T) {
	expirer := &stubExpirer{expired: 3}
	worker := NewExpiryWorker(expirer, &ExpiryWorkerConfig{
		ScanInterval: 10 * time.Millisecond,
		BatchSize:    50,
	})

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	require.Eventually(t, func() bool {
		return expirer.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	worker.Stop()

	stats := worker.GetStats()
	assert.False(t, stats.IsRunning)
	assert.GreaterOrEqual(t, stats.TotalExpired, int64(6))
	assert.Equal(t, 50, expirer.lastLimit())
}

func TestExpiryWorkerStartTwice(t *testing.T) {
	worker := NewExpiryWorker(&stubExpirer{}, nil)

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	assert.Error(t, worker.Start(context.Background()))
}

func TestExpiryWorkerStopIdempotent(t *testing.T) {
	worker := NewExpiryWorker(&stubExpirer{}, DefaultExpiryWorkerConfig())

	require.NoError(t, worker.Start(context.Background()))
	worker.Stop()
	worker.Stop()
}

func TestExpiryWorkerKeepsSweepingAfterError(t *testing.T) {
	expirer := &stubExpirer{err: fmt.Errorf("repository down")}
	worker := NewExpiryWorker(expirer, &ExpiryWorkerConfig{
		ScanInterval: 10 * time.Millisecond,
		BatchSize:    10,
	})

	require.NoError(t, worker.Start(context.Background()))
	defer worker.Stop()

	require.Eventually(t, func() bool {
		return expirer.callCount() >= 3
	}, time.Second, 5*time.Millisecond)
}
