package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AbinayReddy2501/prakruthihomestay/pkg/logger"
)

// PendingExpirer sweeps lapsed holds. It is satisfied by the booking service.
type PendingExpirer interface {
	ExpirePending(ctx context.Context, limit int) (int, error)
}

// ExpiryWorkerConfig contains configuration for the expiry worker.
type ExpiryWorkerConfig struct {
	// ScanInterval is the interval between sweeps for lapsed holds
	ScanInterval time.Duration
	// BatchSize is the number of bookings to expire in each sweep
	BatchSize int
}

// DefaultExpiryWorkerConfig returns default configuration.
func DefaultExpiryWorkerConfig() *ExpiryWorkerConfig {
	return &ExpiryWorkerConfig{
		ScanInterval: 30 * time.Second,
		BatchSize:    100,
	}
}

// ExpiryWorker periodically cancels PENDING bookings whose hold TTL has
// passed and frees their nights. Calendar entries also lapse on read, so the
// worker is a cleanup pass rather than a correctness requirement.
type ExpiryWorker struct {
	expirer PendingExpirer
	config  *ExpiryWorkerConfig
	log     *logger.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalExpired int64
	lastScanTime time.Time
}

// NewExpiryWorker creates a new expiry worker.
func NewExpiryWorker(expirer PendingExpirer, config *ExpiryWorkerConfig) *ExpiryWorker {
	if config == nil {
		config = DefaultExpiryWorkerConfig()
	}

	return &ExpiryWorker{
		expirer: expirer,
		config:  config,
		log:     logger.Get(),
		stopCh:  make(chan struct{}),
	}
}

// Start starts the expiry worker.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("expiry worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("starting expiry worker",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Int("batch_size", w.config.BatchSize))

	w.wg.Add(1)
	go w.scan(ctx)

	return nil
}

// Stop stops the expiry worker and waits for the current sweep to finish.
func (w *ExpiryWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("expiry worker stopped")
}

func (w *ExpiryWorker) scan(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	// Run immediately on start
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	w.mu.Lock()
	w.lastScanTime = time.Now()
	w.mu.Unlock()

	expired, err := w.expirer.ExpirePending(ctx, w.config.BatchSize)
	if err != nil {
		w.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired == 0 {
		return
	}

	w.mu.Lock()
	w.totalExpired += int64(expired)
	w.mu.Unlock()

	w.log.Info("expired lapsed holds", zap.Int("count", expired))
}

// ExpiryWorkerStats contains worker statistics.
type ExpiryWorkerStats struct {
	IsRunning    bool      `json:"is_running"`
	TotalExpired int64     `json:"total_expired"`
	LastScanTime time.Time `json:"last_scan_time"`
}

// GetStats returns worker statistics.
func (w *ExpiryWorker) GetStats() *ExpiryWorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return &ExpiryWorkerStats{
		IsRunning:    w.running,
		TotalExpired: w.totalExpired,
		LastScanTime: w.lastScanTime,
	}
}
