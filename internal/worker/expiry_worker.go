package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer is the part of the booking service the worker drives.
type Expirer interface {
	ExpireStaleBookings(ctx context.Context, now time.Time) (int, error)
}

// ExpiryWorker periodically expires PENDING bookings past their deadline
// and lapses old seat holds.
type ExpiryWorker struct {
	expirer  Expirer
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// Stats
	totalExpired int64
	lastScanTime time.Time
	lastErr      error
}

// Stats is a snapshot of the worker counters.
type Stats struct {
	Running      bool
	TotalExpired int64
	LastScanTime time.Time
	LastError    error
}

// NewExpiryWorker creates a worker sweeping every interval.
func NewExpiryWorker(expirer Expirer, interval time.Duration, log *zap.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpiryWorker{
		expirer:  expirer,
		interval: interval,
		now:      time.Now,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval until Stop is
// called or ctx is done.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("expiry worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.log.Info("starting expiry worker", zap.Duration("interval", w.interval))
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop stops the worker and waits for an in-flight sweep.
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

func (w *ExpiryWorker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single expiry pass and returns the number of bookings
// expired.
func (w *ExpiryWorker) Sweep(ctx context.Context) int {
	now := w.now()
	n, err := w.expirer.ExpireStaleBookings(ctx, now)

	w.mu.Lock()
	w.lastScanTime = now
	w.lastErr = err
	if err == nil {
		w.totalExpired += int64(n)
	}
	w.mu.Unlock()

	if err != nil {
		w.log.Error("expiry sweep failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		w.log.Info("expiry sweep", zap.Int("expired", n))
	}
	return n
}

// Stats returns worker statistics.
func (w *ExpiryWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Running:      w.running,
		TotalExpired: w.totalExpired,
		LastScanTime: w.lastScanTime,
		LastError:    w.lastErr,
	}
}
