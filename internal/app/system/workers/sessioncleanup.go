// internal/app/system/workers/sessioncleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/ezhangle/elle/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ExpiredSessionDeleter removes sessions past their expiry.
type ExpiredSessionDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweeper periodically deletes expired sessions. The Mongo TTL
// monitor does the same job, but only about once a minute and not at all on
// some deployments.
type SessionSweeper struct {
	sessions ExpiredSessionDeleter
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSessionSweeper creates a sweeper that runs every interval.
func NewSessionSweeper(store ExpiredSessionDeleter, logger *zap.Logger, interval time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: store,
		log:      logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *SessionSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session sweeper started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish. It is safe to
// call more than once.
func (w *SessionSweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("session sweeper stopped")
}

func (w *SessionSweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one pass and returns how many sessions were removed.
func (w *SessionSweeper) Sweep() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Long())
	defer cancel()

	count, err := w.sessions.DeleteExpired(ctx, w.now())
	if err != nil {
		w.log.Error("failed to delete expired sessions", zap.Error(err))
		return 0
	}
	if count > 0 {
		w.log.Info("deleted expired sessions", zap.Int64("count", count))
	}
	return count
}
