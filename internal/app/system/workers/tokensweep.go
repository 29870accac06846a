// internal/app/system/workers/tokensweep.go
package workers

import (
	"context"
	"sync"
	"time"

	groupstore "github.com/dalemusser/civihub/internal/app/store/groups"
	"go.uber.org/zap"
)

// TokenSweep is a background worker that clears expired join codes off
// group documents. Lookups already refuse expired codes, so the sweep is
// housekeeping, not enforcement.
type TokenSweep struct {
	groups   *groupstore.Store
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewTokenSweep creates a new join-token sweep worker.
func NewTokenSweep(groups *groupstore.Store, logger *zap.Logger, interval time.Duration) *TokenSweep {
	return &TokenSweep{
		groups:   groups,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background sweep loop.
func (w *TokenSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("join token sweep worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *TokenSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("join token sweep worker stopped")
}

func (w *TokenSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *TokenSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cleared, err := w.groups.ClearExpiredJoinTokens(ctx, time.Now().UTC())
	if err != nil {
		w.log.Error("failed to clear expired join tokens", zap.Error(err))
		return
	}
	if cleared > 0 {
		w.log.Info("cleared expired join tokens", zap.Int64("count", cleared))
	}
}
