// internal/app/system/workers/outboxdrain.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/civihub/internal/app/store/audit"
	"github.com/dalemusser/civihub/internal/app/store/outbox"
	"go.uber.org/zap"
)

// OutboxDrain is a background worker that delivers committed log and
// notification bundles from the dispatch outbox to their durable stores.
// The durable store tolerates redelivery, so a crash between delivery and
// removal is safe.
type OutboxDrain struct {
	outbox   *outbox.Store
	durable  *audit.Store
	log      *zap.Logger
	interval time.Duration
	batch    int64
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewOutboxDrain creates a new outbox drain worker.
//
// Parameters:
//   - outboxStore: the parked-bundle store
//   - durable: the audit/notification sink
//   - logger: zap logger for logging
//   - interval: how often to drain (e.g., 5 seconds)
func NewOutboxDrain(outboxStore *outbox.Store, durable *audit.Store, logger *zap.Logger, interval time.Duration) *OutboxDrain {
	return &OutboxDrain{
		outbox:   outboxStore,
		durable:  durable,
		log:      logger,
		interval: interval,
		batch:    100,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background drain loop.
func (w *OutboxDrain) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("outbox drain worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OutboxDrain) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("outbox drain worker stopped")
}

func (w *OutboxDrain) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

func (w *OutboxDrain) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := w.outbox.ListPending(ctx, w.batch)
	if err != nil {
		w.log.Error("failed to list pending bundles", zap.Error(err))
		return
	}

	delivered := 0
	for _, e := range entries {
		if err := w.durable.StoreBundle(ctx, e.Bundle()); err != nil {
			w.log.Error("failed to deliver bundle; will retry",
				zap.String("bundle_id", e.BundleID),
				zap.Int("attempts", e.Attempts),
				zap.Error(err))
			if aerr := w.outbox.RecordAttempt(ctx, e.BundleID); aerr != nil {
				w.log.Error("failed to record delivery attempt", zap.Error(aerr))
			}
			continue
		}
		if err := w.outbox.MarkDispatched(ctx, e.BundleID); err != nil {
			w.log.Error("failed to remove delivered bundle",
				zap.String("bundle_id", e.BundleID),
				zap.Error(err))
			continue
		}
		delivered++
	}

	if delivered > 0 {
		w.log.Info("delivered outbox bundles", zap.Int("count", delivered))
	}
}
