// internal/app/dispatch/dispatcher.go
package dispatch

import (
	"context"

	"go.uber.org/zap"
)

// DurableStore is the sink bundles are ultimately handed to. Store must be
// idempotent against at-least-once delivery: re-storing a bundle whose
// entries already exist is a no-op, not an error.
type DurableStore interface {
	StoreBundle(ctx context.Context, b *Bundle) error
}

// OutboxStore persists a bundle alongside its mutation. Enqueue must honor
// the transactional session in ctx, so an enqueued bundle commits - or
// rolls back - with the mutation that produced it.
type OutboxStore interface {
	Enqueue(ctx context.Context, b *Bundle) error
}

// Dispatcher is the single gateway between mutations and their side
// effects. Operations that compose with other mutations call Defer inside
// their transaction; stand-alone operations call Dispatch after their own
// transaction has returned.
type Dispatcher struct {
	durable DurableStore
	outbox  OutboxStore
	log     *zap.Logger
}

func New(durable DurableStore, outbox OutboxStore, log *zap.Logger) *Dispatcher {
	return &Dispatcher{durable: durable, outbox: outbox, log: log}
}

// Defer parks the bundle in the outbox using the ambient transaction ctx.
// If the enclosing transaction rolls back, the outbox row vanishes with it
// and the bundle is never visible. The drain worker delivers committed
// bundles to the durable store.
func (d *Dispatcher) Defer(ctx context.Context, b *Bundle) error {
	if b == nil || b.Empty() {
		return nil
	}
	return d.outbox.Enqueue(ctx, b)
}

// Dispatch writes the bundle straight through to the durable store. Used
// by operations that always run as their own transaction boundary, after
// that transaction has committed. A failed write falls back to the outbox
// so the bundle is never silently lost; only a double failure surfaces.
func (d *Dispatcher) Dispatch(ctx context.Context, b *Bundle) error {
	if b == nil || b.Empty() {
		return nil
	}
	if err := d.durable.StoreBundle(ctx, b); err != nil {
		d.log.Error("bundle dispatch failed; falling back to outbox",
			zap.String("bundle_id", b.ID),
			zap.Int("logs", len(b.Logs)),
			zap.Int("notifications", len(b.Notifications)),
			zap.Error(err))
		if qerr := d.outbox.Enqueue(ctx, b); qerr != nil {
			d.log.Error("outbox fallback failed; bundle lost unless caller retries",
				zap.String("bundle_id", b.ID),
				zap.Error(qerr))
			return qerr
		}
	}
	return nil
}
