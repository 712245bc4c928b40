// Package worker drives the asynchronous half of the order lifecycle. Two
// loops feed the same idempotent payment handler: a websocket subscription for
// low latency and a polling sweep that re-checks every pending order, so a
// dropped connection can only delay a transition, never lose it.
package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/payments"
	"lnplaylive/internal/store"

	"golang.org/x/sync/errgroup"
)

type OrderStore interface {
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	ReplaceIfStatus(ctx context.Context, orderID string, expected models.OrderStatus, order *models.Order) error
}

type Worker struct {
	Store               OrderStore
	Gateway             gateway.Client
	Handler             *payments.Handler
	Interval            time.Duration
	WSEndpoints         []string
	WSFailoverThreshold int

	nowFunc func() time.Time
}

func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w.RunWS(ctx)
		return nil
	})
	g.Go(func() error {
		w.runPoll(ctx)
		return nil
	})
	return g.Wait()
}

func (w *Worker) runPoll(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = 20 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.SyncOnce(ctx); err != nil {
			log.Printf("sync error: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce reconciles every pending_payment order against the gateway: paid
// invoices are fed through the payment handler, expired invoices expire the
// order. Per-order failures are logged and do not stop the sweep.
func (w *Worker) SyncOnce(ctx context.Context) error {
	pending, err := w.Store.ListByStatus(ctx, models.OrderPendingPayment)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	log.Printf("sync pending=%d", len(pending))

	for _, order := range pending {
		if err := w.syncOrder(ctx, order); err != nil {
			log.Printf("sync order %s failed: %v", order.OrderID, err)
		}
	}
	return nil
}

func (w *Worker) syncOrder(ctx context.Context, order *models.Order) error {
	inv, err := w.Gateway.GetInvoice(ctx, order.OrderID)
	if err != nil {
		if errors.Is(err, gateway.ErrInvoiceNotFound) {
			// Record exists but the gateway lost the invoice. Leave the order
			// alone and let an operator look at it.
			return err
		}
		return err
	}

	switch inv.Status {
	case gateway.PaymentPaid:
		return w.Handler.HandlePaymentConfirmed(ctx, order.OrderID)
	case gateway.PaymentExpired:
		return w.expire(ctx, order)
	default:
		return nil
	}
}

func (w *Worker) expire(ctx context.Context, order *models.Order) error {
	updated := *order
	updated.Status = models.OrderExpired
	updated.UpdatedAt = w.now()

	err := w.Store.ReplaceIfStatus(ctx, order.OrderID, models.OrderPendingPayment, &updated)
	if errors.Is(err, store.ErrStatusMismatch) {
		// A payment landed between our gateway read and the write. The
		// payment handler won; nothing to do.
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("order %s expired unpaid", order.OrderID)
	return nil
}

func (w *Worker) now() time.Time {
	if w.nowFunc != nil {
		return w.nowFunc().UTC()
	}
	return time.Now().UTC()
}
