package worker

import (
	"context"
	"log"
	"time"

	"lnplaylive/internal/gateway"
)

// RunWS keeps a notification subscription open against the configured
// endpoints, rotating after consecutive failures. Messages feed the same
// idempotent handler as the poll loop, so duplicates are harmless.
func (w *Worker) RunWS(ctx context.Context) {
	if len(w.WSEndpoints) == 0 {
		log.Printf("ws disabled: no ws endpoints configured")
		return
	}

	threshold := w.WSFailoverThreshold
	if threshold <= 0 {
		threshold = 3
	}

	idx := 0
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		endpoint := w.WSEndpoints[idx]
		if err := w.listenOnce(ctx, endpoint); err != nil {
			log.Printf("ws %s: %v", endpoint, err)
			failures++
			if failures >= threshold {
				idx = (idx + 1) % len(w.WSEndpoints)
				failures = 0
				log.Printf("ws failover to %s", w.WSEndpoints[idx])
			}
		} else {
			failures = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func (w *Worker) listenOnce(ctx context.Context, endpoint string) error {
	client := gateway.NewWSClient(endpoint)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	log.Printf("ws connected %s", endpoint)

	if err := client.Subscribe(ctx, "invoice_payment"); err != nil {
		return err
	}

	for {
		msg, err := client.Read(ctx)
		if err != nil {
			return err
		}

		n, ok, err := gateway.ParseNotification(msg)
		if err != nil {
			log.Printf("ws parse failed: %v", err)
			continue
		}
		if !ok {
			continue
		}

		if err := w.Handler.HandlePaymentConfirmed(ctx, n.Label); err != nil {
			log.Printf("payment handler failed label=%s: %v", n.Label, err)
		}
	}
}
