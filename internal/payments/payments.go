// Package payments reacts to payment-confirmed notifications from the
// gateway. Delivery is at-least-once and concurrent redelivery is expected;
// the handler makes exactly one pending_payment -> starting_deployment
// transition per order no matter how often it is invoked.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/provision"
	"lnplaylive/internal/store"
)

// OrderStore is the slice of the store the handler needs: read plus the
// status-conditional replace.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*models.Order, error)
	ReplaceIfStatus(ctx context.Context, orderID string, expected models.OrderStatus, order *models.Order) error
}

type Handler struct {
	Store          OrderStore
	Gateway        gateway.Client
	Provisioner    provision.Provisioner
	Prefix         string
	ServiceVersion string

	nowFunc func() time.Time
}

func NewHandler(st OrderStore, gw gateway.Client, prov provision.Provisioner, prefix, version string) *Handler {
	return &Handler{
		Store:          st,
		Gateway:        gw,
		Provisioner:    prov,
		Prefix:         prefix,
		ServiceVersion: version,
	}
}

// HandlePaymentConfirmed processes one payment notification for the invoice
// under label. The returned error is for the caller's log only: the gateway
// has no way to consume a response, so nothing is ever re-raised to it.
func (h *Handler) HandlePaymentConfirmed(ctx context.Context, label string) error {
	inv, err := h.Gateway.GetInvoice(ctx, label)
	if err != nil {
		if errors.Is(err, gateway.ErrInvoiceNotFound) {
			return fmt.Errorf("payment notification for unknown invoice %s: %w", label, err)
		}
		return fmt.Errorf("fetch invoice %s: %w", label, err)
	}

	// Shared gateway namespace: invoices without our marker belong to some
	// other consumer. Not an error.
	if !strings.HasPrefix(inv.Description, h.Prefix) {
		return nil
	}

	order, err := h.Store.Get(ctx, label)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Creation writes the record before the invoice is handed out, so
			// this is a data-loss condition, not a normal race.
			return fmt.Errorf("order record missing for paid invoice %s: %w", label, err)
		}
		return fmt.Errorf("read order %s: %w", label, err)
	}

	// Idempotency gate: the transition already happened.
	if order.Status != models.OrderPendingPayment {
		return nil
	}

	now := h.now()
	updated := *order
	updated.Status = models.OrderStartingDeployment
	// Service-expiration clock runs from payment confirmation, not from order
	// creation.
	updated.ExpiresAfter = now.Add(time.Duration(order.Hours) * time.Hour)
	updated.Deployment = &models.Deployment{
		ServiceVersion: h.ServiceVersion,
		StartedAt:      now,
	}
	updated.UpdatedAt = now

	err = h.Store.ReplaceIfStatus(ctx, order.OrderID, models.OrderPendingPayment, &updated)
	if errors.Is(err, store.ErrStatusMismatch) {
		// Another handler instance won the race. One effective transition
		// either way.
		return nil
	}
	if err != nil {
		return fmt.Errorf("transition order %s: %w", order.OrderID, err)
	}

	log.Printf("order %s paid, starting provisioning (nodes=%d hours=%d expires_after=%s)",
		order.OrderID, order.NodeCount, order.Hours, updated.ExpiresAfter.Format(time.RFC3339))

	h.startProvisioning(ctx, &updated)
	return nil
}

// startProvisioning hands the order to the provisioning collaborator and
// writes the outcome back. The handler's contract with provisioning is only
// "a record now exists with status starting_deployment"; everything past that
// is best effort and logged.
func (h *Handler) startProvisioning(ctx context.Context, order *models.Order) {
	if h.Provisioner == nil {
		return
	}

	deployment, err := h.Provisioner.Start(ctx, order)
	now := h.now()
	next := *order
	next.UpdatedAt = now

	if err != nil {
		log.Printf("provisioning failed order=%s: %v", order.OrderID, err)
		next.Status = models.OrderFailed
		failed := *order.Deployment
		failed.Error = err.Error()
		next.Deployment = &failed
	} else {
		next.Status = models.OrderDeployed
		if deployment.ServiceVersion == "" {
			deployment.ServiceVersion = h.ServiceVersion
		}
		if deployment.CompletedAt == nil {
			deployment.CompletedAt = &now
		}
		next.Deployment = deployment
	}

	if err := h.Store.ReplaceIfStatus(ctx, order.OrderID, models.OrderStartingDeployment, &next); err != nil {
		log.Printf("write provisioning outcome failed order=%s: %v", order.OrderID, err)
	}
}

func (h *Handler) now() time.Time {
	if h.nowFunc != nil {
		return h.nowFunc().UTC()
	}
	return time.Now().UTC()
}
