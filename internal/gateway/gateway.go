// Package gateway talks to the Lightning payment gateway: a Core Lightning
// style node reached over JSON-RPC for invoice creation and lookup, and over
// websocket for payment notifications. The gateway owns the invoice lifecycle;
// this package never persists anything.
package gateway

import (
	"context"
	"errors"
	"time"
)

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPaid    PaymentStatus = "paid"
	PaymentExpired PaymentStatus = "expired"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

// PaymentRequest is the freshly minted invoice handed back to the caller.
type PaymentRequest struct {
	Label       string
	Bolt11      string
	PaymentHash string
	ExpiresAt   time.Time
}

// Invoice is the gateway's view of an issued invoice, keyed by label.
type Invoice struct {
	Label       string
	Bolt11      string
	Description string
	AmountMsat  int64
	Status      PaymentStatus
	PaidAt      time.Time
}

// Client is the gateway surface consumed by the order service, the status
// reconciler and the worker.
type Client interface {
	Invoice(ctx context.Context, amountMsat int64, label, description string, expiry time.Duration) (*PaymentRequest, error)
	GetInvoice(ctx context.Context, label string) (*Invoice, error)
}
