package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/store"
)

// fakeStore implements OrderStore with the real store's create-if-absent
// semantics.
type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]*models.Order
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*models.Order{}}
}

func (f *fakeStore) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.orders[order.OrderID]; ok {
		return store.ErrConflict
	}
	clone := *order
	f.orders[order.OrderID] = &clone
	return nil
}

func (f *fakeStore) Get(ctx context.Context, orderID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *order
	return &clone, nil
}

func (f *fakeStore) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type invoiceCall struct {
	AmountMsat  int64
	Label       string
	Description string
	Expiry      time.Duration
}

// fakeGateway records minted invoices and serves lookups by label.
type fakeGateway struct {
	mu         sync.Mutex
	calls      []invoiceCall
	invoices   map[string]*gateway.Invoice
	invoiceErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{invoices: map[string]*gateway.Invoice{}}
}

func (f *fakeGateway) Invoice(ctx context.Context, amountMsat int64, label, description string, expiry time.Duration) (*gateway.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.invoiceErr != nil {
		return nil, f.invoiceErr
	}
	f.calls = append(f.calls, invoiceCall{amountMsat, label, description, expiry})
	f.invoices[label] = &gateway.Invoice{
		Label:       label,
		Bolt11:      "lnbc-test-" + label,
		Description: description,
		AmountMsat:  amountMsat,
		Status:      gateway.PaymentUnpaid,
	}
	return &gateway.PaymentRequest{
		Label:  label,
		Bolt11: "lnbc-test-" + label,
	}, nil
}

func (f *fakeGateway) GetInvoice(ctx context.Context, label string) (*gateway.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[label]
	if !ok {
		return nil, fmt.Errorf("listinvoices %s: %w", label, gateway.ErrInvoiceNotFound)
	}
	clone := *inv
	return &clone, nil
}

func (f *fakeGateway) markPaid(label string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[label].Status = gateway.PaymentPaid
}
