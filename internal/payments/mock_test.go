package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/store"
)

// fakeStore mirrors the real store's conditional replace: the write only
// lands while the record still holds the expected status.
type fakeStore struct {
	mu           sync.Mutex
	orders       map[string]*models.Order
	replaceCount int
	// beforeReplace runs under the lock before the condition check, letting
	// tests interleave a competing writer.
	beforeReplace func(orders map[string]*models.Order)
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]*models.Order{}}
}

func (f *fakeStore) put(order *models.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *order
	f.orders[order.OrderID] = &clone
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

func (f *fakeStore) ReplaceIfStatus(ctx context.Context, orderID string, expected models.OrderStatus, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beforeReplace != nil {
		hook := f.beforeReplace
		f.beforeReplace = nil
		hook(f.orders)
	}
	current, ok := f.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	if current.Status != expected {
		return store.ErrStatusMismatch
	}
	clone := *order
	f.orders[orderID] = &clone
	f.replaceCount++
	return nil
}

func (f *fakeStore) status(orderID string) models.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID].Status
}

func (f *fakeStore) get(orderID string) models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.orders[orderID]
}

type fakeGateway struct {
	mu       sync.Mutex
	invoices map[string]*gateway.Invoice
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{invoices: map[string]*gateway.Invoice{}}
}

func (f *fakeGateway) put(inv *gateway.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[inv.Label] = inv
}

func (f *fakeGateway) Invoice(ctx context.Context, amountMsat int64, label, description string, expiry time.Duration) (*gateway.PaymentRequest, error) {
	return nil, errors.New("not used by the payment handler")
}

func (f *fakeGateway) GetInvoice(ctx context.Context, label string) (*gateway.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[label]
	if !ok {
		return nil, gateway.ErrInvoiceNotFound
	}
	clone := *inv
	return &clone, nil
}

type fakeProvisioner struct {
	mu     sync.Mutex
	calls  int
	result *models.Deployment
	err    error
}

func (f *fakeProvisioner) Start(ctx context.Context, order *models.Order) (*models.Deployment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		clone := *f.result
		return &clone, nil
	}
	return &models.Deployment{Remote: "lxd.example.com:8443", StartedAt: time.Now().UTC()}, nil
}

func (f *fakeProvisioner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
