package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/orders"
	"lnplaylive/internal/pricing"

	"github.com/google/uuid"
)

var (
	ErrInvalidPaymentType = errors.New("invalid payment type: should be 'bolt11' or 'bolt12'")
	ErrOrderNotFound      = errors.New("order not found")
)

// OrderStore is the slice of the store the synchronous services need.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, orderID string) (*models.Order, error)
}

type OrderService struct {
	Store         OrderStore
	Gateway       gateway.Client
	Pricing       pricing.Service
	InvoiceExpiry time.Duration
	Prefix        string

	nowFunc func() time.Time
}

type CreateOrderResult struct {
	OrderID      string
	NodeCount    int
	Hours        int
	AmountMsat   int64
	ExpiresAfter time.Time
	Bolt11       string
}

// CreateOrder validates the request, prices it, mints the invoice and persists
// the order record, in that order. Validation failures leave no side effects;
// a gateway failure leaves no store record; a store failure is surfaced rather
// than returning a half-created response.
func (s *OrderService) CreateOrder(ctx context.Context, nodeCount, hours int) (*CreateOrderResult, error) {
	if err := orders.Validate(nodeCount, hours); err != nil {
		return nil, err
	}

	rate, err := s.Pricing.RateFor(nodeCount)
	if err != nil {
		return nil, err
	}
	amountMsat := rate * int64(nodeCount) * int64(hours)

	orderID := uuid.NewString()
	description := fmt.Sprintf("%s - %d nodes for %d hours.", s.Prefix, nodeCount, hours)

	expiry := s.InvoiceExpiry
	if expiry <= 0 {
		expiry = 300 * time.Second
	}
	req, err := s.Gateway.Invoice(ctx, amountMsat, orderID, description, expiry)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	now := s.now()
	// Offer-validity estimate only. The service-expiration clock is rewritten
	// from the payment confirmation time when the invoice is paid.
	expiresAfter := now.Add(time.Duration(hours) * time.Hour)

	order := &models.Order{
		OrderID:      orderID,
		NodeCount:    nodeCount,
		Hours:        hours,
		AmountMsat:   amountMsat,
		Description:  description,
		Status:       models.OrderPendingPayment,
		ExpiresAfter: expiresAfter,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	return &CreateOrderResult{
		OrderID:      orderID,
		NodeCount:    nodeCount,
		Hours:        hours,
		AmountMsat:   amountMsat,
		ExpiresAfter: expiresAfter,
		Bolt11:       req.Bolt11,
	}, nil
}

func (s *OrderService) now() time.Time {
	if s.nowFunc != nil {
		return s.nowFunc().UTC()
	}
	return time.Now().UTC()
}
