package services

import (
	"context"
	"errors"
	"fmt"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/store"
)

type PaymentType string

const (
	PaymentTypeBolt11 PaymentType = "bolt11"
	PaymentTypeBolt12 PaymentType = "bolt12"
)

func (t PaymentType) Valid() bool {
	return t == PaymentTypeBolt11 || t == PaymentTypeBolt12
}

// StatusService reconciles the gateway's invoice state with the durable order
// record. The gateway is authoritative for paid/unpaid; the record is
// authoritative for what was ordered and how far provisioning got.
type StatusService struct {
	Store   OrderStore
	Gateway gateway.Client
}

type InvoiceStatusResult struct {
	OrderID       string
	NodeCount     *int
	Hours         *int
	PaymentType   PaymentType
	PaymentStatus gateway.PaymentStatus
	// Deployment is nil until the payment event handler has moved the order
	// past pending_payment. A paid invoice with a nil Deployment means the
	// handler simply has not run yet.
	Deployment *models.Deployment
}

func (s *StatusService) InvoiceStatus(ctx context.Context, paymentType PaymentType, orderID string) (*InvoiceStatusResult, error) {
	if !paymentType.Valid() {
		return nil, ErrInvalidPaymentType
	}

	inv, err := s.Gateway.GetInvoice(ctx, orderID)
	if err != nil {
		if errors.Is(err, gateway.ErrInvoiceNotFound) {
			return nil, fmt.Errorf("%w: no invoice under label %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("gateway lookup: %w", err)
	}

	result := &InvoiceStatusResult{
		OrderID:       orderID,
		PaymentType:   paymentType,
		PaymentStatus: inv.Status,
	}

	record, err := s.Store.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Invoice exists but the record is gone. Report what the gateway
			// knows rather than failing the whole query.
			return result, nil
		}
		return nil, fmt.Errorf("read order record: %w", err)
	}

	result.NodeCount = &record.NodeCount
	result.Hours = &record.Hours

	if inv.Status == gateway.PaymentPaid && record.Status != models.OrderPendingPayment {
		result.Deployment = record.Deployment
	}
	return result, nil
}
