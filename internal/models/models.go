package models

import "time"

type OrderStatus string

const (
	OrderPendingPayment     OrderStatus = "pending_payment"
	OrderStartingDeployment OrderStatus = "starting_deployment"
	OrderDeployed           OrderStatus = "deployed"
	OrderExpired            OrderStatus = "expired"
	OrderFailed             OrderStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderDeployed, OrderExpired, OrderFailed:
		return true
	}
	return false
}

type Order struct {
	OrderID      string
	NodeCount    int
	Hours        int
	AmountMsat   int64
	Description  string
	Status       OrderStatus
	ExpiresAfter time.Time
	Deployment   *Deployment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Deployment is the provisioning payload written back into the order record
// after payment confirmation. It starts as a placeholder when the order enters
// starting_deployment and is filled in by the provisioner.
type Deployment struct {
	ServiceVersion string     `json:"service_version"`
	Remote         string     `json:"remote,omitempty"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}
