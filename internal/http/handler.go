package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/orders"
	"lnplaylive/internal/pricing"
	"lnplaylive/internal/services"
	"lnplaylive/internal/store"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
)

// notDeployed is the sentinel reported while a paid order has not produced a
// deployment payload yet.
const notDeployed = "not_deployed"

type Handler struct {
	Orders   *services.OrderService
	Status   *services.StatusService
	validate *validatorv10.Validate
}

func NewHandler(ordersSvc *services.OrderService, statusSvc *services.StatusService) *Handler {
	return &Handler{
		Orders:   ordersSvc,
		Status:   statusSvc,
		validate: validatorv10.New(),
	}
}

type createOrderRequest struct {
	NodeCount int `json:"node_count" validate:"required"`
	Hours     int `json:"hours" validate:"required"`
}

type createOrderResponse struct {
	OrderID      string `json:"order_id"`
	NodeCount    int    `json:"node_count"`
	Hours        int    `json:"hours"`
	AmountMsat   int64  `json:"amount_msat"`
	ExpiresAfter string `json:"expires_after"`
	Bolt11       string `json:"bolt11_invoice"`
}

type invoiceStatusResponse struct {
	OrderID       string `json:"order_id"`
	NodeCount     *int   `json:"node_count"`
	Hours         *int   `json:"hours"`
	PaymentType   string `json:"payment_type"`
	PaymentStatus string `json:"invoice_status"`
	Deployment    any    `json:"deployment_details"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeError(w, http.StatusBadRequest, typeErr.Field+" must be an integer")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "node_count and hours are required")
		return
	}

	result, err := h.Orders.CreateOrder(r.Context(), req.NodeCount, req.Hours)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		OrderID:      result.OrderID,
		NodeCount:    result.NodeCount,
		Hours:        result.Hours,
		AmountMsat:   result.AmountMsat,
		ExpiresAfter: result.ExpiresAfter.Format(time.RFC3339),
		Bolt11:       result.Bolt11,
	})
}

func (h *Handler) InvoiceStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}
	paymentType := services.PaymentType(r.URL.Query().Get("payment_type"))

	result, err := h.Status.InvoiceStatus(r.Context(), paymentType, orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	resp := invoiceStatusResponse{
		OrderID:       result.OrderID,
		NodeCount:     result.NodeCount,
		Hours:         result.Hours,
		PaymentType:   string(result.PaymentType),
		PaymentStatus: string(result.PaymentStatus),
		Deployment:    notDeployed,
	}
	if result.Deployment != nil {
		resp.Deployment = result.Deployment
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeOrderError(w http.ResponseWriter, err error) {
	var rpcErr *gateway.RPCError
	switch {
	case errors.Is(err, orders.ErrInvalidNodeCount),
		errors.Is(err, pricing.ErrInvalidNodeCount),
		errors.Is(err, orders.ErrHoursTooLow),
		errors.Is(err, orders.ErrHoursTooHigh),
		errors.Is(err, services.ErrInvalidPaymentType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "order id already exists")
	case errors.As(err, &rpcErr):
		writeError(w, http.StatusBadGateway, rpcErr.Error())
	case errors.Is(err, gateway.ErrInvoiceNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
