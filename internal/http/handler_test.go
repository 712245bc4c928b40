package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lnplaylive/internal/gateway"
	"lnplaylive/internal/models"
	"lnplaylive/internal/pricing"
	"lnplaylive/internal/services"
	"lnplaylive/internal/store"

	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func (f *fakeStore) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
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

type fakeGateway struct {
	mu       sync.Mutex
	invoices map[string]*gateway.Invoice
}

func (f *fakeGateway) Invoice(ctx context.Context, amountMsat int64, label, description string, expiry time.Duration) (*gateway.PaymentRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices[label] = &gateway.Invoice{
		Label:       label,
		Description: description,
		AmountMsat:  amountMsat,
		Status:      gateway.PaymentUnpaid,
	}
	return &gateway.PaymentRequest{Label: label, Bolt11: "lnbc-test-" + label}, nil
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

func newTestServer() (*Server, *fakeStore, *fakeGateway) {
	st := &fakeStore{orders: map[string]*models.Order{}}
	gw := &fakeGateway{invoices: map[string]*gateway.Invoice{}}
	ordersSvc := &services.OrderService{
		Store:   st,
		Gateway: gw,
		Pricing: pricing.Service{},
		Prefix:  "lnplay.live",
	}
	statusSvc := &services.StatusService{Store: st, Gateway: gw}
	return NewServer(NewHandler(ordersSvc, statusSvc)), st, gw
}

func doRequest(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestCreateOrderEndpoint(t *testing.T) {
	srv, _, _ := newTestServer()

	rec, body := doRequest(t, srv, http.MethodPost, "/orders", `{"node_count":32,"hours":10}`)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, float64(32), body["node_count"])
	require.Equal(t, float64(10), body["hours"])
	require.Equal(t, float64(240000*32*10), body["amount_msat"])
	require.NotEmpty(t, body["order_id"])
	require.NotEmpty(t, body["bolt11_invoice"])
	require.NotEmpty(t, body["expires_after"])
}

func TestCreateOrderEndpointValidation(t *testing.T) {
	srv, _, _ := newTestServer()

	cases := []struct {
		name string
		body string
		want string
	}{
		{"invalid node count", `{"node_count":12,"hours":10}`, "node count"},
		{"hours too low", `{"node_count":8,"hours":2}`, "minimum hours"},
		{"hours too high", `{"node_count":8,"hours":505}`, "maximum hours"},
		{"non-integer node count", `{"node_count":8.5,"hours":10}`, "must be an integer"},
		{"non-integer hours", `{"node_count":8,"hours":"ten"}`, "must be an integer"},
		{"missing fields", `{}`, "required"},
		{"garbage body", `{nope`, "invalid json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := doRequest(t, srv, http.MethodPost, "/orders", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Contains(t, body["error"], tc.want)
		})
	}
}

func TestInvoiceStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestServer()

	rec, created := doRequest(t, srv, http.MethodPost, "/orders", `{"node_count":16,"hours":48}`)
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := created["order_id"].(string)

	rec, body := doRequest(t, srv, http.MethodGet, "/orders/"+orderID+"?payment_type=bolt11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, orderID, body["order_id"])
	require.Equal(t, "unpaid", body["invoice_status"])
	require.Equal(t, float64(16), body["node_count"])
	require.Equal(t, float64(48), body["hours"])
	require.Equal(t, "not_deployed", body["deployment_details"])
}

func TestInvoiceStatusPaidButNotDeployed(t *testing.T) {
	srv, _, gw := newTestServer()

	rec, created := doRequest(t, srv, http.MethodPost, "/orders", `{"node_count":16,"hours":48}`)
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := created["order_id"].(string)

	gw.mu.Lock()
	gw.invoices[orderID].Status = gateway.PaymentPaid
	gw.mu.Unlock()

	rec, body := doRequest(t, srv, http.MethodGet, "/orders/"+orderID+"?payment_type=bolt11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "paid", body["invoice_status"])
	require.Equal(t, "not_deployed", body["deployment_details"])
}

func TestInvoiceStatusDeploying(t *testing.T) {
	srv, st, gw := newTestServer()

	rec, created := doRequest(t, srv, http.MethodPost, "/orders", `{"node_count":16,"hours":48}`)
	require.Equal(t, http.StatusOK, rec.Code)
	orderID := created["order_id"].(string)

	gw.mu.Lock()
	gw.invoices[orderID].Status = gateway.PaymentPaid
	gw.mu.Unlock()
	st.mu.Lock()
	st.orders[orderID].Status = models.OrderStartingDeployment
	st.orders[orderID].Deployment = &models.Deployment{ServiceVersion: "v0.0.1", StartedAt: time.Now().UTC()}
	st.mu.Unlock()

	rec, body := doRequest(t, srv, http.MethodGet, "/orders/"+orderID+"?payment_type=bolt11", "")
	require.Equal(t, http.StatusOK, rec.Code)

	details, ok := body["deployment_details"].(map[string]any)
	require.True(t, ok, "deployment_details should be an object once deploying")
	require.Equal(t, "v0.0.1", details["service_version"])
}

func TestInvoiceStatusErrors(t *testing.T) {
	srv, _, _ := newTestServer()

	rec, _ := doRequest(t, srv, http.MethodGet, "/orders/unknown-id?payment_type=bolt11", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := doRequest(t, srv, http.MethodGet, "/orders/whatever?payment_type=bolt13", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, body["error"], "payment type")
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer()
	rec, body := doRequest(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}
