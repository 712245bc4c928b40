package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// RPCError is a definitive rejection from the gateway, as opposed to a
// transport fault. Callers use errors.As to tell the two apart.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("gateway rpc error %d: %s", e.Code, e.Message)
}

type RPCClient struct {
	baseURL string
	rune    string
	client  *http.Client
	reqID   atomic.Int64
}

func NewRPCClient(baseURL, authRune string, timeout time.Duration) *RPCClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		rune:    authRune,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *RPCClient) BaseURL() string {
	return c.baseURL
}

// Invoice mints a BOLT11 invoice for amountMsat, correlated by label. The
// label doubles as the order id, so a duplicate label is rejected by the
// gateway rather than silently reissued.
func (c *RPCClient) Invoice(ctx context.Context, amountMsat int64, label, description string, expiry time.Duration) (*PaymentRequest, error) {
	params := map[string]any{
		"amount_msat": amountMsat,
		"label":       label,
		"description": description,
		"expiry":      int64(expiry / time.Second),
	}
	var resp struct {
		Bolt11      string `json:"bolt11"`
		PaymentHash string `json:"payment_hash"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := c.call(ctx, "invoice", params, &resp); err != nil {
		return nil, err
	}
	if err := CheckBolt11(resp.Bolt11); err != nil {
		return nil, fmt.Errorf("gateway returned malformed bolt11: %w", err)
	}
	return &PaymentRequest{
		Label:       label,
		Bolt11:      resp.Bolt11,
		PaymentHash: resp.PaymentHash,
		ExpiresAt:   time.Unix(resp.ExpiresAt, 0).UTC(),
	}, nil
}

// GetInvoice looks up an invoice by label. Returns ErrInvoiceNotFound when the
// gateway has no invoice under that label.
func (c *RPCClient) GetInvoice(ctx context.Context, label string) (*Invoice, error) {
	params := map[string]any{"label": label}
	var resp struct {
		Invoices []rpcInvoice `json:"invoices"`
	}
	if err := c.call(ctx, "listinvoices", params, &resp); err != nil {
		return nil, err
	}
	for _, inv := range resp.Invoices {
		if inv.Label == label {
			return decodeInvoice(inv), nil
		}
	}
	return nil, ErrInvoiceNotFound
}

func (c *RPCClient) call(ctx context.Context, method string, params any, out any) error {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      c.reqID.Add(1),
		"method":  method,
		"params":  params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.rune != "" {
		req.Header.Set("Rune", c.rune)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(b))
		if msg != "" {
			return fmt.Errorf("gateway http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("gateway http status %d", resp.StatusCode)
	}

	var env struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if env.Error != nil {
		return &RPCError{Code: env.Error.Code, Message: env.Error.Message}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}

type rpcInvoice struct {
	Label       string `json:"label"`
	Bolt11      string `json:"bolt11"`
	Description string `json:"description"`
	AmountMsat  int64  `json:"amount_msat"`
	Status      string `json:"status"`
	PaidAt      int64  `json:"paid_at"`
}

func decodeInvoice(inv rpcInvoice) *Invoice {
	out := &Invoice{
		Label:       inv.Label,
		Bolt11:      inv.Bolt11,
		Description: inv.Description,
		AmountMsat:  inv.AmountMsat,
		Status:      PaymentStatus(inv.Status),
	}
	if inv.PaidAt > 0 {
		out.PaidAt = time.Unix(inv.PaidAt, 0).UTC()
	}
	return out
}
