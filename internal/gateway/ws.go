package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gorilla/websocket"
)

// WSClient subscribes to the gateway's notification stream. Delivery is
// at-least-once at best: the connection drops, the gateway redelivers, and the
// poll loop fills any gap. Consumers must be idempotent.
type WSClient struct {
	Endpoint string
	Conn     *websocket.Conn
}

func NewWSClient(endpoint string) *WSClient {
	return &WSClient{Endpoint: endpoint}
}

func (c *WSClient) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, c.Endpoint, nil)
	if err != nil {
		return err
	}
	c.Conn = conn
	return nil
}

func (c *WSClient) Close() {
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}

func (c *WSClient) Subscribe(ctx context.Context, topic string) error {
	payload := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "subscribe",
		"params": map[string]any{
			"topic": topic,
		},
	}
	return c.Conn.WriteJSON(payload)
}

func (c *WSClient) Read(ctx context.Context) ([]byte, error) {
	_, msg, err := c.Conn.ReadMessage()
	return msg, err
}

// PaymentNotification announces that the invoice under Label was paid. It
// carries no order data beyond the correlation label; everything else comes
// from the durable order record.
type PaymentNotification struct {
	Label      string
	AmountMsat int64
}

// ParseNotification decodes a stream message. ok=false means the message was
// not an invoice_payment notification (subscription acks, other topics).
func ParseNotification(msg []byte) (*PaymentNotification, bool, error) {
	var env struct {
		Method string `json:"method"`
		Params struct {
			InvoicePayment struct {
				Label string `json:"label"`
				Msat  int64  `json:"msat"`
			} `json:"invoice_payment"`
		} `json:"params"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(msg, &env); err != nil {
		return nil, false, err
	}
	if env.Error != nil {
		return nil, false, errors.New(env.Error.Message)
	}
	if !strings.EqualFold(env.Method, "invoice_payment") {
		return nil, false, nil
	}
	label := strings.TrimSpace(env.Params.InvoicePayment.Label)
	if label == "" {
		return nil, false, nil
	}
	return &PaymentNotification{
		Label:      label,
		AmountMsat: env.Params.InvoicePayment.Msat,
	}, true, nil
}

// DefaultWSEndpoint derives a websocket endpoint from an RPC base URL.
func DefaultWSEndpoint(rpc string) string {
	if strings.HasPrefix(rpc, "ws://") || strings.HasPrefix(rpc, "wss://") {
		if strings.HasSuffix(rpc, "/notifications") {
			return rpc
		}
		return strings.TrimRight(rpc, "/") + "/notifications"
	}
	if strings.HasPrefix(rpc, "https://") {
		return "wss://" + strings.TrimPrefix(strings.TrimRight(rpc, "/"), "https://") + "/notifications"
	}
	if strings.HasPrefix(rpc, "http://") {
		return "ws://" + strings.TrimPrefix(strings.TrimRight(rpc, "/"), "http://") + "/notifications"
	}
	return ""
}
