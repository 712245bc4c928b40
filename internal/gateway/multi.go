package gateway

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// MultiClient fails over between gateway endpoints. It sticks to the current
// endpoint until failThreshold consecutive failures, then rotates.
type MultiClient struct {
	clients       []*RPCClient
	index         int
	failCount     int
	failThreshold int
	mu            sync.Mutex
}

func NewMultiClient(endpoints []string, authRune string, timeout time.Duration, failThreshold int) (*MultiClient, error) {
	list := sanitizeEndpoints(endpoints)
	if len(list) == 0 {
		return nil, errors.New("gateway endpoints is empty")
	}
	if failThreshold <= 0 {
		failThreshold = 3
	}
	clients := make([]*RPCClient, 0, len(list))
	for _, ep := range list {
		clients = append(clients, NewRPCClient(ep, authRune, timeout))
	}
	return &MultiClient{
		clients:       clients,
		failThreshold: failThreshold,
	}, nil
}

func (m *MultiClient) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index].baseURL
}

func (m *MultiClient) Invoice(ctx context.Context, amountMsat int64, label, description string, expiry time.Duration) (*PaymentRequest, error) {
	var out *PaymentRequest
	err := m.do(ctx, func(c *RPCClient) error {
		res, err := c.Invoice(ctx, amountMsat, label, description, expiry)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

func (m *MultiClient) GetInvoice(ctx context.Context, label string) (*Invoice, error) {
	var out *Invoice
	err := m.do(ctx, func(c *RPCClient) error {
		res, err := c.GetInvoice(ctx, label)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// do runs fn against the current endpoint, rotating on transport failure. A
// definitive gateway answer (RPCError, ErrInvoiceNotFound) is returned as-is:
// retrying it elsewhere would not change the outcome.
func (m *MultiClient) do(ctx context.Context, fn func(*RPCClient) error) error {
	var lastErr error
	for attempts := 0; attempts < len(m.clients); attempts++ {
		client, idx := m.currentClient()
		err := fn(client)
		if err == nil {
			m.resetFailures(idx)
			return nil
		}
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) || errors.Is(err, ErrInvoiceNotFound) {
			m.resetFailures(idx)
			return err
		}
		lastErr = err
		m.noteFailure(idx)
		if m.shouldRotate() || len(m.clients) > 1 {
			m.rotate()
		}
	}
	return lastErr
}

func (m *MultiClient) currentClient() (*RPCClient, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clients[m.index], m.index
}

func (m *MultiClient) resetFailures(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount = 0
	}
}

func (m *MultiClient) noteFailure(idx int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index == idx {
		m.failCount++
	}
}

func (m *MultiClient) shouldRotate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failCount >= m.failThreshold
}

func (m *MultiClient) rotate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.index = (m.index + 1) % len(m.clients)
	m.failCount = 0
}

func sanitizeEndpoints(endpoints []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(endpoints))
	for _, ep := range endpoints {
		ep = strings.TrimSpace(ep)
		if ep == "" {
			continue
		}
		ep = strings.TrimRight(ep, "/")
		if _, ok := seen[ep]; ok {
			continue
		}
		seen[ep] = struct{}{}
		out = append(out, ep)
	}
	return out
}
