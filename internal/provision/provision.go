// Package provision is the boundary to the cluster provisioning collaborator.
// The order service never blocks on cluster bring-up; it only registers the
// LXD remote that later provisioning scripts deploy onto.
package provision

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"lnplaylive/internal/models"
)

type Provisioner interface {
	Start(ctx context.Context, order *models.Order) (*models.Deployment, error)
}

// LXDRemote registers a remote LXD endpoint via an operator-supplied script.
// Endpoint and Password come from configuration, not from process globals.
type LXDRemote struct {
	Endpoint   string
	Password   string
	ScriptPath string
	Timeout    time.Duration
}

func (p *LXDRemote) Start(ctx context.Context, order *models.Order) (*models.Deployment, error) {
	if p.Endpoint == "" {
		return nil, errors.New("lxd endpoint is not configured")
	}
	if p.ScriptPath == "" {
		return nil, errors.New("provision script path is not configured")
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.ScriptPath, order.OrderID)
	cmd.Env = append(cmd.Environ(),
		"LNPLAY_LXD_FQDN_PORT="+p.Endpoint,
		"LNPLAY_LXD_PASSWORD="+p.Password,
		fmt.Sprintf("LNPLAY_NODE_COUNT=%d", order.NodeCount),
		fmt.Sprintf("LNPLAY_HOURS=%d", order.Hours),
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("add lxd remote: %w: %s", err, string(out))
	}

	return &models.Deployment{
		Remote:    p.Endpoint,
		StartedAt: time.Now().UTC(),
	}, nil
}
