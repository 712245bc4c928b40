package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"lnplaylive/internal/config"
	"lnplaylive/internal/db"
	"lnplaylive/internal/gateway"
	"lnplaylive/internal/payments"
	"lnplaylive/internal/provision"
	"lnplaylive/internal/store"
	"lnplaylive/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	gw, err := gateway.NewMultiClient(
		cfg.Gateway.RPCEndpoints,
		cfg.Gateway.Rune,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
		cfg.Gateway.FailoverThreshold,
	)
	if err != nil {
		log.Fatalf("gateway client failed: %v", err)
	}

	wsEndpoints := cfg.Gateway.WSEndpoints
	if len(wsEndpoints) == 0 {
		for _, rpc := range cfg.Gateway.RPCEndpoints {
			if ws := gateway.DefaultWSEndpoint(rpc); ws != "" {
				wsEndpoints = append(wsEndpoints, ws)
			}
		}
	}

	st := store.New(pool)

	var prov provision.Provisioner
	if cfg.Provision.LXDEndpoint != "" {
		prov = &provision.LXDRemote{
			Endpoint:   cfg.Provision.LXDEndpoint,
			Password:   cfg.Provision.LXDPassword,
			ScriptPath: cfg.Provision.ScriptPath,
		}
	} else {
		log.Printf("provisioning disabled: lxd endpoint not configured")
	}

	handler := payments.NewHandler(st, gw, prov, cfg.Orders.DescriptionPrefix, cfg.Service.Version)

	w := &worker.Worker{
		Store:               st,
		Gateway:             gw,
		Handler:             handler,
		Interval:            time.Duration(cfg.Worker.IntervalSeconds) * time.Second,
		WSEndpoints:         wsEndpoints,
		WSFailoverThreshold: cfg.Worker.WSFailoverThreshold,
	}

	log.Printf("worker started (gateway=%s)", gw.BaseURL())
	if err := w.Run(ctx); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}
