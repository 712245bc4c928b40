package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lnplaylive/internal/config"
	"lnplaylive/internal/db"
	"lnplaylive/internal/gateway"
	internalhttp "lnplaylive/internal/http"
	"lnplaylive/internal/pricing"
	"lnplaylive/internal/services"
	"lnplaylive/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx := context.Background()
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

	st := store.New(pool)
	orderSvc := &services.OrderService{
		Store:         st,
		Gateway:       gw,
		Pricing:       pricing.Service{},
		InvoiceExpiry: time.Duration(cfg.Orders.InvoiceExpirySeconds) * time.Second,
		Prefix:        cfg.Orders.DescriptionPrefix,
	}
	statusSvc := &services.StatusService{
		Store:   st,
		Gateway: gw,
	}

	h := internalhttp.NewHandler(orderSvc, statusSvc)
	srv := internalhttp.NewServer(h)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		log.Printf("api listening on %s (gateway=%s)", cfg.Server.Addr, gw.BaseURL())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}
