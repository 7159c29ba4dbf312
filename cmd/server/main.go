package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/folio/internal/api"
	"github.com/dgallion1/folio/internal/config"
	"github.com/dgallion1/folio/internal/hostclient"
	"github.com/dgallion1/folio/internal/sessions"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Report delivery is optional.
	var host *hostclient.Client
	var deliverer sessions.Deliverer
	if cfg.WebhookURL != "" {
		host = hostclient.NewClient(cfg.WebhookURL, cfg.WebhookAPIKey)
		deliverer = host
	}

	mgr := sessions.NewManager(cfg, deliverer, log)
	mgr.Start(ctx)

	srv := api.NewServer(mgr, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		mgr.Stop()
		if host != nil {
			host.Close()
		}
	}()

	log.Info("starting folio", "port", cfg.Port, "webhook", cfg.WebhookURL != "")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
