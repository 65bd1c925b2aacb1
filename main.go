package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"payment-service/internal/api"
	"payment-service/internal/audit"
	"payment-service/internal/config"
	"payment-service/internal/db"
	"payment-service/internal/gateway"
	"payment-service/internal/kafka"
	"payment-service/internal/logging"
	"payment-service/internal/metrics"
	"payment-service/internal/payment"
)

func main() {
	cfg := config.MustLoadConfig(".")

	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := gateway.NewClient(cfg.Gateway, logger)
	if err != nil {
		log.Fatal(err)
	}
	gatewayURL, err := url.Parse(cfg.Gateway.URL())
	if err != nil {
		log.Fatal(err)
	}

	recorders := audit.Multi{audit.NewLogRecorder(logger)}

	if cfg.Database.URL != "" {
		if err := db.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			log.Fatal(err)
		}

		dbpool, err := db.GetPool(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal(err)
		}
		defer dbpool.Close()

		repo := db.NewAuditRepository(dbpool)
		recorders = append(recorders, audit.NewOutboxRecorder(repo))

		if cfg.Kafka.Broker.URL != "" {
			auditWriter := kafka.NewWriter(cfg.Kafka)
			defer auditWriter.Close()

			audit.NewProducer(repo, auditWriter, cfg.Audit.Producer, logger).Start(ctx)
		}
	}

	orchestrator := payment.NewOrchestrator(cfg.Credentials(), gatewayURL.Host, client, logger,
		payment.WithRecorder(recorders),
	)
	handler := api.NewHandler(orchestrator, payment.NewPool(cfg.Payment.Parallelism), cfg.Payment.ReturnURL, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", "error", err)
		}
	}()

	logger.Info("Starting payment service", "port", cfg.Server.Port, "gateway", gatewayURL.Host, "environment", cfg.Gateway.Environment)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
