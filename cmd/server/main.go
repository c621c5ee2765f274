package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"invoiceflow/internal/config"
	"invoiceflow/internal/db"
	"invoiceflow/internal/logger"
	"invoiceflow/internal/server"
	"invoiceflow/internal/services"
	"invoiceflow/internal/tasks"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if *migrateOnlyFlag {
		if _, err := db.Connect(cfg.DatabaseDSN, log); err != nil {
			log.Fatal().Err(err).Msg("migrate-only failed")
		}
		log.Info().Msg("migrations completed; exiting as requested")
		return
	}

	dbConn, err := db.Connect(cfg.DatabaseDSN, log)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	dispatcher := tasks.New(cfg.TaskWorkers, cfg.TaskBuffer, log)
	tasks.RegisterInvoiceJobs(dispatcher, dbConn, log)

	vatRate, err := decimal.NewFromString(cfg.VATRate)
	if err != nil {
		log.Warn().Str("vat_rate", cfg.VATRate).Msg("invalid VAT rate, using default")
		vatRate = services.DefaultVATRate
	}
	invSvc := services.NewInvoiceService(dbConn, services.NewTotalsCalculator(vatRate), dispatcher, log)
	invSvc.PaymentTermsDays = cfg.PaymentTermsDays
	invSvc.NumberPrefix = cfg.InvoiceNumberPrefix
	invSvc.StrictPaymentTransitions = cfg.StrictPaymentTransitions

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(dbConn, invSvc, log),
	}

	go func() {
		log.Info().Str("env", cfg.Env).Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Let in-flight and queued jobs drain before exit.
	dispatcher.Stop(ctx)
	log.Info().Msg("server gracefully stopped")
}
