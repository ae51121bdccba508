package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/digimart/depositengine/internal/api"
	"github.com/digimart/depositengine/internal/bank"
	"github.com/digimart/depositengine/internal/config"
	"github.com/digimart/depositengine/internal/engine"
	"github.com/digimart/depositengine/internal/matching"
	"github.com/digimart/depositengine/internal/notify"
	"github.com/digimart/depositengine/internal/repository"
)

func main() {
	cfg := config.Load()

	log.Printf("Initializing database at %s", cfg.DatabasePath)
	db, err := repository.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	userRepo := repository.NewUserRepo(db)
	walletRepo := repository.NewWalletRepo(db)
	processedRepo := repository.NewProcessedRepo(db)
	settingsRepo := repository.NewSettingsRepo(db)

	// Create services.
	client := bank.NewClient(cfg.BankClientTimeout)
	matcher := matching.NewMatcher(cfg.DepositCodePrefix, userRepo)
	dispatcher := notify.NewDispatcher(settingsRepo)
	service := engine.NewService(client, matcher, settingsRepo, userRepo, walletRepo, processedRepo, dispatcher)
	poller := engine.NewPoller(service, settingsRepo, cfg.PollInterval, cfg.CycleTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		poller.Run(ctx)
	}()

	router := api.NewRouter(service, matcher, userRepo, walletRepo, processedRepo, cfg.CronSecret)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	log.Printf("Deposit Reconciliation Engine")
	log.Printf("Listening on http://localhost:%d", cfg.ServerPort)
	log.Printf("API base: http://localhost:%d/api/v1", cfg.ServerPort)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /api/v1/bank-configs/test")
	log.Printf("  POST   /api/v1/poll")
	log.Printf("  GET    /api/v1/processed")
	log.Printf("  GET    /api/v1/unmatched")
	log.Printf("  GET    /api/v1/wallets/{userID}")
	log.Printf("  GET    /api/v1/wallets/{userID}/deposit-code")
	log.Printf("  POST   /api/v1/wallets/{userID}/credit")
	log.Printf("  GET    /api/v1/wallets/{userID}/history")
	log.Printf("  GET    /api/v1/dashboard")

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	// Wait for in-flight poll cycles to drain.
	<-pollerDone
	log.Println("Shutdown complete")
}
