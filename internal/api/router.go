package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digimart/depositengine/internal/engine"
	"github.com/digimart/depositengine/internal/matching"
	"github.com/digimart/depositengine/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	service *engine.Service,
	matcher *matching.Matcher,
	userRepo *repository.UserRepo,
	walletRepo *repository.WalletRepo,
	processedRepo *repository.ProcessedRepo,
	cronSecret string,
) http.Handler {
	h := &Handlers{
		service:       service,
		matcher:       matcher,
		userRepo:      userRepo,
		walletRepo:    walletRepo,
		processedRepo: processedRepo,
		cronSecret:    cronSecret,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Bank configs.
		r.Post("/bank-configs/test", h.TestBankConfig)

		// Polling.
		r.Post("/poll", h.TriggerPoll)

		// Processed ledger.
		r.Get("/processed", h.ListProcessed)
		r.Get("/unmatched", h.ListUnmatched)

		// Wallets.
		r.Get("/wallets/{userID}", h.GetWallet)
		r.Get("/wallets/{userID}/deposit-code", h.GetDepositCode)
		r.Post("/wallets/{userID}/credit", h.ManualCredit)
		r.Get("/wallets/{userID}/history", h.GetWalletHistory)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
