package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/digimart/depositengine/internal/domain"
	"github.com/digimart/depositengine/internal/engine"
	"github.com/digimart/depositengine/internal/matching"
	"github.com/digimart/depositengine/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	service       *engine.Service
	matcher       *matching.Matcher
	userRepo      *repository.UserRepo
	walletRepo    *repository.WalletRepo
	processedRepo *repository.ProcessedRepo
	cronSecret    string
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return nil
		}
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- TestBankConfig ---

// TestBankConfig dry-runs a candidate bank API config without persisting
// anything: no dedup ledger rows, no wallet writes.
func (h *Handlers) TestBankConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.BankAPIConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.DryRun(r.Context(), &cfg, 3)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- TriggerPoll ---

// TriggerPoll runs one reconciliation pass over every enabled bank config.
// Guarded by the cron secret so only the scheduler (or an operator holding
// the secret) can fire it.
func (h *Handlers) TriggerPoll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
		return
	}

	results := h.service.ProcessAllBanks(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"banks":   len(results),
		"results": results,
	})
}

func (h *Handlers) authorized(r *http.Request) bool {
	if h.cronSecret == "" {
		return true
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) == 1
}

// --- ListProcessed ---

func (h *Handlers) ListProcessed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.ProcessedFilter{
		BankConfigID: q.Get("bank_config_id"),
		Outcome:      q.Get("outcome"),
		From:         parseTime(q.Get("from")),
		To:           parseTime(q.Get("to")),
		Page:         parseIntDefault(q.Get("page"), 1),
		Limit:        parseIntDefault(q.Get("limit"), 50),
	}

	txns, total, err := h.processedRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

// --- ListUnmatched ---

// ListUnmatched is the manual review queue: credit transfers whose
// description carried no resolvable deposit code.
func (h *Handlers) ListUnmatched(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), 50)

	txns, total, err := h.processedRepo.ListUnmatched(r.Context(), page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         page,
		"limit":        limit,
	})
}

// --- GetWallet ---

func (h *Handlers) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	wallet, err := h.walletRepo.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, wallet)
}

// --- GetDepositCode ---

func (h *Handlers) GetDepositCode(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	code := h.matcher.Code(userID)
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":      userID,
		"deposit_code": code,
		// What the depositor should type into their banking app's transfer
		// description, verbatim.
		"transfer_content": code,
	})
}

// --- ManualCredit ---

type manualCreditRequest struct {
	AmountVnd   int64  `json:"amount_vnd"`
	BonusVnd    int64  `json:"bonus_vnd"`
	ReferenceID string `json:"reference_id"`
	Note        string `json:"note"`
}

// ManualCredit lets an operator credit a wallet directly, typically to
// resolve an unmatched transfer from the review queue. Supplying the same
// reference_id twice is a no-op rejected with 409.
func (h *Handlers) ManualCredit(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req manualCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.AmountVnd <= 0 {
		writeError(w, http.StatusBadRequest, "amount_vnd must be positive")
		return
	}
	if req.BonusVnd < 0 {
		writeError(w, http.StatusBadRequest, "bonus_vnd must not be negative")
		return
	}
	if req.ReferenceID == "" {
		req.ReferenceID = "manual:" + uuid.NewString()
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	entry, err := h.walletRepo.CreditWallet(r.Context(), userID, req.AmountVnd, req.BonusVnd, req.ReferenceID)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateReference) {
			writeError(w, http.StatusConflict, "reference_id already credited")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// --- GetWalletHistory ---

func (h *Handlers) GetWalletHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	history, err := h.walletRepo.History(r.Context(), userID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      userID,
		"transactions": history,
	})
}

// --- GetDashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.processedRepo.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	bankVols, err := h.processedRepo.GetVolumeByBank(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": map[string]int{
			"total":     stats.Total,
			"credited":  stats.Credited,
			"unmatched": stats.Unmatched,
		},
		"volume_vnd": map[string]int64{
			"credited":   stats.CreditedVnd,
			"bonus":      stats.BonusVnd,
			"commission": stats.CommissionVnd,
		},
		"by_bank": bankVols,
	})
}
