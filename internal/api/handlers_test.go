package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digimart/depositengine/internal/bank"
	"github.com/digimart/depositengine/internal/domain"
	"github.com/digimart/depositengine/internal/engine"
	"github.com/digimart/depositengine/internal/matching"
	"github.com/digimart/depositengine/internal/repository"
)

type testEnv struct {
	router   http.Handler
	db       *sql.DB
	users    *repository.UserRepo
	wallets  *repository.WalletRepo
	settings *repository.SettingsRepo
}

func setupRouter(t *testing.T, cronSecret string) *testEnv {
	t.Helper()
	// Per-test in-memory database to avoid cross-test interference.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := repository.InitDB(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepo(db)
	wallets := repository.NewWalletRepo(db)
	processed := repository.NewProcessedRepo(db)
	settings := repository.NewSettingsRepo(db)

	matcher := matching.NewMatcher("NAP", users)
	service := engine.NewService(
		bank.NewClient(5*time.Second),
		matcher, settings, users, wallets, processed, nil,
	)

	return &testEnv{
		router:   NewRouter(service, matcher, users, wallets, processed, cronSecret),
		db:       db,
		users:    users,
		wallets:  wallets,
		settings: settings,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, e.users.Create(context.Background(),
		&domain.User{ID: id, Email: id + "@example.com"}))
}

func TestGetDepositCode(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")

	w := env.do(t, "GET", "/api/v1/wallets/u1001/deposit-code", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NAPU1001", resp["deposit_code"])
}

func TestGetDepositCode_UnknownUser(t *testing.T) {
	env := setupRouter(t, "")

	w := env.do(t, "GET", "/api/v1/wallets/ghost/deposit-code", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetWallet(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")

	_, err := env.wallets.CreditWallet(context.Background(), "u1001", 100_000, 0, "seed:1")
	require.NoError(t, err)

	w := env.do(t, "GET", "/api/v1/wallets/u1001", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var wallet domain.Wallet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &wallet))
	assert.Equal(t, int64(100_000), wallet.BalanceVnd)
}

func TestManualCredit(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")

	body := map[string]any{
		"amount_vnd":   200_000,
		"bonus_vnd":    10_000,
		"reference_id": "manual:review-42",
	}

	w := env.do(t, "POST", "/api/v1/wallets/u1001/credit", body, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var entry domain.WalletTransaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, int64(210_000), entry.AmountVnd)

	// Same reference again conflicts and changes nothing.
	w = env.do(t, "POST", "/api/v1/wallets/u1001/credit", body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	wallet, err := env.wallets.Balance(context.Background(), "u1001")
	require.NoError(t, err)
	assert.Equal(t, int64(210_000), wallet.BalanceVnd)
}

func TestManualCredit_Validation(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"zero amount", map[string]any{"amount_vnd": 0}, http.StatusBadRequest},
		{"negative amount", map[string]any{"amount_vnd": -500}, http.StatusBadRequest},
		{"negative bonus", map[string]any{"amount_vnd": 1000, "bonus_vnd": -1}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "POST", "/api/v1/wallets/u1001/credit", tt.body, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestTriggerPoll_RequiresSecret(t *testing.T) {
	env := setupRouter(t, "cron-secret")

	w := env.do(t, "POST", "/api/v1/poll", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "POST", "/api/v1/poll", nil, map[string]string{
		"Authorization": "Bearer wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "POST", "/api/v1/poll", nil, map[string]string{
		"Authorization": "Bearer cron-secret",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTestBankConfig_DryRun(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"transactions": [
			{"id": "T1", "amount": "150000", "memo": "NAPU1001", "date": "2026-01-15"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	cfg := domain.BankAPIConfig{
		ID:     "candidate",
		Name:   "Candidate Bank",
		APIURL: srv.URL,
		Method: "GET",
		FieldMapping: domain.FieldMapping{
			TransactionsPath: "transactions",
			Fields: domain.TransactionFields{
				TransactionID:   "id",
				Amount:          "amount",
				Description:     "memo",
				TransactionDate: "date",
			},
		},
	}

	w := env.do(t, "POST", "/api/v1/bank-configs/test", cfg, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result engine.DryRunResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Count)
	require.Len(t, result.Samples, 1)
	assert.Equal(t, "u1001", result.Samples[0].MatchedUserID)
}

func TestTestBankConfig_InvalidConfig(t *testing.T) {
	env := setupRouter(t, "")

	w := env.do(t, "POST", "/api/v1/bank-configs/test", domain.BankAPIConfig{ID: "x"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDashboardAndUnmatched(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")
	ctx := context.Background()

	_, err := env.wallets.CreditDeposit(ctx, repository.DepositCredit{
		Transaction: domain.Transaction{
			BankConfigID:    "mb-main",
			TransactionID:   "FT1",
			AmountVnd:       100_000,
			Description:     "NAPU1001",
			TransactionDate: time.Now(),
		},
		UserID:   "u1001",
		BonusVnd: 5_000,
	})
	require.NoError(t, err)

	_, err = env.wallets.RecordUnmatched(ctx, domain.Transaction{
		BankConfigID:    "mb-main",
		TransactionID:   "FT2",
		AmountVnd:       50_000,
		Description:     "no code here",
		TransactionDate: time.Now(),
	})
	require.NoError(t, err)

	w := env.do(t, "GET", "/api/v1/dashboard", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var dash struct {
		Transactions map[string]int   `json:"transactions"`
		VolumeVnd    map[string]int64 `json:"volume_vnd"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.Equal(t, 2, dash.Transactions["total"])
	assert.Equal(t, 1, dash.Transactions["credited"])
	assert.Equal(t, 1, dash.Transactions["unmatched"])
	assert.Equal(t, int64(105_000), dash.VolumeVnd["credited"])

	w = env.do(t, "GET", "/api/v1/unmatched", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var unmatched struct {
		Transactions []domain.ProcessedTransaction `json:"transactions"`
		Total        int                           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unmatched))
	assert.Equal(t, 1, unmatched.Total)
	require.Len(t, unmatched.Transactions, 1)
	assert.Equal(t, "FT2", unmatched.Transactions[0].TransactionID)
}

func TestGetWalletHistory(t *testing.T) {
	env := setupRouter(t, "")
	env.seedUser(t, "u1001")
	ctx := context.Background()

	_, err := env.wallets.CreditWallet(ctx, "u1001", 100_000, 0, "seed:1")
	require.NoError(t, err)
	_, err = env.wallets.CreditWallet(ctx, "u1001", 50_000, 0, "seed:2")
	require.NoError(t, err)

	w := env.do(t, "GET", "/api/v1/wallets/u1001/history", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Transactions []domain.WalletTransaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Transactions, 2)
}
