// Command fakebank serves a bank transaction API with generated data, for
// exercising the engine locally. It exposes two response shapes so both
// nested and flat fieldMapping configs can be tested against it:
//
//	GET /mb/history     -> {"transactionHistoryList": [...]}  (MB Bank style)
//	GET /simple/txns    -> [...]                              (flat array)
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

type mbTransaction struct {
	RefNo           string `json:"refNo"`
	CreditAmount    string `json:"creditAmount"`
	DebitAmount     string `json:"debitAmount"`
	Description     string `json:"description"`
	TransactionDate string `json:"transactionDate"`
}

type simpleTransaction struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	Type   string `json:"type"`
	Memo   string `json:"memo"`
	Date   string `json:"date"`
}

func main() {
	port := flag.Int("port", 9090, "listen port")
	count := flag.Int("count", 40, "transactions per response shape")
	seed := flag.Int64("seed", 42, "rng seed, fixed by default so responses are stable")
	users := flag.String("users", "u1001,u1002,u1003", "comma-separated user ids to embed as NAP codes")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	userIDs := strings.Split(*users, ",")

	mbTxns := generateMB(rng, *count, userIDs)
	simpleTxns := generateSimple(rng, *count, userIDs)

	http.HandleFunc("/mb/history", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"transactionHistoryList": mbTxns})
	})
	http.HandleFunc("/simple/txns", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, simpleTxns)
	})

	log.Printf("Fake bank API listening on http://localhost:%d", *port)
	log.Printf("  GET /mb/history   (%d transactions, nested under transactionHistoryList)", len(mbTxns))
	log.Printf("  GET /simple/txns  (%d transactions, flat array)", len(simpleTxns))
	if err := http.ListenAndServe(fmt.Sprintf(":%d", *port), nil); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func generateMB(rng *rand.Rand, count int, userIDs []string) []mbTransaction {
	start := time.Now().AddDate(0, 0, -7)
	txns := make([]mbTransaction, 0, count)

	for i := 1; i <= count; i++ {
		at := start.Add(time.Duration(rng.Intn(7*24*60)) * time.Minute)
		amount := int64(rng.Intn(195)+5) * 10_000 // 50k to 2M VND

		t := mbTransaction{
			RefNo:           fmt.Sprintf("FT%08d", 25000000+i),
			TransactionDate: at.Format("02/01/2006 15:04:05"),
		}

		// Distribution: 60% credit with a deposit code, 20% credit without
		// one, 20% debit.
		roll := rng.Float64()
		switch {
		case roll < 0.60:
			user := userIDs[rng.Intn(len(userIDs))]
			t.CreditAmount = fmt.Sprintf("%d", amount)
			t.DebitAmount = "0"
			t.Description = depositDescription(rng, user)
		case roll < 0.80:
			t.CreditAmount = fmt.Sprintf("%d", amount)
			t.DebitAmount = "0"
			t.Description = "CHUYEN TIEN DEN TU NGUYEN VAN A"
		default:
			t.CreditAmount = "0"
			t.DebitAmount = fmt.Sprintf("%d", amount)
			t.Description = "THANH TOAN HOA DON DIEN"
		}

		txns = append(txns, t)
	}
	return txns
}

func generateSimple(rng *rand.Rand, count int, userIDs []string) []simpleTransaction {
	start := time.Now().AddDate(0, 0, -7)
	txns := make([]simpleTransaction, 0, count)

	for i := 1; i <= count; i++ {
		at := start.Add(time.Duration(rng.Intn(7*24*60)) * time.Minute)
		amount := int64(rng.Intn(195)+5) * 10_000

		t := simpleTransaction{
			ID:     fmt.Sprintf("SB-%06d", i),
			Amount: amount,
			Date:   at.Format(time.RFC3339),
		}

		roll := rng.Float64()
		switch {
		case roll < 0.60:
			user := userIDs[rng.Intn(len(userIDs))]
			t.Type = "IN"
			t.Memo = depositDescription(rng, user)
		case roll < 0.80:
			t.Type = "IN"
			t.Memo = "incoming transfer no memo code"
		default:
			t.Type = "OUT"
			t.Memo = "outgoing payment"
		}

		txns = append(txns, t)
	}
	return txns
}

// depositDescription embeds a NAP deposit code the way real transfer memos
// carry them: surrounded by free text, sometimes lowercased.
func depositDescription(rng *rand.Rand, userID string) string {
	code := "NAP" + strings.ToUpper(userID)
	templates := []string{
		"CHUYEN TIEN %s",
		"%s NAP TIEN TAI KHOAN",
		"CK den tu khach hang %s cam on",
		"chuyen khoan %s",
	}
	tpl := templates[rng.Intn(len(templates))]
	if rng.Float64() < 0.3 {
		code = strings.ToLower(code)
	}
	return fmt.Sprintf(tpl, code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode error: %v", err)
	}
}
