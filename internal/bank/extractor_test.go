package bank

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digimart/depositengine/internal/domain"
)

func mbConfig() *domain.BankAPIConfig {
	return &domain.BankAPIConfig{
		ID:     "mb-main",
		Name:   "MB Bank",
		APIURL: "https://bank.example.com/history",
		Method: "GET",
		FieldMapping: domain.FieldMapping{
			TransactionsPath: "transactionHistoryList",
			Fields: domain.TransactionFields{
				TransactionID:   "refNo",
				Amount:          "creditAmount",
				Description:     "description",
				TransactionDate: "transactionDate",
			},
		},
	}
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	return doc
}

func TestResolvePath(t *testing.T) {
	doc := decode(t, `{"data": {"items": [1, 2], "meta": {"count": 2}}}`)

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"top level", "data", map[string]any{"items": []any{1.0, 2.0}, "meta": map[string]any{"count": 2.0}}, true},
		{"nested array", "data.items", []any{1.0, 2.0}, true},
		{"two levels deep", "data.meta.count", 2.0, true},
		{"missing key", "data.nothing", nil, false},
		{"descend through non-object", "data.items.0", nil, false},
		{"missing root", "other", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolvePath(doc, tt.path)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtract_NestedPath(t *testing.T) {
	doc := decode(t, `{
		"transactionHistoryList": [
			{
				"refNo": "FT25000001",
				"creditAmount": "500,000",
				"debitAmount": "0",
				"description": "CHUYEN TIEN NAPU1001",
				"transactionDate": "15/01/2026 09:30:00"
			},
			{
				"refNo": "FT25000002",
				"creditAmount": 150000,
				"debitAmount": 0,
				"description": "CK den",
				"transactionDate": "2026-01-15T10:00:00Z"
			}
		]
	}`)

	result, err := Extract(mbConfig(), doc)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 0, result.Skipped)

	first := result.Transactions[0]
	assert.Equal(t, "mb-main", first.BankConfigID)
	assert.Equal(t, "FT25000001", first.TransactionID)
	assert.Equal(t, int64(500000), first.AmountVnd)
	assert.Equal(t, "CHUYEN TIEN NAPU1001", first.Description)
	assert.Equal(t, time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC), first.TransactionDate)
	assert.Equal(t, "0", first.Raw["debitAmount"])

	second := result.Transactions[1]
	assert.Equal(t, int64(150000), second.AmountVnd)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), second.TransactionDate)
}

func TestExtract_PathNotAList(t *testing.T) {
	cfg := mbConfig()

	for name, raw := range map[string]string{
		"missing path": `{"something": []}`,
		"not an array": `{"transactionHistoryList": {"oops": true}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Extract(cfg, decode(t, raw))
			var fmErr *FieldMappingError
			require.ErrorAs(t, err, &fmErr)
			assert.Equal(t, "transactionHistoryList", fmErr.MissingPath)
		})
	}
}

func TestExtract_SkipsMalformedElements(t *testing.T) {
	doc := decode(t, `{
		"transactionHistoryList": [
			{"refNo": "FT1", "creditAmount": "100000", "description": "ok", "transactionDate": "2026-01-15"},
			{"creditAmount": "100000", "description": "no id", "transactionDate": "2026-01-15"},
			{"refNo": "FT3", "creditAmount": "abc", "description": "bad amount", "transactionDate": "2026-01-15"},
			{"refNo": "FT4", "creditAmount": "-5000", "description": "negative", "transactionDate": "2026-01-15"},
			"not an object",
			{"refNo": "FT6", "creditAmount": "200000", "description": "ok too", "transactionDate": "2026-01-15"}
		]
	}`)

	result, err := Extract(mbConfig(), doc)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 2)
	assert.Equal(t, 4, result.Skipped)
	assert.Equal(t, "FT1", result.Transactions[0].TransactionID)
	assert.Equal(t, "FT6", result.Transactions[1].TransactionID)
}

func TestExtract_DottedFieldPaths(t *testing.T) {
	cfg := mbConfig()
	cfg.FieldMapping.TransactionsPath = "data.transactions"
	cfg.FieldMapping.Fields = domain.TransactionFields{
		TransactionID:   "meta.id",
		Amount:          "amounts.credit",
		Description:     "memo",
		TransactionDate: "meta.at",
	}

	doc := decode(t, `{
		"data": {"transactions": [
			{"meta": {"id": "T-1", "at": "2026-02-01"}, "amounts": {"credit": "75000"}, "memo": "hello"}
		]}
	}`)

	result, err := Extract(cfg, doc)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "T-1", result.Transactions[0].TransactionID)
	assert.Equal(t, int64(75000), result.Transactions[0].AmountVnd)
}

func TestParseAmountVnd(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"plain number", 500000.0, 500000, false},
		{"string", "500000", 500000, false},
		{"thousand separators", "1,250,000", 1250000, false},
		{"spaces", " 120 000 ", 120000, false},
		{"fraction truncated", 99999.99, 99999, false},
		{"zero", "0", 0, false},
		{"empty string", "", 0, true},
		{"garbage", "12x000", 0, true},
		{"wrong type", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmountVnd(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceString_NumberEqualsStringZero(t *testing.T) {
	// Bank APIs report debitAmount sometimes as 0 and sometimes as "0"; the
	// equals filter has to treat them the same.
	assert.Equal(t, coerceString(0.0), coerceString("0"))
	assert.Equal(t, "150000", coerceString(150000.0))
}
