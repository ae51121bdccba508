package bank

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/digimart/depositengine/internal/domain"
)

// FieldMappingError means the configured transactionsPath did not resolve to
// an array in the response. This aborts the whole cycle for that bank.
type FieldMappingError struct {
	MissingPath string
}

func (e *FieldMappingError) Error() string {
	return fmt.Sprintf("field mapping: path %q does not resolve to a transaction list", e.MissingPath)
}

// ResolvePath walks a dot-separated key path into a decoded JSON document.
// It is a pure function: no reflection, no expression evaluation, just map
// lookups. Returns false when any segment is missing or not an object.
func ResolvePath(doc any, path string) (any, bool) {
	current := doc
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// ExtractResult carries the canonical transactions of one response plus the
// number of raw elements that were dropped for per-element errors.
type ExtractResult struct {
	Transactions []domain.Transaction
	Skipped      int
}

// Extract resolves the configured transactionsPath and maps every element to
// a canonical Transaction. A malformed element is skipped and counted; it
// never aborts the batch. Re-extracting the same document yields the same
// ordered sequence.
func Extract(cfg *domain.BankAPIConfig, doc any) (*ExtractResult, error) {
	raw, ok := ResolvePath(doc, cfg.FieldMapping.TransactionsPath)
	if !ok {
		return nil, &FieldMappingError{MissingPath: cfg.FieldMapping.TransactionsPath}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, &FieldMappingError{MissingPath: cfg.FieldMapping.TransactionsPath}
	}

	fields := cfg.FieldMapping.Fields
	result := &ExtractResult{}

	for i, el := range list {
		element, ok := el.(map[string]any)
		if !ok {
			log.Printf("[extract] WARNING: config %s element %d is not an object, skipping", cfg.ID, i)
			result.Skipped++
			continue
		}

		tx, err := mapElement(cfg.ID, fields, element)
		if err != nil {
			log.Printf("[extract] WARNING: config %s element %d: %v, skipping", cfg.ID, i, err)
			result.Skipped++
			continue
		}
		result.Transactions = append(result.Transactions, *tx)
	}

	return result, nil
}

func mapElement(configID string, fields domain.TransactionFields, element map[string]any) (*domain.Transaction, error) {
	idVal, ok := ResolvePath(element, fields.TransactionID)
	if !ok {
		return nil, fmt.Errorf("missing field %q", fields.TransactionID)
	}
	id := coerceString(idVal)
	if id == "" {
		return nil, fmt.Errorf("empty transaction id")
	}

	amountVal, ok := ResolvePath(element, fields.Amount)
	if !ok {
		return nil, fmt.Errorf("missing field %q", fields.Amount)
	}
	amount, err := ParseAmountVnd(amountVal)
	if err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("non-positive amount %d", amount)
	}

	descVal, ok := ResolvePath(element, fields.Description)
	if !ok {
		return nil, fmt.Errorf("missing field %q", fields.Description)
	}

	var txDate time.Time
	if dateVal, ok := ResolvePath(element, fields.TransactionDate); ok {
		txDate = parseDate(coerceString(dateVal))
	} else {
		txDate = time.Now()
	}

	return &domain.Transaction{
		BankConfigID:    configID,
		TransactionID:   id,
		AmountVnd:       amount,
		Description:     coerceString(descVal),
		TransactionDate: txDate,
		Raw:             element,
	}, nil
}

// ParseAmountVnd coerces a JSON amount value (number, or string with optional
// thousand separators) into whole VND. "500,000" and 500000.0 both parse to
// 500000; fractional parts are truncated.
func ParseAmountVnd(v any) (int64, error) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val).IntPart(), nil
	case string:
		cleaned := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(val))
		if cleaned == "" {
			return 0, fmt.Errorf("empty amount")
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", val, err)
		}
		return d.IntPart(), nil
	default:
		return 0, fmt.Errorf("unsupported amount type %T", v)
	}
}

// parseDate tries the formats seen across Vietnamese bank APIs and falls back
// to the observation time when none fit.
func parseDate(s string) time.Time {
	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
		"02/01/2006 15:04:05",
		"02/01/2006",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Now()
}

// coerceString renders a JSON scalar as a string. Numbers keep their shortest
// representation so 0 and "0" compare equal downstream.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return decimal.NewFromFloat(val).String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
