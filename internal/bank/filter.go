package bank

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/digimart/depositengine/internal/domain"
)

// ErrFilterFieldMissing reports that the credit-indicator field is absent
// from a raw element. The transaction fails closed (treated as not credit);
// the caller decides how loudly to log it.
var ErrFilterFieldMissing = errors.New("credit filter field missing from element")

// IsCredit reports whether a raw element passes the configured credit filter.
// With onlyCredit disabled, or enabled without an indicator, every element
// passes. A missing filter field or a non-numeric operand for "greater"
// fails closed.
func IsCredit(filters domain.Filters, raw map[string]any) (bool, error) {
	if !filters.OnlyCredit {
		return true, nil
	}
	ind := filters.CreditIndicator
	if ind == nil {
		return true, nil
	}

	fieldValue, ok := ResolvePath(raw, ind.Field)
	if !ok {
		return false, ErrFilterFieldMissing
	}

	switch ind.Condition {
	case domain.ConditionEquals:
		return evalEquals(fieldValue, ind.Value), nil
	case domain.ConditionGreater:
		return evalGreater(fieldValue, ind.Value), nil
	case domain.ConditionContains:
		return evalContains(fieldValue, ind.Value), nil
	default:
		// Unknown conditions are rejected at config validation; fail closed
		// if one slips through.
		return false, nil
	}
}

func evalEquals(fieldValue, wanted any) bool {
	return coerceString(fieldValue) == coerceString(wanted)
}

// evalGreater does a numeric comparison. Either side failing to parse as a
// number means "not credit".
func evalGreater(fieldValue, wanted any) bool {
	left, err := toDecimal(fieldValue)
	if err != nil {
		return false
	}
	right, err := toDecimal(wanted)
	if err != nil {
		return false
	}
	return left.GreaterThan(right)
}

func evalContains(fieldValue, wanted any) bool {
	return strings.Contains(
		strings.ToLower(coerceString(fieldValue)),
		strings.ToLower(coerceString(wanted)),
	)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.NewFromString(strings.TrimSpace(coerceString(v)))
	}
}
