package domain

// FilterCondition is the closed set of comparison operators an admin can pick
// for a credit indicator. Each condition has exactly one evaluator in the
// bank package.
type FilterCondition string

const (
	ConditionEquals   FilterCondition = "equals"
	ConditionGreater  FilterCondition = "greater"
	ConditionContains FilterCondition = "contains"
)

// BankAPIConfig is an admin-authored description of one bank transaction API:
// where to call it, how to find the transaction list in the response, and how
// to tell incoming transfers apart from everything else. The engine treats a
// config as immutable for the duration of a poll cycle.
type BankAPIConfig struct {
	ID      string            `json:"id" validate:"required"`
	Name    string            `json:"name" validate:"required"`
	Enabled bool              `json:"enabled"`
	APIURL  string            `json:"apiUrl" validate:"required,url"`
	Method  string            `json:"method" validate:"required,oneof=GET POST"`
	Headers map[string]string `json:"headers,omitempty"`

	FieldMapping FieldMapping `json:"fieldMapping" validate:"required"`
	Filters      Filters      `json:"filters"`

	Credentials *Credentials `json:"credentials,omitempty"`
}

// FieldMapping declares where transactions live in the response and which key
// holds each canonical field. Paths are dot-separated JSON keys.
type FieldMapping struct {
	TransactionsPath string            `json:"transactionsPath" validate:"required"`
	Fields           TransactionFields `json:"fields" validate:"required"`
}

type TransactionFields struct {
	TransactionID   string `json:"transactionId" validate:"required"`
	Amount          string `json:"amount" validate:"required"`
	Description     string `json:"description" validate:"required"`
	TransactionDate string `json:"transactionDate" validate:"required"`
}

type Filters struct {
	OnlyCredit      bool             `json:"onlyCredit"`
	CreditIndicator *CreditIndicator `json:"creditIndicator,omitempty"`
}

// CreditIndicator is the predicate that keeps only incoming-funds rows.
// Value is string or number in the admin JSON, so it stays untyped here and
// is coerced by the evaluator.
type CreditIndicator struct {
	Field     string          `json:"field" validate:"required"`
	Value     any             `json:"value"`
	Condition FilterCondition `json:"condition" validate:"required,oneof=equals greater contains"`
}

type Credentials struct {
	Token  string `json:"token,omitempty"`
	APIKey string `json:"apiKey,omitempty"`
}
