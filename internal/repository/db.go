package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			referred_by TEXT REFERENCES users(id),
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users(referred_by)`,

		`CREATE TABLE IF NOT EXISTS wallets (
			user_id TEXT PRIMARY KEY REFERENCES users(id),
			balance_vnd INTEGER NOT NULL DEFAULT 0 CHECK (balance_vnd >= 0),
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS wallet_transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			type TEXT NOT NULL,
			amount_vnd INTEGER NOT NULL,
			balance_after_vnd INTEGER NOT NULL,
			reference_id TEXT NOT NULL,
			description TEXT,
			created_at DATETIME NOT NULL,
			UNIQUE (user_id, reference_id, type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wallet_transactions_user ON wallet_transactions(user_id, created_at)`,

		// The exactly-once ledger. The composite primary key is the dedup
		// guarantee: inserting this row and mutating balances happen in the
		// same SQL transaction.
		`CREATE TABLE IF NOT EXISTS processed_transactions (
			bank_config_id TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			matched_user_id TEXT,
			credited_amount_vnd INTEGER NOT NULL DEFAULT 0,
			bonus_amount_vnd INTEGER NOT NULL DEFAULT 0,
			referral_commission_vnd INTEGER NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL,
			description TEXT,
			transaction_date DATETIME NOT NULL,
			processed_at DATETIME NOT NULL,
			PRIMARY KEY (bank_config_id, transaction_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_outcome ON processed_transactions(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_user ON processed_transactions(matched_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_processed_at ON processed_transactions(processed_at)`,

		// Admin-managed JSON blobs: bank_api_configs, deposit_bonus_tiers,
		// referral_settings, notification_webhook.
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:60], err)
		}
	}

	return nil
}
