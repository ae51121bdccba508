package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digimart/depositengine/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	var referredBy any
	if u.ReferredBy != "" {
		referredBy = u.ReferredBy
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, referred_by, created_at) VALUES (?,?,?,?)`,
		u.ID, u.Email, referredBy, u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var referredBy sql.NullString
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, referred_by, created_at FROM users WHERE id = ?", id,
	).Scan(&u.ID, &u.Email, &referredBy, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if referredBy.Valid {
		u.ReferredBy = referredBy.String
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// ReferrerOf returns the id of the user who referred the given user, or ""
// when there is none.
func (r *UserRepo) ReferrerOf(ctx context.Context, userID string) (string, error) {
	var referredBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT referred_by FROM users WHERE id = ?", userID,
	).Scan(&referredBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find referrer: %w", err)
	}
	return referredBy.String, nil
}

// ResolveByCodeTail finds the user whose id, uppercased, is a prefix of the
// alphanumeric run that followed the deposit-code prefix in a transfer
// description. Depositors often mash the code against surrounding words, so
// the tail may carry trailing noise; the longest known id wins.
func (r *UserRepo) ResolveByCodeTail(ctx context.Context, tail string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE ? LIKE upper(id) || '%'
		ORDER BY length(id) DESC
		LIMIT 1
	`, tail).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("resolve code tail: %w", err)
	}
	return id, nil
}
