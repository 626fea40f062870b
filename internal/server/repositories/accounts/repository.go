// Package accounts declares the account store contract and its Postgres,
// SQLite and in-memory implementations.
package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/dbx"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
)

// Repository persists accounts keyed by their normalized mail.
type Repository interface {
	// Create inserts a new account at version 1. An existing mail yields
	// common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) error

	// FindByIdentity returns the account for mail or common.ErrorNotFound.
	FindByIdentity(ctx context.Context, mail string) (*models.Account, error)

	// Exists reports whether an account for mail is stored.
	Exists(ctx context.Context, mail string) (bool, error)

	// Save applies update and bumps the version. Concurrent saves are not
	// serialized: the last one wins. A missing account yields
	// common.ErrPersistenceConflict.
	Save(ctx context.Context, mail string, update *models.AccountUpdate) error
}

// updateArgs flattens update into salt, hash, refresh token value and expiry.
// Fields the update leaves alone are nil so COALESCE keeps the stored value.
func updateArgs(update *models.AccountUpdate) (salt, hash, token, expires any) {
	if update.Credential != nil {
		salt = dbx.NullableBytes(update.Credential.Salt)
		hash = dbx.NullableBytes(update.Credential.Digest)
	}
	if update.RefreshToken != nil {
		token = update.RefreshToken.Value
		expires = update.RefreshToken.ExpiresAt
	}
	return salt, hash, token, expires
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var expires sql.NullTime
	if err := row.Scan(&a.Mail, &a.Salt, &a.PasswordHash, &a.RefreshToken, &expires,
		&a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if expires.Valid {
		a.RefreshTokenExpiresAt = expires.Time.UTC()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
