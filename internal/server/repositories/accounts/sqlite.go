package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/dbx"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
)

// SQLiteRepository implements Repository for the embedded single-node store.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, account *models.Account) error {
	created := orNow(account.CreatedAt)
	updated := orNow(account.UpdatedAt)

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (mail, salt, password_hash, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(mail) DO NOTHING
	`, account.Mail, account.Salt, account.PasswordHash, created, updated)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	} else if n == 0 {
		return common.ErrorAlreadyExists
	}

	account.Version = 1
	account.CreatedAt = created
	account.UpdatedAt = updated
	return nil
}

func (r *SQLiteRepository) FindByIdentity(ctx context.Context, mail string) (*models.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `
		SELECT mail, salt, password_hash, refresh_token, refresh_token_expires_at, version, created_at, updated_at
		FROM accounts WHERE mail = ?
	`, mail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, mail string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE mail = ?`, mail).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, mail string, update *models.AccountUpdate) error {
	salt, hash, token, expires := updateArgs(update)

	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			salt = COALESCE(?, salt),
			password_hash = COALESCE(?, password_hash),
			refresh_token = COALESCE(?, refresh_token),
			refresh_token_expires_at = COALESCE(?, refresh_token_expires_at),
			version = version + 1,
			updated_at = ?
		WHERE mail = ?
	`, salt, hash, token, expires, orNow(update.UpdatedAt), mail)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if n == 0 {
		return common.ErrPersistenceConflict
	}
	return nil
}
