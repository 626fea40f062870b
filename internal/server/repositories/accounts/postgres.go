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

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (mail, salt, password_hash, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (mail) DO NOTHING
	`
	created := orNow(account.CreatedAt)
	updated := orNow(account.UpdatedAt)

	res, err := r.db.ExecContext(ctx, query, account.Mail, account.Salt, account.PasswordHash, created, updated)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyExists
	}

	account.Version = 1
	account.CreatedAt = created
	account.UpdatedAt = updated
	return nil
}

func (r *PostgresRepository) FindByIdentity(ctx context.Context, mail string) (*models.Account, error) {
	query := `
		SELECT mail, salt, password_hash, refresh_token, refresh_token_expires_at, version, created_at, updated_at
		FROM accounts
		WHERE mail = $1
	`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, mail))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, mail string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM accounts WHERE mail = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, mail).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Save(ctx context.Context, mail string, update *models.AccountUpdate) error {
	query := `
		UPDATE accounts SET
			salt = COALESCE($2, salt),
			password_hash = COALESCE($3, password_hash),
			refresh_token = COALESCE($4, refresh_token),
			refresh_token_expires_at = COALESCE($5, refresh_token_expires_at),
			version = version + 1,
			updated_at = $6
		WHERE mail = $1
	`
	salt, hash, token, expires := updateArgs(update)

	res, err := r.db.ExecContext(ctx, query, mail,
		salt, hash, token, expires, orNow(update.UpdatedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrPersistenceConflict
	}
	return nil
}
