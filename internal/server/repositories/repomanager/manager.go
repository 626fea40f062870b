// Package repomanager opens the configured account store, vending the
// repository implementation that matches the database driver and applying the
// embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/dbx"
	"github.com/dmitrijs2005/skillauth/internal/logging"
	"github.com/dmitrijs2005/skillauth/internal/server/repositories/accounts"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
)

// Supported driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
}

// Store is an opened account store. DB is nil for the in-memory driver.
type Store struct {
	DB       *sql.DB
	Accounts accounts.Repository
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// pingBackoff bounds how long Open waits for the database to come up.
var pingBackoff = func() retry.Backoff {
	return retry.WithMaxRetries(5, retry.NewExponential(200*time.Millisecond))
}

// Open connects to the store named by driver, waits for it to answer a ping
// and brings its schema up to date.
func Open(ctx context.Context, driver, dsn string, l logging.Logger) (*Store, error) {
	if l == nil {
		l = logging.Discard()
	}
	l = l.With("module", "repomanager", "driver", driver)

	var (
		m          RepositoryManager
		driverName string
	)
	switch driver {
	case DriverMemory:
		l.Info(ctx, "using in-memory account store")
		return &Store{Accounts: accounts.NewMemoryRepository()}, nil
	case DriverPostgres:
		m, driverName = NewPostgresRepositoryManager(), "pgx"
	case DriverSQLite:
		m, driverName = NewSQLiteRepositoryManager(), "sqlite"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}

	attempt := 0
	err = retry.Do(ctx, pingBackoff(), func(ctx context.Context) error {
		attempt++
		if err := db.PingContext(ctx); err != nil {
			l.Warn(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", driver, err)
	}
	l.Info(ctx, "account store ready")

	return &Store{DB: db, Accounts: m.Accounts(db)}, nil
}
