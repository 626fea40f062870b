package accounts

import (
	"context"
	"slices"
	"sync"

	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
)

// MemoryRepository keeps accounts in a map. It is safe for concurrent use and
// follows the same save rules as the SQL stores.
type MemoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{accounts: make(map[string]models.Account)}
}

func (r *MemoryRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.Mail]; ok {
		return common.ErrorAlreadyExists
	}

	account.Version = 1
	account.CreatedAt = orNow(account.CreatedAt)
	account.UpdatedAt = orNow(account.UpdatedAt)
	r.accounts[account.Mail] = clone(*account)
	return nil
}

func (r *MemoryRepository) FindByIdentity(_ context.Context, mail string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[mail]
	if !ok {
		return nil, common.ErrorNotFound
	}
	out := clone(a)
	return &out, nil
}

func (r *MemoryRepository) Exists(_ context.Context, mail string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[mail]
	return ok, nil
}

func (r *MemoryRepository) Save(_ context.Context, mail string, update *models.AccountUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[mail]
	if !ok {
		return common.ErrPersistenceConflict
	}

	u := *update
	u.UpdatedAt = orNow(u.UpdatedAt)
	r.accounts[mail] = clone(u.Apply(a))
	return nil
}

func clone(a models.Account) models.Account {
	a.Salt = slices.Clone(a.Salt)
	a.PasswordHash = slices.Clone(a.PasswordHash)
	return a
}
