package accounts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 9, 1, 8, 30, 0, 0, time.UTC)

func newAccount(mail string) *models.Account {
	return &models.Account{
		Mail:         mail,
		Salt:         []byte("salt-0123456789a"),
		PasswordHash: []byte("hash-0123456789abcdef0123456789a"),
		CreatedAt:    t0,
		UpdatedAt:    t0,
	}
}

// testRepositoryContract runs the behaviour every Repository must share.
func testRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create then find", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("a@x.edu")
		require.NoError(t, r.Create(ctx, a))
		assert.Equal(t, int64(1), a.Version)

		got, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.Equal(t, a.Salt, got.Salt)
		assert.Equal(t, a.PasswordHash, got.PasswordHash)
		assert.Empty(t, got.RefreshToken)
		assert.True(t, got.RefreshTokenExpiresAt.IsZero())
		assert.Equal(t, int64(1), got.Version)
	})

	t.Run("duplicate create", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newAccount("a@x.edu")))
		require.ErrorIs(t, r.Create(ctx, newAccount("a@x.edu")), common.ErrorAlreadyExists)
	})

	t.Run("find missing", func(t *testing.T) {
		r := newRepo(t)
		_, err := r.FindByIdentity(ctx, "nobody@x.edu")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("exists", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newAccount("a@x.edu")))

		ok, err := r.Exists(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = r.Exists(ctx, "b@x.edu")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("save refresh token keeps credential", func(t *testing.T) {
		r := newRepo(t)
		a := newAccount("a@x.edu")
		require.NoError(t, r.Create(ctx, a))

		exp := t0.Add(72 * time.Hour)
		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			RefreshToken: &models.RefreshToken{Value: "tok-1", ExpiresAt: exp},
			UpdatedAt:    t0.Add(time.Minute),
		}))

		got, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", got.RefreshToken)
		assert.True(t, got.RefreshTokenExpiresAt.Equal(exp))
		assert.Equal(t, a.Salt, got.Salt)
		assert.Equal(t, a.PasswordHash, got.PasswordHash)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("save credential keeps refresh token", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newAccount("a@x.edu")))

		exp := t0.Add(72 * time.Hour)
		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			RefreshToken: &models.RefreshToken{Value: "tok-1", ExpiresAt: exp},
		}))
		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			Credential: &models.Credential{Salt: []byte("new-salt"), Digest: []byte("new-hash")},
		}))

		got, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.Equal(t, []byte("new-salt"), got.Salt)
		assert.Equal(t, []byte("new-hash"), got.PasswordHash)
		assert.Equal(t, "tok-1", got.RefreshToken)
		assert.Equal(t, int64(3), got.Version)
	})

	t.Run("save empty refresh token", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newAccount("a@x.edu")))
		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			RefreshToken: &models.RefreshToken{Value: "tok-1", ExpiresAt: t0.Add(time.Hour)},
		}))
		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			RefreshToken: &models.RefreshToken{Value: "", ExpiresAt: t0},
		}))

		got, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.Empty(t, got.RefreshToken)
		assert.True(t, got.RefreshTokenExpiresAt.Equal(t0))
	})

	t.Run("later save wins", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newAccount("a@x.edu")))

		first, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		second, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		require.Equal(t, first.Version, second.Version)

		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			RefreshToken: &models.RefreshToken{Value: "tok-1", ExpiresAt: t0.Add(time.Hour)},
		}))
		require.NoError(t, r.Save(ctx, "a@x.edu", &models.AccountUpdate{
			RefreshToken: &models.RefreshToken{Value: "tok-2", ExpiresAt: t0.Add(time.Hour)},
		}))

		got, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.Equal(t, "tok-2", got.RefreshToken)
		assert.Equal(t, int64(3), got.Version)
	})

	t.Run("missing account conflicts", func(t *testing.T) {
		r := newRepo(t)
		err := r.Save(ctx, "nobody@x.edu", &models.AccountUpdate{})
		require.ErrorIs(t, err, common.ErrPersistenceConflict)
	})

	t.Run("concurrent saves all apply", func(t *testing.T) {
		r := newRepo(t)
		require.NoError(t, r.Create(ctx, newAccount("a@x.edu")))

		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := r.Save(ctx, "a@x.edu", &models.AccountUpdate{
					RefreshToken: &models.RefreshToken{Value: "tok", ExpiresAt: t0.Add(time.Hour)},
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := r.FindByIdentity(ctx, "a@x.edu")
		require.NoError(t, err)
		assert.Equal(t, int64(1+writers), got.Version)
	})
}
