// Package auth issues and verifies the two session credentials: short-lived
// HS256 access tokens and long-lived opaque refresh tokens.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/clock"
	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the registered claims plus the account identity.
type Claims struct {
	jwt.RegisteredClaims
	Mail string `json:"mail"`
}

// TokenConfig is the immutable signing configuration shared by issuer and
// verifier. It is loaded once at startup.
type TokenConfig struct {
	SecretKey []byte
	Issuer    string
	Audience  string
	Lifetime  time.Duration
}

// Issuer signs and verifies access tokens. It holds no mutable state and is
// safe for concurrent use.
type Issuer struct {
	cfg   TokenConfig
	clock clock.Clock
}

// NewIssuer copies cfg so later changes by the caller have no effect.
func NewIssuer(cfg TokenConfig, clk clock.Clock) *Issuer {
	key := make([]byte, len(cfg.SecretKey))
	copy(key, cfg.SecretKey)
	cfg.SecretKey = key
	if clk == nil {
		clk = clock.System()
	}
	return &Issuer{cfg: cfg, clock: clk}
}

// Issue signs a token asserting identity with iat = nbf = now and
// exp = now + Lifetime. Times are truncated to whole seconds, as encoded.
func (i *Issuer) Issue(identity string) (*models.AccessToken, error) {
	now := i.clock.Now().Truncate(time.Second)
	expires := now.Add(i.cfg.Lifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Mail: identity,
	})

	signed, err := token.SignedString(i.cfg.SecretKey)
	if err != nil {
		return nil, err
	}

	return &models.AccessToken{Token: signed, ExpiresAt: expires}, nil
}

// Verify checks the signature, algorithm, issuer, audience and the
// [nbf, exp] window, and returns the subject identity.
// An expired token yields common.ErrTokenExpired, anything else
// common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.cfg.SecretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
