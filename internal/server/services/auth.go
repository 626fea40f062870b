// Package services contains server-side business logic. This file implements
// AuthService, which registers accounts, authenticates them and issues,
// refreshes and revokes session tokens.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/clock"
	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/cryptox"
	"github.com/dmitrijs2005/skillauth/internal/logging"
	"github.com/dmitrijs2005/skillauth/internal/server/auth"
	"github.com/dmitrijs2005/skillauth/internal/server/config"
	"github.com/dmitrijs2005/skillauth/internal/server/metrics"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
	"github.com/dmitrijs2005/skillauth/internal/server/repositories/accounts"
)

// Flow names used for logging and metrics.
const (
	FlowRegister       = "register"
	FlowChangePassword = "change_password"
	FlowAuthenticate   = "authenticate"
	FlowRefresh        = "refresh"
	FlowRevoke         = "revoke"
	FlowVerify         = "verify"
)

var decoySalt = common.GenerateRandByteArray(cryptox.SaltSize)

// AuthService composes the password hasher, the access token issuer and the
// refresh token manager over an account store. It keeps no per-request state
// and is safe for concurrent use.
type AuthService struct {
	accounts accounts.Repository
	hasher   *cryptox.PasswordHasher
	issuer   *auth.Issuer
	refresh  *auth.RefreshManager
	clock    clock.Clock
	log      logging.Logger
	metrics  *metrics.AuthMetrics
}

type options struct {
	clock   clock.Clock
	random  io.Reader
	logger  logging.Logger
	metrics *metrics.AuthMetrics
}

// Option customizes an AuthService.
type Option func(*options)

// WithClock sets the time source for token lifetimes and expiry checks.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// WithRandom sets the entropy source for salts and refresh tokens.
func WithRandom(r io.Reader) Option { return func(o *options) { o.random = r } }

// WithLogger sets the logger for flow events.
func WithLogger(l logging.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics records flow outcomes and durations on m.
func WithMetrics(m *metrics.AuthMetrics) Option { return func(o *options) { o.metrics = m } }

// NewAuthService builds the service from the token settings in cfg.
func NewAuthService(repo accounts.Repository, cfg *config.Config, opts ...Option) *AuthService {
	o := &options{clock: clock.System(), logger: logging.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	return &AuthService{
		accounts: repo,
		hasher:   cryptox.NewPasswordHasher(o.random),
		issuer:   auth.NewIssuer(cfg.TokenConfig(), o.clock),
		refresh:  auth.NewRefreshManager(cfg.RefreshTokenValidityDuration, o.clock, o.random),
		clock:    o.clock,
		log:      o.logger.With("module", "auth_service"),
		metrics:  o.metrics,
	}
}

// NormalizeIdentity trims surrounding whitespace and lower-cases the mail.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// HashNewPassword derives a credential under a freshly generated salt.
func (s *AuthService) HashNewPassword(plaintext string) (salt, digest []byte, err error) {
	if plaintext == "" {
		return nil, nil, common.ErrorEmptyPassword
	}
	salt, digest, err = s.hasher.HashNew(plaintext)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return salt, digest, nil
}

// Register creates an account for identity. A taken identity yields
// common.ErrorAlreadyExists.
func (s *AuthService) Register(ctx context.Context, identity, plaintext string) (err error) {
	defer s.observe(FlowRegister, s.clock.Now(), &err)

	mail := NormalizeIdentity(identity)
	if mail == "" {
		return common.ErrorEmptyIdentity
	}
	log := s.log.With("flow", FlowRegister, "identity", logging.MaskEmail(mail))

	salt, digest, err := s.HashNewPassword(plaintext)
	if err != nil {
		if !errors.Is(err, common.ErrorEmptyPassword) {
			log.Error(ctx, "hashing failed", "error", err)
		}
		return err
	}

	now := s.clock.Now()
	err = s.accounts.Create(ctx, &models.Account{
		Mail:         mail,
		Salt:         salt,
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			log.Warn(ctx, "identity already registered")
			return common.ErrorAlreadyExists
		}
		log.Error(ctx, "create account failed", "error", err)
		return common.ErrorInternal
	}

	log.Info(ctx, "account registered")
	return nil
}

// ChangePassword stores a new salt and digest for identity. The current
// refresh token stays valid.
func (s *AuthService) ChangePassword(ctx context.Context, identity, newPlaintext string) (err error) {
	defer s.observe(FlowChangePassword, s.clock.Now(), &err)

	mail := NormalizeIdentity(identity)
	log := s.log.With("flow", FlowChangePassword, "identity", logging.MaskEmail(mail))

	_, err = s.findAccount(ctx, log, mail)
	if err != nil {
		return err
	}

	salt, digest, err := s.HashNewPassword(newPlaintext)
	if err != nil {
		return err
	}

	update := &models.AccountUpdate{
		Credential: &models.Credential{Salt: salt, Digest: digest},
		UpdatedAt:  s.clock.Now(),
	}
	if err := s.save(ctx, log, mail, update); err != nil {
		return err
	}

	log.Info(ctx, "password changed")
	return nil
}

// Authenticate verifies the password and issues a new token pair. The new
// refresh token replaces any previous one. Unknown identities and wrong
// passwords both yield common.ErrorUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, identity, plaintext string) (pair *models.TokenPair, err error) {
	defer s.observe(FlowAuthenticate, s.clock.Now(), &err)

	mail := NormalizeIdentity(identity)
	log := s.log.With("flow", FlowAuthenticate, "identity", logging.MaskEmail(mail))

	account, err := s.findAccount(ctx, log, mail)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// same work as a real check so response time does not reveal the identity
			_ = cryptox.Hash(decoySalt, plaintext)
		}
		return nil, collapseNotFound(err)
	}

	if !cryptox.Verify(account.Salt, account.PasswordHash, plaintext) {
		log.Warn(ctx, "password mismatch")
		return nil, common.ErrorUnauthorized
	}

	refresh, err := s.refresh.Rotate(account)
	if err != nil {
		log.Error(ctx, "refresh token generation failed", "error", err)
		return nil, common.ErrorInternal
	}

	access, err := s.issuer.Issue(mail)
	if err != nil {
		log.Error(ctx, "access token signing failed", "error", err)
		return nil, common.ErrorInternal
	}

	update := &models.AccountUpdate{
		RefreshToken: refresh,
		UpdatedAt:    s.clock.Now(),
	}
	if err := s.save(ctx, log, mail, update); err != nil {
		return nil, collapseNotFound(err)
	}

	log.Info(ctx, "authenticated")
	return &models.TokenPair{
		AccessToken:           access.Token,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refresh.Value,
		RefreshTokenExpiresAt: refresh.ExpiresAt,
		Mail:                  mail,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token is echoed back unchanged and nothing is persisted.
func (s *AuthService) Refresh(ctx context.Context, identity, refreshValue string) (pair *models.TokenPair, err error) {
	defer s.observe(FlowRefresh, s.clock.Now(), &err)

	mail := NormalizeIdentity(identity)
	log := s.log.With("flow", FlowRefresh, "identity", logging.MaskEmail(mail))

	account, err := s.findAccount(ctx, log, mail)
	if err != nil {
		return nil, collapseNotFound(err)
	}

	if !s.refresh.Validate(account, refreshValue) {
		log.Warn(ctx, "refresh token rejected")
		return nil, common.ErrorUnauthorized
	}

	access, err := s.issuer.Issue(mail)
	if err != nil {
		log.Error(ctx, "access token signing failed", "error", err)
		return nil, common.ErrorInternal
	}

	log.Info(ctx, "access token refreshed")
	return &models.TokenPair{
		AccessToken:           access.Token,
		AccessTokenExpiresAt:  access.ExpiresAt,
		RefreshToken:          refreshValue,
		RefreshTokenExpiresAt: account.RefreshTokenExpiresAt,
		Mail:                  mail,
	}, nil
}

// Revoke logs identity out: a currently valid refresh token is replaced with
// an empty, already expired one.
func (s *AuthService) Revoke(ctx context.Context, identity, refreshValue string) (err error) {
	defer s.observe(FlowRevoke, s.clock.Now(), &err)

	mail := NormalizeIdentity(identity)
	log := s.log.With("flow", FlowRevoke, "identity", logging.MaskEmail(mail))

	account, err := s.findAccount(ctx, log, mail)
	if err != nil {
		return collapseNotFound(err)
	}

	if !s.refresh.Validate(account, refreshValue) {
		log.Warn(ctx, "refresh token rejected")
		return common.ErrorUnauthorized
	}

	update := &models.AccountUpdate{
		RefreshToken: s.refresh.Revoked(),
		UpdatedAt:    s.clock.Now(),
	}
	if err := s.save(ctx, log, mail, update); err != nil {
		return collapseNotFound(err)
	}

	log.Info(ctx, "refresh token revoked")
	return nil
}

// VerifyAccessToken returns the identity asserted by a valid access token.
// Failures are common.ErrTokenExpired or common.ErrInvalidToken.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (identity string, err error) {
	defer s.observe(FlowVerify, s.clock.Now(), &err)

	identity, err = s.issuer.Verify(token)
	if err != nil {
		s.log.Debug(ctx, "access token rejected", "flow", FlowVerify, "error", err)
		return "", err
	}
	return identity, nil
}

func (s *AuthService) findAccount(ctx context.Context, log logging.Logger, mail string) (*models.Account, error) {
	if mail == "" {
		log.Warn(ctx, "empty identity")
		return nil, common.ErrorNotFound
	}
	account, err := s.accounts.FindByIdentity(ctx, mail)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			log.Warn(ctx, "account not found")
			return nil, common.ErrorNotFound
		}
		log.Error(ctx, "account lookup failed", "error", err)
		return nil, common.ErrorInternal
	}
	return account, nil
}

// save persists update once. A conflict is resolved by checking whether the
// account still exists: a vanished account is reported as
// common.ErrorNotFound, a live one as common.ErrRetryable.
func (s *AuthService) save(ctx context.Context, log logging.Logger, mail string, update *models.AccountUpdate) error {
	err := s.accounts.Save(ctx, mail, update)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrPersistenceConflict) {
		log.Error(ctx, "save account failed", "error", err)
		return common.ErrorInternal
	}

	exists, err := s.accounts.Exists(ctx, mail)
	if err != nil {
		log.Error(ctx, "account existence check failed", "error", err)
		return common.ErrorInternal
	}
	if !exists {
		log.Warn(ctx, "account vanished during save")
		return common.ErrorNotFound
	}

	log.Warn(ctx, "account save conflicted")
	return fmt.Errorf("%w: %w", common.ErrRetryable, common.ErrPersistenceConflict)
}

// collapseNotFound hides whether the identity exists.
func collapseNotFound(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorUnauthorized
	}
	return err
}

func (s *AuthService) observe(flow string, start time.Time, err *error) {
	s.metrics.Observe(flow, outcome(*err), s.clock.Now().Sub(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, common.ErrorUnauthorized):
		return metrics.OutcomeUnauthorized
	case errors.Is(err, common.ErrRetryable):
		return metrics.OutcomeConflict
	case errors.Is(err, common.ErrorInternal):
		return metrics.OutcomeError
	default:
		return metrics.OutcomeInvalid
	}
}
