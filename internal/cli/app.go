// Package cli implements authctl, an operator REPL driving the
// authentication service directly: register accounts, log in, refresh and
// verify tokens, change passwords and log out.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/logging"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
	"github.com/google/uuid"
)

// Authenticator is the part of services.AuthService the REPL uses.
type Authenticator interface {
	Register(ctx context.Context, identity, plaintext string) error
	ChangePassword(ctx context.Context, identity, newPlaintext string) error
	Authenticate(ctx context.Context, identity, plaintext string) (*models.TokenPair, error)
	Refresh(ctx context.Context, identity, refreshValue string) (*models.TokenPair, error)
	Revoke(ctx context.Context, identity, refreshValue string) error
	VerifyAccessToken(ctx context.Context, token string) (string, error)
}

var ErrNotLoggedIn = errors.New("not logged in")

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// App holds the REPL state. A session is the token pair of the last login.
type App struct {
	auth    Authenticator
	reader  *bufio.Reader
	out     io.Writer
	logger  logging.Logger
	session *models.TokenPair
}

// NewApp builds a REPL over auth reading commands from in. Every log line
// carries a random session id.
func NewApp(auth Authenticator, in io.Reader, out io.Writer, l logging.Logger) *App {
	if l == nil {
		l = logging.Discard()
	}
	return &App{
		auth:   auth,
		reader: bufio.NewReader(in),
		out:    out,
		logger: l.With("module", "authctl", "session_id", uuid.NewString()),
	}
}

// Run starts the loop and returns when the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	a.logger.Info(ctx, "authctl started")
	runREPL(ctx, a, a.status, a.reader)
	a.logger.Info(ctx, "authctl stopped")
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) status() string {
	if a.session == nil {
		return "anonymous"
	}
	return a.session.Mail
}

func (a *App) readCredentials(passwordPrompt string) (string, []byte, error) {
	mail, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.reader, passwordPrompt, a.out)
	if err != nil {
		return "", nil, err
	}
	return mail, password, nil
}

// Register prompts for an email and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	mail, password, err := a.readCredentials("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, mail, string(password)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login authenticates and keeps the returned token pair as the session.
func (a *App) Login(ctx context.Context) error {
	mail, password, err := a.readCredentials("Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	pair, err := a.auth.Authenticate(ctx, mail, string(password))
	if err != nil {
		return err
	}

	a.session = pair
	fmt.Fprintf(a.out, "Logged in as %s, access token valid until %s\n",
		pair.Mail, pair.AccessTokenExpiresAt.Format(time.RFC3339))
	return nil
}

// Refresh renews the session access token.
func (a *App) Refresh(ctx context.Context) error {
	if a.session == nil {
		return ErrNotLoggedIn
	}

	pair, err := a.auth.Refresh(ctx, a.session.Mail, a.session.RefreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			a.session = nil
			fmt.Fprintln(a.out, "Session expired, please log in again")
		}
		return err
	}

	a.session = pair
	fmt.Fprintf(a.out, "Access token valid until %s\n", pair.AccessTokenExpiresAt.Format(time.RFC3339))
	return nil
}

// ChangePassword prompts for a new password for the logged-in account.
func (a *App) ChangePassword(ctx context.Context) error {
	if a.session == nil {
		return ErrNotLoggedIn
	}

	password, err := getPassword(a.reader, "Enter new password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.ChangePassword(ctx, a.session.Mail, string(password)); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password changed")
	return nil
}

// Verify checks the session access token.
func (a *App) Verify(ctx context.Context) error {
	if a.session == nil {
		return ErrNotLoggedIn
	}

	identity, err := a.auth.VerifyAccessToken(ctx, a.session.AccessToken)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Access token is valid for %s\n", identity)
	return nil
}

// Logout revokes the refresh token and drops the session.
func (a *App) Logout(ctx context.Context) error {
	if a.session == nil {
		return ErrNotLoggedIn
	}

	err := a.auth.Revoke(ctx, a.session.Mail, a.session.RefreshToken)
	a.session = nil
	if err != nil && !errors.Is(err, common.ErrorUnauthorized) {
		return err
	}

	fmt.Fprintln(a.out, "Logged out")
	return nil
}
