package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// Authentication attempt outcomes reported to an AttemptRecorder.
const (
	ResultSuccess            = "success"
	ResultInvalidCredentials = "invalid_credentials"
	ResultInvalidToken       = "invalid_token"
	ResultExpiredToken       = "expired_token"
)

// AttemptRecorder observes authentication outcomes.
type AttemptRecorder interface {
	RecordAuthAttempt(result string)
}

// Authenticator verifies credentials and manages session tokens.
type Authenticator struct {
	users    repository.UserRepository
	hasher   *Hasher
	tokens   *TokenIssuer
	log      *slog.Logger
	recorder AttemptRecorder
	now      func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

// WithAttemptRecorder reports every authentication outcome to r.
func WithAttemptRecorder(r AttemptRecorder) Option {
	return func(a *Authenticator) { a.recorder = r }
}

// WithClock overrides the clock used to stamp last login.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users repository.UserRepository, hasher *Hasher, tokens *TokenIssuer, opts ...Option) *Authenticator {
	a := &Authenticator{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logger.OrDefault(a.log)
	return a
}

// Hasher returns the password hasher shared with the services.
func (a *Authenticator) Hasher() *Hasher {
	return a.hasher
}

func invalidCredentials() error {
	return apperrors.Authentication(apperrors.ErrCodeInvalidCredentials, "invalid login id or password")
}

// VerifyCredentials returns the user identified by loginID if password
// matches, and stamps the user's last login.
func (a *Authenticator) VerifyCredentials(ctx context.Context, loginID, password string) (*models.User, error) {
	user, err := a.users.FindByLoginID(ctx, loginID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		a.hasher.CompareDummy(password)
		a.record(ResultInvalidCredentials)
		a.log.Info("login rejected", "login_id", loginID, "reason", "unknown login id")
		return nil, invalidCredentials()
	}
	if !a.hasher.Compare(user.Password, password) {
		a.record(ResultInvalidCredentials)
		a.log.Info("login rejected", "user_id", user.ID, "reason", "password mismatch")
		return nil, invalidCredentials()
	}

	at := a.now()
	if _, err := a.users.TouchLastLogin(ctx, user.ID, at); err != nil {
		return nil, err
	}
	user.LastLogin = &at

	a.record(ResultSuccess)
	a.log.Info("login succeeded", "user_id", user.ID)
	return user, nil
}

// IssueToken issues an access and refresh token pair for user.
func (a *Authenticator) IssueToken(user *models.User, rememberMe bool) (*TokenPair, error) {
	return a.tokens.Issue(user, rememberMe)
}

// Login verifies credentials and issues a token pair in one step.
func (a *Authenticator) Login(ctx context.Context, loginID, password string, rememberMe bool) (*models.User, *TokenPair, error) {
	user, err := a.VerifyCredentials(ctx, loginID, password)
	if err != nil {
		return nil, nil, err
	}
	pair, err := a.IssueToken(user, rememberMe)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// VerifyToken validates an access token and returns its claims.
func (a *Authenticator) VerifyToken(token string) (*Claims, error) {
	claims, err := a.tokens.Verify(token, TokenTypeAccess)
	if err != nil {
		a.recordTokenFailure(err)
		return nil, err
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new token pair. The user is
// reloaded so role changes and deletions apply immediately.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := a.tokens.Verify(refreshToken, TokenTypeRefresh)
	if err != nil {
		a.recordTokenFailure(err)
		return nil, err
	}

	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		a.record(ResultInvalidToken)
		return nil, apperrors.Authentication(apperrors.ErrCodeTokenInvalid, "token is invalid")
	}

	a.record(ResultSuccess)
	return a.tokens.Issue(user, claims.RememberMe)
}

func (a *Authenticator) recordTokenFailure(err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrCodeTokenExpired {
		a.record(ResultExpiredToken)
		return
	}
	a.record(ResultInvalidToken)
}

func (a *Authenticator) record(result string) {
	if a.recorder != nil {
		a.recorder.RecordAuthAttempt(result)
	}
}
