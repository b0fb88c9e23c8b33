package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yukikurage/task-tracker/internal/config"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/logger"
	"github.com/yukikurage/task-tracker/internal/models"
)

const issuer = "task-tracker"

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the verified payload of a session token.
type Claims struct {
	UserID     uint64      `json:"uid"`
	Role       models.Role `json:"role"`
	TokenType  TokenType   `json:"typ"`
	RememberMe bool        `json:"rem,omitempty"`
	jwt.RegisteredClaims
}

// IsSystemAdmin reports whether the actor holds the global admin role.
func (c *Claims) IsSystemAdmin() bool {
	return c != nil && c.Role == models.RoleSystemAdmin
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// TokenConfig holds the lifetimes used by a TokenIssuer.
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
}

// DefaultTokenConfig is one hour for access tokens, a week for refresh
// tokens and thirty days for refresh tokens issued with remember-me.
var DefaultTokenConfig = TokenConfig{
	AccessTTL:     time.Hour,
	RefreshTTL:    7 * 24 * time.Hour,
	RememberMeTTL: 30 * 24 * time.Hour,
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	cfg    TokenConfig
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. now may be nil.
func NewTokenIssuer(secret []byte, cfg TokenConfig, now func() time.Time) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is empty")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.RememberMeTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: secret, cfg: cfg, now: now}, nil
}

// ResolveSecret returns the signing secret from cfg. Production requires an
// explicit secret of at least config.MinProductionSecretLength bytes; other
// environments get a random per-process secret and a warning.
func ResolveSecret(cfg *config.Config, log *slog.Logger) ([]byte, error) {
	log = logger.OrDefault(log)

	if cfg.JWTSecret != "" {
		if cfg.IsProduction() && len(cfg.JWTSecret) < config.MinProductionSecretLength {
			return nil, fmt.Errorf("jwt secret must be at least %d bytes in production", config.MinProductionSecretLength)
		}
		return []byte(cfg.JWTSecret), nil
	}
	if cfg.IsProduction() {
		return nil, errors.New("jwt secret is required in production")
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	log.Warn("no jwt secret configured, using an ephemeral secret; tokens will not survive a restart",
		"env", string(cfg.Env))
	return secret, nil
}

// Issue signs an access token and a refresh token for user. rememberMe
// selects the longer refresh lifetime.
func (i *TokenIssuer) Issue(user *models.User, rememberMe bool) (*TokenPair, error) {
	now := i.now()

	accessExp := now.Add(i.cfg.AccessTTL).Truncate(jwt.TimePrecision)
	access, err := i.sign(user, TokenTypeAccess, false, now, accessExp)
	if err != nil {
		return nil, err
	}

	refreshTTL := i.cfg.RefreshTTL
	if rememberMe {
		refreshTTL = i.cfg.RememberMeTTL
	}
	refreshExp := now.Add(refreshTTL).Truncate(jwt.TimePrecision)
	refresh, err := i.sign(user, TokenTypeRefresh, rememberMe, now, refreshExp)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *TokenIssuer) sign(user *models.User, typ TokenType, rememberMe bool, now, exp time.Time) (string, error) {
	claims := &Claims{
		UserID:     user.ID,
		Role:       user.Role,
		TokenType:  typ,
		RememberMe: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatUint(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, expiry and type of token and returns its claims.
// Every failure is an AuthenticationError.
func (i *TokenIssuer) Verify(token string, want TokenType) (*Claims, error) {
	if token == "" {
		return nil, apperrors.Authentication(apperrors.ErrCodeUnauthorized, "token is required")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.Authentication(apperrors.ErrCodeTokenExpired, "token has expired")
		}
		return nil, apperrors.Authentication(apperrors.ErrCodeTokenInvalid, "token is invalid")
	}

	if claims.TokenType != want {
		return nil, apperrors.Authentication(apperrors.ErrCodeTokenInvalid, "token is invalid")
	}
	if !claims.Role.Valid() || claims.UserID == 0 {
		return nil, apperrors.Authentication(apperrors.ErrCodeTokenInvalid, "token is invalid")
	}
	return claims, nil
}
