package services

import (
	"context"
	"log/slog"

	"github.com/yukikurage/task-tracker/internal/auth"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

// AuthService handles registration, login and token renewal.
type AuthService struct {
	store *repository.Store
	authn *auth.Authenticator
	log   *slog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(deps Deps) *AuthService {
	return &AuthService{
		store: deps.Store,
		authn: deps.Authenticator,
		log:   deps.Logger,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	LoginID     string
	DisplayName string
	Email       string
	Password    string
}

// Register creates a regular user account.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	user, err := newUser(ctx, s.store.Users, s.authn.Hasher(), CreateUserInput{
		LoginID:     input.LoginID,
		DisplayName: input.DisplayName,
		Email:       input.Email,
		Password:    input.Password,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	LoginID    string
	Password   string
	RememberMe bool
}

// LoginResult is the authenticated user and their session tokens.
type LoginResult struct {
	User   *models.User
	Tokens *auth.TokenPair
}

// Login verifies credentials and issues a token pair.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, tokens, err := s.authn.Login(ctx, input.LoginID, input.Password, input.RememberMe)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	return s.authn.Refresh(ctx, refreshToken)
}

// Authenticate verifies an access token and returns the actor's claims.
func (s *AuthService) Authenticate(accessToken string) (*auth.Claims, error) {
	return s.authn.VerifyToken(accessToken)
}
