package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PeterGeers/myadmin/internal/models"
	"github.com/PeterGeers/myadmin/internal/repo"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthService logs users in and rotates their refresh tokens.
type AuthService struct {
	users      repo.UserRepository
	tokens     *Tokens
	refresh    RefreshStore
	refreshTTL time.Duration
}

func NewAuthService(users repo.UserRepository, tokens *Tokens, refresh RefreshStore, refreshTTL time.Duration) *AuthService {
	return &AuthService{users: users, tokens: tokens, refresh: refresh, refreshTTL: refreshTTL}
}

func (a *AuthService) Tokens() *Tokens {
	return a.tokens
}

func (a *AuthService) Login(ctx context.Context, username, password string) (TokenPair, error) {
	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrUserNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return TokenPair{}, ErrInvalidCredentials
	}
	return a.issue(ctx, user)
}

// Refresh exchanges a refresh token for a new pair. The old token is spent.
func (a *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	username, err := a.refresh.Consume(ctx, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := a.users.GetByUsername(ctx, username)
	if errors.Is(err, repo.ErrUserNotFound) {
		return TokenPair{}, ErrUnknownRefreshToken
	}
	if err != nil {
		return TokenPair{}, err
	}
	return a.issue(ctx, user)
}

func (a *AuthService) issue(ctx context.Context, user models.User) (TokenPair, error) {
	token, err := a.tokens.Generate(user)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign token: %w", err)
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	if err := a.refresh.Save(ctx, refresh, user.Username, a.refreshTTL); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{Token: token, RefreshToken: refresh}, nil
}

// CreateUser hashes password and stores a user with roles and tenants.
func (a *AuthService) CreateUser(ctx context.Context, username, password string, roles, tenants []string) (models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	return a.users.CreateUser(ctx, models.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hashed),
		Roles:        roles,
		Tenants:      tenants,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
