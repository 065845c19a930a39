package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/saalabs/saa-portfolio/internal/models"
	pgrepo "github.com/saalabs/saa-portfolio/internal/repositories/postgres"
	"github.com/saalabs/saa-portfolio/internal/utils"
)

const defaultTokenTTL = 24 * time.Hour

type AuthService interface {
	// Guest creates a throwaway account so the dashboard works without signup.
	Guest(ctx context.Context) (string, *models.User, error)
	Register(ctx context.Context, email, name, password string) (string, *models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type authService struct {
	users    pgrepo.UserRepository
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthService(users pgrepo.UserRepository, secret string, tokenTTL time.Duration) (AuthService, error) {
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	return &authService{users: users, secret: []byte(secret), tokenTTL: tokenTTL}, nil
}

func (s *authService) mint(userID string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *authService) Guest(ctx context.Context) (string, *models.User, error) {
	const op = "AuthService.Guest"

	u := &models.User{
		ID:    uuid.NewString(),
		Email: uuid.NewString() + "@guest.local",
		Name:  "Guest User",
		Guest: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to create guest user", err)
	}
	token, err := s.mint(u.ID)
	if err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return token, u, nil
}

func (s *authService) Register(ctx context.Context, email, name, password string) (string, *models.User, error) {
	const op = "AuthService.Register"

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", nil, utils.E(utils.CodeInvalidArgument, op, "a valid email is required", nil)
	}
	if len(password) < 8 {
		return "", nil, utils.E(utils.CodeInvalidArgument, op, "password must be at least 8 characters", nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return "", nil, utils.E(utils.CodeConflict, op, "email already registered", nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to check email", err)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	token, err := s.mint(u.ID)
	if err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return token, u, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	const op = "AuthService.Login"

	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, utils.ErrNotFound) {
		return "", nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}
	if err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if u.Guest || utils.CheckPassword(u.PasswordHash, password) != nil {
		return "", nil, utils.E(utils.CodeUnauthorized, op, "invalid credentials", nil)
	}
	token, err := s.mint(u.ID)
	if err != nil {
		return "", nil, utils.E(utils.CodeInternal, op, "failed to sign token", err)
	}
	return token, u, nil
}
