package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/ats-platform/ats-backend/internal/cache"
	"github.com/ats-platform/ats-backend/internal/models"
	pgrepo "github.com/ats-platform/ats-backend/internal/repositories/postgres"
	"github.com/ats-platform/ats-backend/internal/security"
	"github.com/ats-platform/ats-backend/internal/utils"
)

type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*security.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
	Logout(ctx context.Context, accessClaims *security.Claims, refreshToken string) error
}

type authService struct {
	users  pgrepo.UserRepository
	tokens *security.TokenProvider
	cache  cache.Cache
}

func NewAuthService(users pgrepo.UserRepository, tokens *security.TokenProvider, c cache.Cache) AuthService {
	return &authService{users: users, tokens: tokens, cache: c}
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	const op = "AuthService.Register"

	fields := map[string]string{}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		fields["username"] = "username is required"
	}
	if in.Email == "" {
		fields["email"] = "email is required"
	} else if _, err := mail.ParseAddress(in.Email); err != nil {
		fields["email"] = "invalid email address"
	}
	if len(in.Password) < utils.MinPasswordLength {
		fields["password"] = "password must be at least 8 characters"
	}
	if in.Password != in.PasswordConfirm {
		fields["password_confirm"] = "passwords do not match"
	}
	if len(fields) > 0 {
		return nil, utils.EFields(op, "invalid registration", fields)
	}

	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, utils.E(utils.CodeConflict, op, "username is already taken", nil)
	} else if !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to check username", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to hash password", err)
	}

	u := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return u, nil
}

func (s *authService) Login(ctx context.Context, username, password string) (*security.TokenPair, error) {
	const op = "AuthService.Login"

	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeUnauthorized, op, "invalid username or password", nil)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	if err := utils.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, utils.E(utils.CodeUnauthorized, op, "invalid username or password", nil)
	}

	pair, err := s.tokens.IssuePair(u.ID, u.Username)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to issue tokens", err)
	}
	return pair, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	const op = "AuthService.Refresh"

	claims, err := s.tokens.Parse(refreshToken, security.TokenTypeRefresh)
	if err != nil {
		return "", utils.E(utils.CodeUnauthorized, op, "invalid refresh token", err)
	}
	if denied, err := s.cache.IsDenied(ctx, claims.ID); err == nil && denied {
		return "", utils.E(utils.CodeUnauthorized, op, "refresh token has been revoked", nil)
	}
	userID, err := claims.UserID()
	if err != nil {
		return "", utils.E(utils.CodeUnauthorized, op, "invalid refresh token", err)
	}

	access, err := s.tokens.IssueAccess(userID, claims.Username)
	if err != nil {
		return "", utils.E(utils.CodeInternal, op, "failed to issue access token", err)
	}
	return access, nil
}

func (s *authService) Me(ctx context.Context, userID int64) (*models.User, error) {
	const op = "AuthService.Me"

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "user not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load user", err)
	}
	return u, nil
}

// Logout revokes the presented access token, and the refresh token too
// when the client sends it along.
func (s *authService) Logout(ctx context.Context, accessClaims *security.Claims, refreshToken string) error {
	const op = "AuthService.Logout"

	if accessClaims == nil {
		return utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	if err := s.cache.Deny(ctx, accessClaims.ID, accessClaims.TTLUntilExpiry()); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to revoke token", err)
	}
	if refreshToken != "" {
		if claims, err := s.tokens.Parse(refreshToken, security.TokenTypeRefresh); err == nil {
			if err := s.cache.Deny(ctx, claims.ID, claims.TTLUntilExpiry()); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to revoke refresh token", err)
			}
		}
	}
	return nil
}
