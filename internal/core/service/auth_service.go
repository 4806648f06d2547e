package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// AuthService implements registration, login and bearer token resolution.
type AuthService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	tokens ports.TokenManager
	logger zerolog.Logger
	now    func() time.Time
}

func NewAuthService(users ports.UserRepository, hasher ports.PasswordHasher, tokens ports.TokenManager, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a pending account. The returned user carries no hash.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	displayName := strings.TrimSpace(in.DisplayName)

	verr := &domain.ValidationError{}
	if email == "" {
		verr.Add("email", "email is required")
	}
	if username == "" {
		verr.Add("username", "username is required")
	}
	if displayName == "" {
		verr.Add("displayName", "display name is required")
	}
	if in.Password == "" {
		verr.Add("password", "password is required")
	}
	if !verr.Empty() {
		return nil, verr
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         domain.RolePending,
		IsActive:     true,
		Bio:          strings.TrimSpace(in.Bio),
		Reason:       strings.TrimSpace(in.Reason),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Msg("user registered, pending approval")
	return created.Sanitized(), nil
}

// Login checks credentials first, then account state, so a wrong password
// never reveals whether an account is deactivated or pending.
func (s *AuthService) Login(ctx context.Context, login, password string) (*ports.Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByLogin(ctx, login, true)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(ctx, user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	if user.Role == domain.RolePending {
		return nil, domain.ErrPendingApproval
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	} else {
		user.LastLoginAt = &now
	}

	return s.session(user)
}

// Refresh issues a fresh token for an already authenticated user. The same
// account-state rules as Login apply, so an account moved back to pending
// cannot extend its session.
func (s *AuthService) Refresh(_ context.Context, user *domain.User) (*ports.Session, error) {
	if user == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	if user.Role == domain.RolePending {
		return nil, domain.ErrPendingApproval
	}
	return s.session(user)
}

// Authenticate walks a raw token through verification and a live account
// lookup. Store failures are returned unclassified so they surface as
// internal errors rather than rejections.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*domain.User, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, domain.ErrMissingToken
	}

	userID, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID, false)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrTokenUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if !user.IsActive {
		return nil, domain.ErrAccountDeactivated
	}
	return user.Sanitized(), nil
}

func (s *AuthService) session(user *domain.User) (*ports.Session, error) {
	token, exp, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &ports.Session{Token: token, ExpiresAt: exp, User: user.Sanitized()}, nil
}
