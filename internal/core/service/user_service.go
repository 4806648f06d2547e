package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

const (
	defaultUserPage = 50
	maxUserPage     = 100
	minPasswordLen  = 6
)

// UserService implements account administration and self-service updates.
type UserService struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	policy *policy.Policy
	store  ports.PolicyStore
	logger zerolog.Logger
}

// NewUserService wires the service. store may be nil, in which case matrix
// updates stay local to this process.
func NewUserService(users ports.UserRepository, hasher ports.PasswordHasher, p *policy.Policy, store ports.PolicyStore, logger zerolog.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, policy: p, store: store, logger: logger}
}

func (s *UserService) List(ctx context.Context, filter ports.UserFilter) (*ports.Page[*domain.User], error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, domain.NewValidationError("role", "unknown role")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.Limit = pageBounds(filter.Page, filter.Limit, defaultUserPage, maxUserPage)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return newPage(sanitizeAll(users), total, filter.Page, filter.Limit), nil
}

// Pending returns every account waiting for approval, newest first.
func (s *UserService) Pending(ctx context.Context) ([]*domain.User, error) {
	users, _, err := s.users.List(ctx, ports.UserFilter{Role: domain.RolePending})
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return sanitizeAll(users), nil
}

// Approve moves a pending account to role, free_user when role is empty.
func (s *UserService) Approve(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error) {
	return s.approve(ctx, actor, id, role, true)
}

// ApproveSimple is the older approval route: it skips the pending check.
func (s *UserService) ApproveSimple(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error) {
	return s.approve(ctx, actor, id, role, false)
}

func (s *UserService) approve(ctx context.Context, actor *domain.User, id, role string, onlyIfPending bool) (*domain.User, error) {
	if strings.TrimSpace(role) == "" {
		role = string(domain.RoleFreeUser)
	}
	target, err := domain.ParseApprovedRole(role)
	if err != nil {
		return nil, err
	}

	user, err := s.users.UpdateRole(ctx, id, target, onlyIfPending)
	if err != nil {
		return nil, fmt.Errorf("approve user: %w", err)
	}

	s.logger.Info().
		Str("user_id", id).
		Str("role", string(target)).
		Str("actor_id", actorID(actor)).
		Msg("user approved")
	return user.Sanitized(), nil
}

// ChangeRole sets any known role. An admin cannot demote their own account.
func (s *UserService) ChangeRole(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error) {
	target, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.ID == id && actor.Role == domain.RoleAdmin && target != domain.RoleAdmin {
		return nil, domain.ErrSelfDemotion
	}

	user, err := s.users.UpdateRole(ctx, id, target, false)
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}

	s.logger.Info().
		Str("user_id", id).
		Str("role", string(target)).
		Str("actor_id", actorID(actor)).
		Msg("user role changed")
	return user.Sanitized(), nil
}

// SetStatus activates or deactivates an account. Deactivation takes effect on
// the next request because every request re-reads the account.
func (s *UserService) SetStatus(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error) {
	if !active && actor != nil && actor.ID == id {
		return nil, domain.ErrSelfLockout
	}

	user, err := s.users.UpdateStatus(ctx, id, active)
	if err != nil {
		return nil, fmt.Errorf("set user status: %w", err)
	}

	s.logger.Info().
		Str("user_id", id).
		Bool("active", active).
		Str("actor_id", actorID(actor)).
		Msg("user status changed")
	return user.Sanitized(), nil
}

// Reject deletes a registration that is still pending.
func (s *UserService) Reject(ctx context.Context, actor *domain.User, id string) error {
	if err := s.users.Delete(ctx, id, true); err != nil {
		return fmt.Errorf("reject user: %w", err)
	}
	s.logger.Info().Str("user_id", id).Str("actor_id", actorID(actor)).Msg("registration rejected")
	return nil
}

// Delete removes any account other than the caller's own.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if actor != nil && actor.ID == id {
		return domain.ErrSelfLockout
	}
	if err := s.users.Delete(ctx, id, false); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info().Str("user_id", id).Str("actor_id", actorID(actor)).Msg("user deleted")
	return nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, p ports.ProfileUpdate) (*domain.User, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	verr := &domain.ValidationError{}
	if p.DisplayName != nil {
		v := strings.TrimSpace(*p.DisplayName)
		if n := utf8.RuneCountInString(v); n < 2 || n > 50 {
			verr.Add("displayName", "display name must be 2-50 characters")
		}
		p.DisplayName = &v
	}
	if p.Bio != nil {
		v := strings.TrimSpace(*p.Bio)
		if utf8.RuneCountInString(v) > 200 {
			verr.Add("bio", "bio must be at most 200 characters")
		}
		p.Bio = &v
	}
	if p.ProfileImageURL != nil {
		v := strings.TrimSpace(*p.ProfileImageURL)
		p.ProfileImageURL = &v
	}
	if !verr.Empty() {
		return nil, verr
	}

	user, err := s.users.UpdateProfile(ctx, actor.ID, p)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user.Sanitized(), nil
}

// ChangePassword is the only path that re-hashes a stored password.
func (s *UserService) ChangePassword(ctx context.Context, actor *domain.User, current, next string) error {
	if actor == nil {
		return domain.ErrAuthenticationRequired
	}
	if current == "" {
		return domain.NewValidationError("currentPassword", "current password is required")
	}
	if len(next) < minPasswordLen {
		return domain.NewValidationError("newPassword", fmt.Sprintf("new password must be at least %d characters", minPasswordLen))
	}

	stored, err := s.users.FindByID(ctx, actor.ID, true)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	ok, err := s.hasher.Verify(ctx, stored.PasswordHash, current)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.logger.Info().Str("user_id", actor.ID).Msg("password changed")
	return nil
}

// UpdatePermissions merges partial into the live matrix, then persists and
// broadcasts the full snapshot. The merge and the save share one writer lock,
// so overlapping updates are published in the order they were applied. A
// persistence failure is reported, but the local change stays applied.
func (s *UserService) UpdatePermissions(ctx context.Context, actor *domain.User, partial domain.Matrix) (domain.Matrix, error) {
	var commit func(domain.Matrix) error
	if s.store != nil {
		commit = func(m domain.Matrix) error {
			if err := s.store.Save(ctx, m); err != nil {
				return fmt.Errorf("persist permission matrix: %w", err)
			}
			return nil
		}
	}

	snapshot, err := s.policy.UpdatePermissionMatrixFunc(partial, commit)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("actor_id", actorID(actor)).
		Int("entries", len(partial)).
		Msg("permission matrix updated")
	return snapshot, nil
}

func sanitizeAll(users []*domain.User) []*domain.User {
	out := make([]*domain.User, len(users))
	for i, u := range users {
		out[i] = u.Sanitized()
	}
	return out
}

func actorID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
