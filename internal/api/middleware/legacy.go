package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
)

// Older entry points kept for routes that predate the permission matrix.
// Each is a thin wrapper over the same policy tables.

// RequireRole admits callers whose role is one of roles.
func RequireRole(p *policy.Policy, roles ...domain.Role) echo.MiddlewareFunc {
	return guard("role", func(c echo.Context, u *domain.User) error {
		if !p.HasAnyRole(u, roles...) {
			return domain.ErrInsufficientRoleLevel
		}
		return nil
	})
}

// CanCreatePosts is RequirePermission(WRITE_COMMUNITY).
func CanCreatePosts(p *policy.Policy) echo.MiddlewareFunc {
	return RequirePermission(p, domain.PermWriteCommunity)
}

// CanModerate is RequirePermission(MODERATE_COMMUNITY).
func CanModerate(p *policy.Policy) echo.MiddlewareFunc {
	return RequirePermission(p, domain.PermModerateCommunity)
}

// IsAdmin is RequireRoleLevel(admin).
func IsAdmin(p *policy.Policy) echo.MiddlewareFunc {
	return RequireRoleLevel(p, string(domain.RoleAdmin))
}
