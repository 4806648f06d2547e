package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/api/metrics"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
)

// OwnerResolver returns the owner user id of the resource with the given id.
type OwnerResolver func(ctx context.Context, id string) (string, error)

// RequirePermission admits callers whose role holds perm.
func RequirePermission(p *policy.Policy, perm domain.Permission) echo.MiddlewareFunc {
	return guard("permission", func(c echo.Context, u *domain.User) error {
		if !p.HasPermission(u, perm) {
			return fmt.Errorf("%w: %s", domain.ErrInsufficientPermission, perm)
		}
		return nil
	})
}

// RequireRoleLevel admits callers at or above required, given as a role name
// or a numeric level.
func RequireRoleLevel(p *policy.Policy, required string) echo.MiddlewareFunc {
	return guard("role_level", func(c echo.Context, u *domain.User) error {
		if !p.HasRoleLevel(u, required) {
			return fmt.Errorf("%w: requires %s", domain.ErrInsufficientRoleLevel, required)
		}
		return nil
	})
}

// RequireOwnershipOrPermission admits the owner of the resource named by the
// path parameter param, or any caller holding override. A resolver failure
// other than not found never admits the caller.
func RequireOwnershipOrPermission(p *policy.Policy, param string, resolve OwnerResolver, override domain.Permission) echo.MiddlewareFunc {
	return guard("ownership", func(c echo.Context, u *domain.User) error {
		if p.HasPermission(u, override) {
			return nil
		}

		owner, err := resolve(c.Request().Context(), c.Param(param))
		switch {
		case errors.Is(err, domain.ErrNotFound):
			return err
		case err != nil:
			return fmt.Errorf("%w: %v", domain.ErrOwnershipUnresolved, err)
		case owner == "" || owner != u.ID:
			return domain.ErrNotOwner
		}
		return nil
	})
}

// guard wraps check with the shared identity requirement and denial metrics.
func guard(name string, check func(c echo.Context, u *domain.User) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				metrics.GuardDenialsTotal.WithLabelValues(name, "authentication_required").Inc()
				return domain.ErrAuthenticationRequired
			}
			if err := check(c, u); err != nil {
				metrics.GuardDenialsTotal.WithLabelValues(name, denialReason(err)).Inc()
				return err
			}
			return next(c)
		}
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientPermission):
		return "insufficient_permission"
	case errors.Is(err, domain.ErrInsufficientRoleLevel):
		return "insufficient_role_level"
	case errors.Is(err, domain.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
