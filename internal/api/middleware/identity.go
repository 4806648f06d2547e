package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

const userKey = "user"

type userCtxKey struct{}

// SetUser attaches u to the echo context and to the request context so
// code below the transport layer can read it too.
func SetUser(c echo.Context, u *domain.User) {
	c.Set(userKey, u)
	req := c.Request()
	c.SetRequest(req.WithContext(context.WithValue(req.Context(), userCtxKey{}, u)))
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c echo.Context) *domain.User {
	u, _ := c.Get(userKey).(*domain.User)
	return u
}

// UserFromContext returns the user stored by SetUser, or nil.
func UserFromContext(ctx context.Context) *domain.User {
	u, _ := ctx.Value(userCtxKey{}).(*domain.User)
	return u
}
