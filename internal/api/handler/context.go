package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/api/middleware"
	"github.com/diggingyuhak/community-api/internal/core/domain"
)

// currentUser returns the identity attached by the Authenticate middleware.
// Routes behind a guard always have one; the check covers miswired routes.
func currentUser(c echo.Context) (*domain.User, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return nil, domain.ErrAuthenticationRequired
	}
	return u, nil
}

// viewerKey identifies the viewer for view de-duplication: the user id when
// authenticated, otherwise the client IP.
func viewerKey(c echo.Context) string {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return c.RealIP()
}

// bind decodes the request into req and validates it. Malformed bodies are
// reported as validation failures.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewValidationError("body", "invalid request payload")
	}
	return c.Validate(req)
}
