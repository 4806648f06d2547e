package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/api/metrics"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// Authenticate resolves the bearer token into a live user and attaches it to
// the request. Every failure stops the chain.
func Authenticate(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, _ := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))

			user, err := auth.Authenticate(c.Request().Context(), token)
			metrics.AuthDecisionsTotal.WithLabelValues(authResult(err)).Inc()
			if err != nil {
				return err
			}

			SetUser(c, user)
			return next(c)
		}
	}
}

// OptionalAuthenticate attaches a user when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuthenticate(auth ports.AuthService, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return next(c)
			}

			user, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				log.Debug().Err(err).Msg("ignoring unusable token on public route")
				return next(c)
			}
			SetUser(c, user)
			return next(c)
		}
	}
}

// bearerToken extracts the token from "Bearer <token>". Any other scheme is
// treated as no token at all.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func authResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrTokenUserNotFound):
		return "user_not_found"
	case errors.Is(err, domain.ErrAccountDeactivated):
		return "deactivated"
	default:
		return "error"
	}
}
