package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Detail  string            `json:"detail,omitempty"`
}

type errorKind struct {
	err    error
	status int
	kind   string
	msg    string
}

// knownErrors is matched in order; the first errors.Is hit wins.
var knownErrors = []errorKind{
	{domain.ErrMissingToken, http.StatusUnauthorized, "missing_token", "Access token is required"},
	{domain.ErrMalformedToken, http.StatusUnauthorized, "invalid_token", "Access token is malformed"},
	{domain.ErrTokenExpired, http.StatusUnauthorized, "token_expired", "Access token has expired"},
	{domain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature", "Access token signature is invalid"},
	{domain.ErrTokenUserNotFound, http.StatusUnauthorized, "user_not_found", "User for this token no longer exists"},
	{domain.ErrAccountDeactivated, http.StatusUnauthorized, "account_deactivated", "Account has been deactivated"},
	{domain.ErrPendingApproval, http.StatusUnauthorized, "pending_approval", "Account is waiting for administrator approval"},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password"},

	{domain.ErrAuthenticationRequired, http.StatusForbidden, "authentication_required", "Authentication is required"},
	{domain.ErrInsufficientPermission, http.StatusForbidden, "insufficient_permission", "You do not have permission to perform this action"},
	{domain.ErrInsufficientRoleLevel, http.StatusForbidden, "insufficient_role_level", "Your role does not allow this action"},
	{domain.ErrNotOwner, http.StatusForbidden, "not_owner", "You can only modify your own content"},

	{domain.ErrEmailTaken, http.StatusConflict, "duplicate_identity", "Email is already registered"},
	{domain.ErrUsernameTaken, http.StatusConflict, "duplicate_identity", "Username is already taken"},
	{domain.ErrAlreadyProcessed, http.StatusConflict, "already_processed", "User has already been processed"},
	{domain.ErrSelfDemotion, http.StatusConflict, "self_demotion", "You cannot remove your own admin role"},
	{domain.ErrSelfLockout, http.StatusConflict, "self_lockout", "You cannot deactivate or delete your own account"},
	{domain.ErrPostLocked, http.StatusConflict, "post_locked", "Post is locked"},

	{domain.ErrUserNotFound, http.StatusNotFound, "not_found", "User not found"},
	{domain.ErrPostNotFound, http.StatusNotFound, "not_found", "Post not found"},
	{domain.ErrArticleNotFound, http.StatusNotFound, "not_found", "Article not found"},

	// class fallbacks
	{domain.ErrAuthentication, http.StatusUnauthorized, "authentication_failed", "Authentication failed"},
	{domain.ErrAuthorization, http.StatusForbidden, "forbidden", "Access denied"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", "Resource not found"},
	{domain.ErrConflict, http.StatusConflict, "conflict", "Request conflicts with current state"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps every error
// to exactly one class. Internal errors are logged and only carry detail
// outside production.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c, production)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context, production bool) (int, errorResponse) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorResponse{
			Error:   "validation_error",
			Message: "Request validation failed",
			Fields:  verr.Fields,
		}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{
			Error:   httpKind(he.Code),
			Message: fmt.Sprintf("%v", he.Message),
		}
	}

	for _, k := range knownErrors {
		if errors.Is(err, k.err) {
			return k.status, errorResponse{Error: k.kind, Message: k.msg}
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("unhandled error")

	resp := errorResponse{Error: "internal_error", Message: "Internal server error"}
	if errors.Is(err, domain.ErrOwnershipUnresolved) {
		resp = errorResponse{Error: "ownership_unresolved", Message: "Could not verify resource ownership"}
	}
	if !production {
		resp.Detail = err.Error()
	}
	return http.StatusInternalServerError, resp
}

func httpKind(code int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
}
