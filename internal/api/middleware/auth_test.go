package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// stubAuth resolves "good" to an active user and maps other tokens to fixed
// errors.
type stubAuth struct {
	ports.AuthService
	errs     map[string]error
	lastSeen string
}

func (s *stubAuth) Authenticate(_ context.Context, token string) (*domain.User, error) {
	s.lastSeen = token
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	return &domain.User{ID: "u1", Role: domain.RoleUser, IsActive: true}, nil
}

func newCtx(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthenticate_Success(t *testing.T) {
	stub := &stubAuth{}
	c, rec := newCtx("Bearer good")

	called := false
	h := Authenticate(stub)(func(c echo.Context) error {
		called = true
		require.NotNil(t, CurrentUser(c))
		assert.Equal(t, "u1", CurrentUser(c).ID)
		assert.Equal(t, "u1", UserFromContext(c.Request().Context()).ID)
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, h(c))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "good", stub.lastSeen)
}

func TestAuthenticate_Failures(t *testing.T) {
	storeErr := errors.New("mongo down")
	stub := &stubAuth{errs: map[string]error{
		"expired": domain.ErrTokenExpired,
		"forged":  domain.ErrInvalidSignature,
		"junk":    domain.ErrMalformedToken,
		"gone":    domain.ErrTokenUserNotFound,
		"off":     domain.ErrAccountDeactivated,
		"broken":  storeErr,
	}}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{"no header", "", domain.ErrMissingToken},
		{"basic scheme", "Basic dXNlcjpwdw==", domain.ErrMissingToken},
		{"bearer without token", "Bearer ", domain.ErrMissingToken},
		{"expired", "Bearer expired", domain.ErrTokenExpired},
		{"bad signature", "Bearer forged", domain.ErrInvalidSignature},
		{"malformed", "bearer junk", domain.ErrMalformedToken},
		{"user gone", "Bearer gone", domain.ErrTokenUserNotFound},
		{"deactivated", "Bearer off", domain.ErrAccountDeactivated},
		{"store failure", "Bearer broken", storeErr},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newCtx(tc.header)
			h := Authenticate(stub)(func(echo.Context) error {
				t.Fatal("next must not run")
				return nil
			})
			err := h(c)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Nil(t, CurrentUser(c))
		})
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	stub := &stubAuth{errs: map[string]error{"expired": domain.ErrTokenExpired}}
	mw := OptionalAuthenticate(stub, zerolog.Nop())

	for header, wantUser := range map[string]bool{"": false, "Bearer expired": false, "Bearer good": true} {
		c, _ := newCtx(header)
		var got *domain.User
		require.NoError(t, mw(func(c echo.Context) error {
			got = CurrentUser(c)
			return nil
		})(c))
		assert.Equal(t, wantUser, got != nil, header)
	}
}

func TestBearerToken(t *testing.T) {
	tok, ok := bearerToken("  BEARER abc.def.ghi ")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", tok)

	_, ok = bearerToken("Token abc")
	assert.False(t, ok)
	_, ok = bearerToken("Bearer")
	assert.False(t, ok)
}
