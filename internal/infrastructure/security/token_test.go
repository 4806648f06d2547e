package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", "community-api", time.Hour)

	token, exp, err := m.Issue("64b000000000000000000001")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	sub, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", sub)
}

func TestTokenManager_ClaimsShape(t *testing.T) {
	m := NewTokenManager("secret", "community-api", 0)

	token, exp, err := m.Issue("u1")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "community-api", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
	assert.Equal(t, 7*24*time.Hour, claims.ExpiresAt.Sub(claims.IssuedAt.Time))
}

func TestTokenManager_UniqueIDs(t *testing.T) {
	m := NewTokenManager("secret", "", time.Hour)
	a, _, _ := m.Issue("u1")
	b, _, _ := m.Issue("u1")
	assert.NotEqual(t, a, b)
}

func TestTokenManager_Expired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewTokenManager("secret", "", time.Hour)
	m.now = fixedClock(issued)

	token, _, err := m.Issue("u1")
	require.NoError(t, err)

	m.now = fixedClock(issued.Add(2 * time.Hour))
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
	assert.ErrorIs(t, err, domain.ErrAuthentication)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret", "", time.Hour).Issue("u1")
	require.NoError(t, err)

	_, err = NewTokenManager("other", "", time.Hour).Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTokenManager_UnexpectedAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTokenManager_Malformed(t *testing.T) {
	m := NewTokenManager("secret", "community-api", time.Hour)

	cases := map[string]string{
		"garbage":     "not-a-token",
		"empty":       "",
		"two-segment": "abc.def",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(raw)
			assert.ErrorIs(t, err, domain.ErrMalformedToken)
		})
	}
}

func TestTokenManager_MissingSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "", time.Hour).Verify(signed)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}

func TestTokenManager_WrongIssuer(t *testing.T) {
	token, _, err := NewTokenManager("secret", "someone-else", time.Hour).Issue("u1")
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "community-api", time.Hour).Verify(token)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}
