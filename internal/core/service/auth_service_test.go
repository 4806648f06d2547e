package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

func newAuthSvc(repo *stubUserRepo) *AuthService {
	return NewAuthService(repo, &stubHasher{}, stubTokens{}, zerolog.Nop())
}

func validRegistration() ports.RegisterInput {
	return ports.RegisterInput{
		Email:       "  Alice@Example.COM ",
		Username:    " alice ",
		DisplayName: "Alice",
		Password:    "pass123",
		Reason:      "studying abroad",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo)

	user, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domain.RolePending, user.Role)
	assert.True(t, user.IsActive)
	assert.Empty(t, user.PasswordHash, "returned record must not carry the hash")

	stored, err := repo.FindByID(context.Background(), user.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "hashed:pass123", stored.PasswordHash)
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo())

	_, err := svc.Register(context.Background(), ports.RegisterInput{Email: "x@y.z"})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "username")
	assert.Contains(t, verr.Fields, "password")
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo())
	_, err := svc.Register(context.Background(), validRegistration())
	require.NoError(t, err)

	in := validRegistration()
	in.Username = "alice2"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.ErrorIs(t, err, domain.ErrConflict)

	in = validRegistration()
	in.Email = "other@example.com"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func seedUser(repo *stubUserRepo, role domain.Role, active bool) *domain.User {
	return repo.put(&domain.User{
		Email:        string(role) + "@example.com",
		Username:     string(role) + "_name",
		DisplayName:  "Seeded " + string(role),
		PasswordHash: "hashed:pw123456",
		Role:         role,
		IsActive:     active,
	})
}

func TestAuthService_Login(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo)
	ctx := context.Background()

	active := seedUser(repo, domain.RoleUser, true)
	pending := seedUser(repo, domain.RolePending, true)
	inactive := seedUser(repo, domain.RoleOperator, false)

	tests := []struct {
		name     string
		login    string
		password string
		wantErr  error
	}{
		{"by email", active.Email, "pw123456", nil},
		{"by username", active.Username, "pw123456", nil},
		{"email case-insensitive", "USER@example.com", "pw123456", nil},
		{"wrong password", active.Email, "nope", domain.ErrInvalidCredentials},
		{"unknown login", "ghost@example.com", "pw123456", domain.ErrInvalidCredentials},
		{"empty password", active.Email, "", domain.ErrInvalidCredentials},
		{"pending", pending.Email, "pw123456", domain.ErrPendingApproval},
		{"deactivated", inactive.Email, "pw123456", domain.ErrAccountDeactivated},
		{"deactivated wrong password", inactive.Email, "nope", domain.ErrInvalidCredentials},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sess, err := svc.Login(ctx, tc.login, tc.password)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, sess)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "tok:"+active.ID, sess.Token)
			assert.Empty(t, sess.User.PasswordHash)
			assert.NotNil(t, sess.User.LastLoginAt)
		})
	}

	stored, _ := repo.FindByID(ctx, active.ID, false)
	assert.NotNil(t, stored.LastLoginAt)
	stored, _ = repo.FindByID(ctx, pending.ID, false)
	assert.Nil(t, stored.LastLoginAt, "failed logins never touch lastLoginAt")
}

func TestAuthService_Login_StoreFailureIsInternal(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection reset")

	_, err := newAuthSvc(repo).Login(context.Background(), "a@b.c", "pw")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrAuthentication))
}

func TestAuthService_Authenticate(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo)
	ctx := context.Background()
	user := seedUser(repo, domain.RoleUser, true)

	got, err := svc.Authenticate(ctx, "tok:"+user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Empty(t, got.PasswordHash)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrMissingToken)

	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrMalformedToken)

	_, err = svc.Authenticate(ctx, "expired")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	_, err = svc.Authenticate(ctx, "tok:missing")
	assert.ErrorIs(t, err, domain.ErrTokenUserNotFound)
}

func TestAuthService_OnlyCredentialChecksReadTheHash(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo)
	ctx := context.Background()
	user := seedUser(repo, domain.RoleUser, true)

	sess, err := svc.Login(ctx, user.Email, "pw123456")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.hashReads)

	for i := 0; i < 3; i++ {
		_, err = svc.Authenticate(ctx, sess.Token)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.hashReads, "token checks load the record without its hash")

	users, _, _ := newUserSvc(repo, nil)
	require.NoError(t, users.ChangePassword(ctx, user, "pw123456", "newpass1"))
	assert.Equal(t, 2, repo.hashReads)
}

func TestAuthService_Authenticate_DeactivatedAfterIssue(t *testing.T) {
	repo := newStubUserRepo()
	svc := newAuthSvc(repo)
	ctx := context.Background()
	user := seedUser(repo, domain.RoleUser, true)

	sess, err := svc.Login(ctx, user.Email, "pw123456")
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, user.ID, false)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrAccountDeactivated)
}

func TestAuthService_Authenticate_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("timeout")

	_, err := newAuthSvc(repo).Authenticate(context.Background(), "tok:u1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrAuthentication))
}

func TestAuthService_Refresh(t *testing.T) {
	svc := newAuthSvc(newStubUserRepo())

	_, err := svc.Refresh(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	sess, err := svc.Refresh(context.Background(), &domain.User{ID: "u9", Role: domain.RoleUser, IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "tok:u9", sess.Token)

	_, err = svc.Refresh(context.Background(), &domain.User{ID: "u9", Role: domain.RoleUser})
	assert.ErrorIs(t, err, domain.ErrAccountDeactivated)
}

func TestAuthService_RefreshAfterDemotionToPending(t *testing.T) {
	repo := newStubUserRepo()
	auth := newAuthSvc(repo)
	users, _, _ := newUserSvc(repo, nil)
	ctx := context.Background()
	admin := seedUser(repo, domain.RoleAdmin, true)
	member := seedUser(repo, domain.RoleUser, true)

	sess, err := auth.Refresh(ctx, member)
	require.NoError(t, err)

	_, err = users.ChangeRole(ctx, admin, member.ID, string(domain.RolePending))
	require.NoError(t, err)

	current, err := auth.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	_, err = auth.Refresh(ctx, current)
	assert.ErrorIs(t, err, domain.ErrPendingApproval)
}
