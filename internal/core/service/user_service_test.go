package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

func newUserSvc(repo *stubUserRepo, store ports.PolicyStore) (*UserService, *stubHasher, *policy.Policy) {
	h := &stubHasher{}
	p := policy.Default()
	return NewUserService(repo, h, p, store, zerolog.Nop()), h, p
}

func TestUserService_Approve(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	ctx := context.Background()
	admin := seedUser(repo, domain.RoleAdmin, true)
	pending := seedUser(repo, domain.RolePending, true)

	got, err := svc.Approve(ctx, admin, pending.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleFreeUser, got.Role)

	_, err = svc.Approve(ctx, admin, pending.ID, "user")
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	_, err = svc.Approve(ctx, admin, "nobody", "user")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestUserService_Approve_RejectsUnknownOrPendingRole(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	admin := seedUser(repo, domain.RoleAdmin, true)
	pending := seedUser(repo, domain.RolePending, true)

	for _, role := range []string{"superuser", "pending"} {
		_, err := svc.Approve(context.Background(), admin, pending.ID, role)
		assert.ErrorIs(t, err, domain.ErrValidation, role)
	}

	stored, _ := repo.FindByID(context.Background(), pending.ID, false)
	assert.Equal(t, domain.RolePending, stored.Role)
}

func TestUserService_ApproveSimple_SkipsPendingCheck(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	admin := seedUser(repo, domain.RoleAdmin, true)
	user := seedUser(repo, domain.RoleUser, true)

	got, err := svc.ApproveSimple(context.Background(), admin, user.ID, "operator")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, got.Role)
}

func TestUserService_ChangeRole_SelfDemotion(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	ctx := context.Background()
	admin := seedUser(repo, domain.RoleAdmin, true)

	_, err := svc.ChangeRole(ctx, admin, admin.ID, "user")
	assert.ErrorIs(t, err, domain.ErrSelfDemotion)

	stored, _ := repo.FindByID(ctx, admin.ID, false)
	assert.Equal(t, domain.RoleAdmin, stored.Role)

	// re-asserting admin on self is fine
	_, err = svc.ChangeRole(ctx, admin, admin.ID, "admin")
	assert.NoError(t, err)
}

func TestUserService_ChangeRole_Other(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	admin := seedUser(repo, domain.RoleAdmin, true)
	user := seedUser(repo, domain.RoleUser, true)

	got, err := svc.ChangeRole(context.Background(), admin, user.ID, "operator")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOperator, got.Role)

	_, err = svc.ChangeRole(context.Background(), admin, user.ID, "wizard")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_SetStatus(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	ctx := context.Background()
	admin := seedUser(repo, domain.RoleAdmin, true)
	user := seedUser(repo, domain.RoleUser, true)

	_, err := svc.SetStatus(ctx, admin, admin.ID, false)
	assert.ErrorIs(t, err, domain.ErrSelfLockout)

	got, err := svc.SetStatus(ctx, admin, user.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestUserService_RejectAndDelete(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	ctx := context.Background()
	admin := seedUser(repo, domain.RoleAdmin, true)
	pending := seedUser(repo, domain.RolePending, true)
	user := seedUser(repo, domain.RoleUser, true)

	assert.ErrorIs(t, svc.Reject(ctx, admin, user.ID), domain.ErrAlreadyProcessed)
	require.NoError(t, svc.Reject(ctx, admin, pending.ID))
	_, err := repo.FindByID(ctx, pending.ID, false)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, admin, admin.ID), domain.ErrSelfLockout)
	require.NoError(t, svc.Delete(ctx, admin, user.ID))
}

func TestUserService_List(t *testing.T) {
	repo := newStubUserRepo()
	svc, _, _ := newUserSvc(repo, nil)
	seedUser(repo, domain.RoleAdmin, true)
	seedUser(repo, domain.RolePending, true)

	page, err := svc.List(context.Background(), ports.UserFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxUserPage, page.Limit)
	assert.Equal(t, 1, page.Page)
	assert.EqualValues(t, 2, page.Total)
	for _, u := range page.Items {
		assert.Empty(t, u.PasswordHash)
	}

	pending, err := svc.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.RolePending, pending[0].Role)

	_, err = svc.List(context.Background(), ports.UserFilter{Role: "root"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := newStubUserRepo()
	svc, hasher, _ := newUserSvc(repo, nil)
	user := seedUser(repo, domain.RoleUser, true)

	name := "  New Name "
	bio := "hello"
	got, err := svc.UpdateProfile(context.Background(), user, ports.ProfileUpdate{DisplayName: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.DisplayName)
	assert.Equal(t, "hello", got.Bio)
	assert.Zero(t, hasher.hashCalls, "profile updates never re-hash")

	stored, _ := repo.FindByID(context.Background(), user.ID, true)
	assert.Equal(t, "hashed:pw123456", stored.PasswordHash)

	short := "x"
	_, err = svc.UpdateProfile(context.Background(), user, ports.ProfileUpdate{DisplayName: &short})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUserService_ChangePassword(t *testing.T) {
	repo := newStubUserRepo()
	svc, hasher, _ := newUserSvc(repo, nil)
	ctx := context.Background()
	user := seedUser(repo, domain.RoleUser, true)

	assert.ErrorIs(t, svc.ChangePassword(ctx, user, "wrong", "newpass1"), domain.ErrInvalidCredentials)
	assert.ErrorIs(t, svc.ChangePassword(ctx, user, "pw123456", "123"), domain.ErrValidation)
	assert.Zero(t, hasher.hashCalls)

	require.NoError(t, svc.ChangePassword(ctx, user, "pw123456", "newpass1"))
	stored, _ := repo.FindByID(ctx, user.ID, true)
	assert.Equal(t, "hashed:newpass1", stored.PasswordHash)
}

func TestUserService_UpdatePermissions(t *testing.T) {
	repo := newStubUserRepo()
	store := &stubPolicyStore{}
	svc, _, p := newUserSvc(repo, store)
	admin := seedUser(repo, domain.RoleAdmin, true)
	user := seedUser(repo, domain.RoleUser, true)

	require.True(t, p.HasPermission(user, domain.PermWriteCommunity))

	snap, err := svc.UpdatePermissions(context.Background(), admin, domain.Matrix{
		domain.PermWriteCommunity: {domain.RoleOperator, domain.RoleAdmin},
	})
	require.NoError(t, err)

	assert.False(t, p.HasPermission(user, domain.PermWriteCommunity))
	require.Len(t, store.saved, 1)
	assert.Equal(t, snap, store.saved[0])
	assert.Contains(t, store.saved[0], domain.PermManageUsers, "the full snapshot is persisted")
}

// gatedStore holds the first Save until release is closed.
type gatedStore struct {
	stubPolicyStore
	mu        sync.Mutex
	calls     int
	published []domain.Matrix
	entered   chan struct{}
	release   chan struct{}
}

func (s *gatedStore) Save(_ context.Context, m domain.Matrix) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		close(s.entered)
		<-s.release
	}

	s.mu.Lock()
	s.published = append(s.published, m)
	s.mu.Unlock()
	return nil
}

func TestUserService_UpdatePermissions_PublishesInApplyOrder(t *testing.T) {
	repo := newStubUserRepo()
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	svc, _, p := newUserSvc(repo, store)
	admin := seedUser(repo, domain.RoleAdmin, true)
	user := seedUser(repo, domain.RoleUser, true)
	operator := seedUser(repo, domain.RoleOperator, true)
	ctx := context.Background()

	firstDone := make(chan error, 1)
	go func() {
		_, err := svc.UpdatePermissions(ctx, admin, domain.Matrix{domain.PermViewAnalytics: {domain.RoleAdmin}})
		firstDone <- err
	}()
	<-store.entered

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.UpdatePermissions(ctx, admin, domain.Matrix{domain.PermWriteCommunity: {domain.RoleAdmin}})
		secondDone <- err
	}()

	select {
	case <-secondDone:
		t.Fatal("second update committed while the first save was still in flight")
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)
	require.NoError(t, <-firstDone)
	require.NoError(t, <-secondDone)

	require.Len(t, store.published, 2)
	last := store.published[1]
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, last[domain.PermWriteCommunity])
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, last[domain.PermViewAnalytics])

	// Every instance applies the broadcasts in publish order.
	replica := policy.Default()
	for _, m := range store.published {
		require.NoError(t, replica.Replace(m))
		require.NoError(t, p.Replace(m))
	}
	for _, pol := range []*policy.Policy{replica, p} {
		assert.False(t, pol.HasPermission(user, domain.PermWriteCommunity))
		assert.False(t, pol.HasPermission(operator, domain.PermViewAnalytics))
	}
}

func TestUserService_UpdatePermissions_Invalid(t *testing.T) {
	repo := newStubUserRepo()
	store := &stubPolicyStore{}
	svc, _, _ := newUserSvc(repo, store)

	_, err := svc.UpdatePermissions(context.Background(), nil, domain.Matrix{domain.PermManageUsers: {"root"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, store.saved)
}

func TestUserService_UpdatePermissions_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	store := &stubPolicyStore{saveErr: errors.New("redis down")}
	svc, _, p := newUserSvc(repo, store)

	_, err := svc.UpdatePermissions(context.Background(), nil, domain.Matrix{domain.PermViewAnalytics: {domain.RoleAdmin}})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
	assert.False(t, p.HasPermission(&domain.User{Role: domain.RoleOperator}, domain.PermViewAnalytics), "local change stays applied")
}
