package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/api/metrics"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// UserHandler serves account administration and self-service profile routes.
type UserHandler struct {
	users  ports.UserService
	policy *policy.Policy
}

func NewUserHandler(users ports.UserService, p *policy.Policy) *UserHandler {
	return &UserHandler{users: users, policy: p}
}

// List returns accounts, newest first.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        role    query     string  false  "Exact role"
// @Param        search  query     string  false  "Matches display name, username or email"
// @Param        page    query     int     false  "Page number"   default(1)
// @Param        limit   query     int     false  "Page size"     default(50)
// @Success      200     {object}  userListResponse
// @Failure      400     {object}  errorBody
// @Failure      403     {object}  errorBody
// @Router       /api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	filter := ports.UserFilter{
		Search: c.QueryParam("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	if raw := c.QueryParam("role"); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return err
		}
		filter.Role = role
	}

	page, err := h.users.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userListResponse{
		Users:      h.publicAll(page.Items),
		Pagination: paginationOf(page),
	})
}

// Pending returns accounts awaiting approval.
//
// @Summary      Pending users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  pendingResponse
// @Failure      403  {object}  errorBody
// @Router       /api/users/pending [get]
func (h *UserHandler) Pending(c echo.Context) error {
	users, err := h.users.Pending(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pendingResponse{Users: h.publicAll(users), Count: len(users)})
}

// Roles exposes the role hierarchy and the live permission matrix.
//
// @Summary      Role and permission introspection
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  rolesResponse
// @Router       /api/users/roles [get]
func (h *UserHandler) Roles(c echo.Context) error {
	return c.JSON(http.StatusOK, rolesResponse{
		Hierarchy:   h.policy.Roles(),
		Permissions: h.policy.Matrix(),
	})
}

// UpdatePermissions hot-patches the permission matrix.
//
// @Summary      Update permission matrix
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      permissionsRequest  true  "Permission to roles map"
// @Success      200   {object}  permissionsResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Router       /api/users/permissions [put]
func (h *UserHandler) UpdatePermissions(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req permissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	partial := make(domain.Matrix, len(req.Permissions))
	for perm, roles := range req.Permissions {
		rs := make([]domain.Role, 0, len(roles))
		for _, r := range roles {
			rs = append(rs, domain.Role(r))
		}
		partial[domain.Permission(perm)] = rs
	}

	m, err := h.users.UpdatePermissions(c.Request().Context(), actor, partial)
	if err != nil {
		return err
	}
	metrics.PolicyUpdatesTotal.WithLabelValues("api").Inc()
	return c.JSON(http.StatusOK, permissionsResponse{Message: "Permissions updated", Permissions: m})
}

// Approve promotes a pending account.
//
// @Summary      Approve a pending user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string       true   "User ID"
// @Param        body    body      roleRequest  false  "Role to grant, default free_user"
// @Success      200     {object}  userResponse
// @Failure      400     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /api/users/{userId}/approve [put]
func (h *UserHandler) Approve(c echo.Context) error {
	return h.roleChange(c, "User approved", h.users.Approve)
}

// ApproveSimple grants a role without checking that the account is pending.
//
// @Summary      Approve a user (legacy)
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string       true   "User ID"
// @Param        body    body      roleRequest  false  "Role to grant, default free_user"
// @Success      200     {object}  userResponse
// @Failure      400     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Router       /api/users/{userId}/approve-simple [put]
func (h *UserHandler) ApproveSimple(c echo.Context) error {
	return h.roleChange(c, "User approved", h.users.ApproveSimple)
}

// ChangeRole sets a user's role.
//
// @Summary      Change role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string       true  "User ID"
// @Param        body    body      roleRequest  true  "New role"
// @Success      200     {object}  userResponse
// @Failure      400     {object}  errorBody
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /api/users/{userId}/role [put]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	return h.roleChange(c, "Role updated", h.users.ChangeRole)
}

type roleChangeFunc func(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error)

func (h *UserHandler) roleChange(c echo.Context, msg string, fn roleChangeFunc) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req roleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := fn(c.Request().Context(), actor, c.Param("userId"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Message: msg, User: h.policy.Public(user)})
}

// SetStatus activates or deactivates an account.
//
// @Summary      Activate or deactivate
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string         true  "User ID"
// @Param        body    body      statusRequest  true  "Desired state"
// @Success      200     {object}  userResponse
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /api/users/{userId}/status [put]
func (h *UserHandler) SetStatus(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.SetStatus(c.Request().Context(), actor, c.Param("userId"), *req.IsActive)
	if err != nil {
		return err
	}
	msg := "User deactivated"
	if user.IsActive {
		msg = "User activated"
	}
	return c.JSON(http.StatusOK, userResponse{Message: msg, User: h.policy.Public(user)})
}

// Reject removes a pending registration.
//
// @Summary      Reject a pending user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "User ID"
// @Success      200     {object}  messageResponse
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /api/users/{userId}/reject [delete]
func (h *UserHandler) Reject(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.users.Reject(c.Request().Context(), actor, c.Param("userId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Registration rejected"})
}

// Delete removes an account.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        userId  path      string  true  "User ID"
// @Success      200     {object}  messageResponse
// @Failure      404     {object}  errorBody
// @Failure      409     {object}  errorBody
// @Router       /api/users/{userId} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), actor, c.Param("userId")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted"})
}

// UpdateProfile edits the caller's own profile.
//
// @Summary      Update own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      profileRequest  true  "Profile fields"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorBody
// @Router       /api/users/me/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.users.UpdateProfile(c.Request().Context(), actor, ports.ProfileUpdate{
		DisplayName:     req.DisplayName,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{Message: "Profile updated", User: h.policy.Public(user)})
}

// ChangePassword replaces the caller's password after verifying the current one.
//
// @Summary      Change own password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      passwordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorBody
// @Failure      401   {object}  errorBody
// @Router       /api/users/me/password [put]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req passwordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.users.ChangePassword(c.Request().Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password changed"})
}

func (h *UserHandler) publicAll(users []*domain.User) []domain.PublicUser {
	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, h.policy.Public(u))
	}
	return out
}

// queryInt returns the integer query parameter, or 0 when absent or invalid
// so the service applies its default.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}
