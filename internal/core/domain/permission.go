package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Permission is a named capability granted to a set of roles.
type Permission string

const (
	PermReadMagazine    Permission = "READ_MAGAZINE"
	PermWriteMagazine   Permission = "WRITE_MAGAZINE"
	PermEditMagazine    Permission = "EDIT_MAGAZINE"
	PermDeleteMagazine  Permission = "DELETE_MAGAZINE"
	PermPublishMagazine Permission = "PUBLISH_MAGAZINE"
	PermFeatureMagazine Permission = "FEATURE_MAGAZINE"

	PermReadCommunity     Permission = "READ_COMMUNITY"
	PermWriteCommunity    Permission = "WRITE_COMMUNITY"
	PermEditCommunity     Permission = "EDIT_COMMUNITY"   // own posts only
	PermDeleteCommunity   Permission = "DELETE_COMMUNITY" // own posts only
	PermModerateCommunity Permission = "MODERATE_COMMUNITY"

	PermManageUsers    Permission = "MANAGE_USERS"
	PermChangeRoles    Permission = "CHANGE_ROLES"
	PermViewAnalytics  Permission = "VIEW_ANALYTICS"
	PermSystemSettings Permission = "SYSTEM_SETTINGS"
)

// Matrix maps each permission to the roles holding it. Values handed out by
// the policy are never mutated in place; Merge returns a new Matrix.
type Matrix map[Permission][]Role

// DefaultMatrix returns the built-in permission matrix.
func DefaultMatrix() Matrix {
	readers := []Role{RoleFreeUser, RoleUser, RoleOperator, RoleAdmin}
	writers := []Role{RoleUser, RoleOperator, RoleAdmin}
	staff := []Role{RoleOperator, RoleAdmin}
	admins := []Role{RoleAdmin}

	return Matrix{
		PermReadMagazine:    readers,
		PermWriteMagazine:   staff,
		PermEditMagazine:    staff,
		PermDeleteMagazine:  admins,
		PermPublishMagazine: staff,
		PermFeatureMagazine: admins,

		PermReadCommunity:     readers,
		PermWriteCommunity:    writers,
		PermEditCommunity:     writers,
		PermDeleteCommunity:   writers,
		PermModerateCommunity: staff,

		PermManageUsers:    admins,
		PermChangeRoles:    admins,
		PermViewAnalytics:  staff,
		PermSystemSettings: admins,
	}.Clone()
}

// Clone deep-copies m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for p, roles := range m {
		out[p] = slices.Clone(roles)
	}
	return out
}

// Allows reports whether r is listed for p. Unknown permissions allow nobody.
func (m Matrix) Allows(p Permission, r Role) bool {
	roles, ok := m[p]
	if !ok {
		return false
	}
	return slices.Contains(roles, r)
}

// Merge returns a copy of m where every permission present in partial has
// its role list replaced. m itself is left untouched.
func (m Matrix) Merge(partial Matrix) Matrix {
	out := m.Clone()
	for p, roles := range partial {
		out[p] = slices.Clone(roles)
	}
	return out
}

// Permissions returns the permission names in m, sorted.
func (m Matrix) Permissions() []Permission {
	out := make([]Permission, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks that every entry names a permission and only known roles.
func (m Matrix) Validate() error {
	verr := &ValidationError{}
	for p, roles := range m {
		if strings.TrimSpace(string(p)) == "" {
			verr.Add("permissions", "permission name must not be empty")
			continue
		}
		for _, r := range roles {
			if !r.Valid() {
				verr.Add(string(p), fmt.Sprintf("unknown role %q", r))
			}
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
