package domain

import (
	"strconv"
	"strings"
)

// Role is a named position in the privilege hierarchy.
type Role string

const (
	RolePending  Role = "pending"
	RoleFreeUser Role = "free_user"
	RoleUser     Role = "user"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// LowestLevel is the level assigned to unknown roles.
const LowestLevel = 0

// roleOrder lists every known role from least to most privileged. A role's
// level is its index.
var roleOrder = []Role{
	RolePending,
	RoleFreeUser,
	RoleUser,
	RoleOperator,
	RoleAdmin,
}

var roleLevels = func() map[Role]int {
	levels := make(map[Role]int, len(roleOrder))
	for i, r := range roleOrder {
		levels[r] = i
	}
	return levels
}()

// Roles returns the known roles ordered by ascending level.
func Roles() []Role {
	out := make([]Role, len(roleOrder))
	copy(out, roleOrder)
	return out
}

// RoleHierarchy returns a role -> level table.
func RoleHierarchy() map[Role]int {
	out := make(map[Role]int, len(roleLevels))
	for r, l := range roleLevels {
		out[r] = l
	}
	return out
}

// Valid reports whether r belongs to the known role set.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the integer rank of r. Unknown roles rank lowest.
func (r Role) Level() int {
	if l, ok := roleLevels[r]; ok {
		return l
	}
	return LowestLevel
}

// ParseRole validates s against the known role set.
func ParseRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() {
		return "", NewValidationError("role", "role must be one of: "+joinRoles(roleOrder))
	}
	return r, nil
}

// ParseApprovedRole is ParseRole restricted to roles that can log in.
func ParseApprovedRole(s string) (Role, error) {
	r := Role(strings.TrimSpace(s))
	if !r.Valid() || r == RolePending {
		return "", NewValidationError("role", "role must be one of: "+joinRoles(roleOrder[1:]))
	}
	return r, nil
}

// ResolveLevel accepts either a role name or a raw numeric level. The second
// return value is false when v names no known role and is not a number.
func ResolveLevel(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if l, ok := roleLevels[Role(v)]; ok {
		return l, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func joinRoles(roles []Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
