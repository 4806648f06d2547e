// Package policy owns the live authorization policy: the static role
// hierarchy and the hot-patchable permission matrix.
//
// Reads are lock-free against an immutable matrix snapshot; updates build a
// new matrix and swap it in with a single atomic store, serialized by mu.
package policy

import (
	"sync"
	"sync/atomic"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

// Policy answers permission and role-level questions for users.
type Policy struct {
	mu     sync.Mutex
	matrix atomic.Pointer[domain.Matrix]
}

// New returns a Policy seeded with the default matrix merged with overrides.
// Overrides are validated; an invalid override set is returned as an error.
func New(overrides domain.Matrix) (*Policy, error) {
	base := domain.DefaultMatrix()
	if len(overrides) > 0 {
		if err := overrides.Validate(); err != nil {
			return nil, err
		}
		base = base.Merge(overrides)
	}
	p := &Policy{}
	p.matrix.Store(&base)
	return p, nil
}

// Default returns a Policy using the built-in matrix.
func Default() *Policy {
	p, _ := New(nil)
	return p
}

func (p *Policy) current() domain.Matrix {
	return *p.matrix.Load()
}

// HasPermission reports whether u's role holds perm. Unknown permissions and
// nil users are denied.
func (p *Policy) HasPermission(u *domain.User, perm domain.Permission) bool {
	if u == nil {
		return false
	}
	return p.current().Allows(perm, u.Role)
}

// HasLevel reports whether u's role level is at least level.
func (p *Policy) HasLevel(u *domain.User, level int) bool {
	if u == nil {
		return false
	}
	return u.Role.Level() >= level
}

// HasRoleLevel accepts a role name or a numeric level as the requirement.
// A requirement that is neither is never satisfied.
func (p *Policy) HasRoleLevel(u *domain.User, required string) bool {
	level, ok := domain.ResolveLevel(required)
	if !ok {
		return false
	}
	return p.HasLevel(u, level)
}

// HasAnyRole is the role-list check used by older routes.
func (p *Policy) HasAnyRole(u *domain.User, roles ...domain.Role) bool {
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

// Matrix returns a copy of the live matrix.
func (p *Policy) Matrix() domain.Matrix {
	return p.current().Clone()
}

// Roles returns the role hierarchy.
func (p *Policy) Roles() map[domain.Role]int {
	return domain.RoleHierarchy()
}

// UpdatePermissionMatrix merges partial into the live matrix and returns the
// resulting snapshot. Nothing is applied when partial is invalid.
func (p *Policy) UpdatePermissionMatrix(partial domain.Matrix) (domain.Matrix, error) {
	return p.UpdatePermissionMatrixFunc(partial, nil)
}

// UpdatePermissionMatrixFunc is UpdatePermissionMatrix with a commit hook.
// commit receives the new snapshot and runs under the writer lock, so
// snapshots reach commit in the same order they were applied. A commit error
// is returned but the local change stays applied.
func (p *Policy) UpdatePermissionMatrixFunc(partial domain.Matrix, commit func(domain.Matrix) error) (domain.Matrix, error) {
	if len(partial) == 0 {
		return nil, domain.NewValidationError("permissions", "at least one permission entry is required")
	}
	if err := partial.Validate(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	next := p.current().Merge(partial)
	p.matrix.Store(&next)
	if commit != nil {
		if err := commit(next.Clone()); err != nil {
			return nil, err
		}
	}
	return next.Clone(), nil
}

// Replace swaps in m wholesale. Used to apply snapshots published by other
// instances.
func (p *Policy) Replace(m domain.Matrix) error {
	if err := m.Validate(); err != nil {
		return err
	}
	next := m.Clone()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.matrix.Store(&next)
	return nil
}

// Public returns the client-facing identity for u computed from the live
// matrix.
func (p *Policy) Public(u *domain.User) domain.PublicUser {
	return u.Public(p.current())
}
