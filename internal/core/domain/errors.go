package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error classes. Every error the core returns wraps exactly one of these, so
// callers can classify with errors.Is and still match the specific kind.
var (
	ErrValidation     = errors.New("validation failed")
	ErrAuthentication = errors.New("authentication failed")
	ErrAuthorization  = errors.New("authorization denied")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// Authentication failures.
var (
	ErrMissingToken       = fmt.Errorf("%w: missing token", ErrAuthentication)
	ErrMalformedToken     = fmt.Errorf("%w: malformed token", ErrAuthentication)
	ErrTokenExpired       = fmt.Errorf("%w: token expired", ErrAuthentication)
	ErrInvalidSignature   = fmt.Errorf("%w: invalid token signature", ErrAuthentication)
	ErrTokenUserNotFound  = fmt.Errorf("%w: user not found", ErrAuthentication)
	ErrAccountDeactivated = fmt.Errorf("%w: account deactivated", ErrAuthentication)
	ErrPendingApproval    = fmt.Errorf("%w: pending approval", ErrAuthentication)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
)

// Authorization failures.
var (
	ErrAuthenticationRequired = fmt.Errorf("%w: authentication required", ErrAuthorization)
	ErrInsufficientPermission = fmt.Errorf("%w: insufficient permission", ErrAuthorization)
	ErrInsufficientRoleLevel  = fmt.Errorf("%w: insufficient role level", ErrAuthorization)
	ErrNotOwner               = fmt.Errorf("%w: not owner", ErrAuthorization)
)

// Lookup and state failures.
var (
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrPostNotFound    = fmt.Errorf("post %w", ErrNotFound)
	ErrArticleNotFound = fmt.Errorf("article %w", ErrNotFound)

	ErrEmailTaken       = fmt.Errorf("%w: email already registered", ErrConflict)
	ErrUsernameTaken    = fmt.Errorf("%w: username already taken", ErrConflict)
	ErrAlreadyProcessed = fmt.Errorf("%w: user already processed", ErrConflict)
	ErrSelfDemotion     = fmt.Errorf("%w: cannot demote own admin account", ErrConflict)
	ErrSelfLockout      = fmt.Errorf("%w: cannot deactivate or delete own account", ErrConflict)
	ErrPostLocked       = fmt.Errorf("%w: post is locked", ErrConflict)
)

// ErrOwnershipUnresolved is returned when the owner of a resource could not be
// determined. It belongs to no client-facing class and surfaces as an
// internal error.
var ErrOwnershipUnresolved = errors.New("resource ownership could not be resolved")

// ValidationError carries field-level messages for user-correctable input.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single field message.
func NewValidationError(field, msg string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, msg)
	return v
}

// Add records msg for field. The first message for a field wins.
func (v *ValidationError) Add(field, msg string) {
	if v.Fields == nil {
		v.Fields = make(map[string]string)
	}
	if _, ok := v.Fields[field]; !ok {
		v.Fields[field] = msg
	}
}

// Empty reports whether no field messages were recorded.
func (v *ValidationError) Empty() bool { return len(v.Fields) == 0 }

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, v.Fields[k])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationError) Unwrap() error { return ErrValidation }
