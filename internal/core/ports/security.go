package ports

import (
	"context"
	"time"
)

// PasswordHasher is the one-way hashing contract of the Credential Store.
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	// Verify returns false on mismatch. An error means the hash itself could
	// not be evaluated.
	Verify(ctx context.Context, hash, plain string) (bool, error)
}

// TokenManager issues and verifies signed bearer tokens binding a user id.
type TokenManager interface {
	Issue(userID string) (token string, expiresAt time.Time, err error)
	Verify(token string) (userID string, err error)
}
