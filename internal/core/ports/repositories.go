package ports

import (
	"context"
	"time"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

// UserFilter carries the query parameters for listing users.
type UserFilter struct {
	Role   domain.Role // optional exact match
	Search string      // optional, matched case-insensitively against displayName, username, email
	Page   int         // 1-based
	Limit  int
}

// ProfileUpdate holds the self-service profile fields. Nil means unchanged.
type ProfileUpdate struct {
	DisplayName     *string
	Bio             *string
	ProfileImageURL *string
}

// UserRepository is the Credential Store persistence contract. Records come
// back without their password hash unless a read passes withHash.
// Role, status, profile and password are separate writes so the hash is only
// ever touched by UpdatePassword.
type UserRepository interface {
	// Create inserts u and fills its ID. Duplicate email or username yields
	// domain.ErrEmailTaken or domain.ErrUsernameTaken.
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string, withHash bool) (*domain.User, error)
	// FindByLogin matches login against the normalized email or the username.
	FindByLogin(ctx context.Context, login string, withHash bool) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)

	// UpdateRole sets the role. With onlyIfPending the write is conditional on
	// the stored role still being pending; otherwise domain.ErrAlreadyProcessed.
	UpdateRole(ctx context.Context, id string, role domain.Role, onlyIfPending bool) (*domain.User, error)
	UpdateStatus(ctx context.Context, id string, active bool) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	// Delete removes the user. With onlyIfPending a non-pending record yields
	// domain.ErrAlreadyProcessed.
	Delete(ctx context.Context, id string, onlyIfPending bool) error

	Ping(ctx context.Context) error
}

// PostFilter carries the query parameters for the public post listing.
type PostFilter struct {
	Type   domain.PostType
	Search string
	Page   int
	Limit  int
}

// PostRepository persists community posts and replies.
type PostRepository interface {
	Create(ctx context.Context, p *domain.Post) (*domain.Post, error)
	FindByID(ctx context.Context, id string) (*domain.Post, error)
	// List returns active top-level posts, pinned first then newest.
	List(ctx context.Context, filter PostFilter) ([]*domain.Post, int64, error)
	// Replies returns the active replies of parentID, oldest first.
	Replies(ctx context.Context, parentID string) ([]*domain.Post, error)
	Update(ctx context.Context, p *domain.Post) (*domain.Post, error)
	Delete(ctx context.Context, id string) error
	IncrementReplyCount(ctx context.Context, id string, delta int) error
	IncrementViews(ctx context.Context, id string) error
}

// ArticleFilter carries the query parameters for article listings.
type ArticleFilter struct {
	Category domain.Category
	Status   domain.ArticleStatus // empty means any
	Featured *bool
	Search   string
	Page     int
	Limit    int
}

// ArticleRepository persists magazine articles.
type ArticleRepository interface {
	Create(ctx context.Context, a *domain.Article) (*domain.Article, error)
	FindByID(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error)
	Update(ctx context.Context, a *domain.Article) (*domain.Article, error)
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
}

// PolicyStore persists permission matrix overrides and fans updates out to
// every running instance.
type PolicyStore interface {
	// Load returns the persisted overrides, or nil when none were saved.
	Load(ctx context.Context) (domain.Matrix, error)
	// Save persists m and publishes it to subscribers.
	Save(ctx context.Context, m domain.Matrix) error
	// Subscribe calls apply for each published matrix until ctx is done.
	Subscribe(ctx context.Context, apply func(domain.Matrix)) error
}

// ViewDeduplicator reports whether a view is the first from its viewer in the
// current window.
type ViewDeduplicator interface {
	MarkViewed(ctx context.Context, ev domain.ViewEvent) (bool, error)
}
