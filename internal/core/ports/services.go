package ports

import (
	"context"
	"time"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Email       string
	Username    string
	DisplayName string
	Password    string
	Bio         string
	Reason      string
}

// Session is the result of a successful login or refresh.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService covers registration, login and bearer token resolution.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, login, password string) (*Session, error)
	Refresh(ctx context.Context, user *domain.User) (*Session, error)
	// Authenticate resolves a raw bearer token into a live, active user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

// UserService covers administrative and self-service account operations. The
// actor is the authenticated caller.
type UserService interface {
	List(ctx context.Context, filter UserFilter) (*Page[*domain.User], error)
	Pending(ctx context.Context) ([]*domain.User, error)
	Approve(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error)
	ApproveSimple(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error)
	ChangeRole(ctx context.Context, actor *domain.User, id, role string) (*domain.User, error)
	SetStatus(ctx context.Context, actor *domain.User, id string, active bool) (*domain.User, error)
	Reject(ctx context.Context, actor *domain.User, id string) error
	Delete(ctx context.Context, actor *domain.User, id string) error
	UpdateProfile(ctx context.Context, actor *domain.User, p ProfileUpdate) (*domain.User, error)
	ChangePassword(ctx context.Context, actor *domain.User, current, next string) error
	UpdatePermissions(ctx context.Context, actor *domain.User, partial domain.Matrix) (domain.Matrix, error)
}

// CreatePostInput is the payload for a new post or reply.
type CreatePostInput struct {
	Title     string
	Content   string
	Tags      []string
	ImageURLs []string
	Type      domain.PostType
	ParentID  string
}

// UpdatePostInput holds post changes. Nil means unchanged. Pin, lock and
// status are moderator-only.
type UpdatePostInput struct {
	Title     *string
	Content   *string
	Tags      []string
	ImageURLs []string
	Type      *domain.PostType
	Status    *domain.PostStatus
	IsPinned  *bool
	IsLocked  *bool
}

// PostThread is a post with its active replies.
type PostThread struct {
	Post    *domain.Post
	Replies []*domain.Post
}

// PostService covers community posts.
type PostService interface {
	List(ctx context.Context, filter PostFilter) (*Page[*domain.Post], error)
	Get(ctx context.Context, id, viewerKey string) (*PostThread, error)
	Create(ctx context.Context, actor *domain.User, in CreatePostInput) (*domain.Post, error)
	Update(ctx context.Context, actor *domain.User, id string, in UpdatePostInput) (*domain.Post, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
	// Owner returns the author id of the post, for ownership guards.
	Owner(ctx context.Context, id string) (string, error)
}

// ArticleInput carries article fields. On update nil means unchanged.
type ArticleInput struct {
	Title            *string
	Content          *string
	Excerpt          *string
	Tags             []string
	FeaturedImageURL *string
	ImageURLs        []string
	Category         *domain.Category
	Status           *domain.ArticleStatus
	IsFeatured       *bool
}

// ArticleService covers magazine articles.
type ArticleService interface {
	List(ctx context.Context, filter ArticleFilter) (*Page[*domain.Article], error)
	// Get returns a published article, or any article when viewer is its author
	// or holds EDIT_MAGAZINE. viewer may be nil.
	Get(ctx context.Context, viewer *domain.User, id, viewerKey string) (*domain.Article, error)
	Create(ctx context.Context, actor *domain.User, in ArticleInput) (*domain.Article, error)
	Update(ctx context.Context, actor *domain.User, id string, in ArticleInput) (*domain.Article, error)
	Delete(ctx context.Context, actor *domain.User, id string) error
	Owner(ctx context.Context, id string) (string, error)
}

// ViewService applies a single view event.
type ViewService interface {
	Process(ctx context.Context, ev domain.ViewEvent) error
}

// ViewRecorder accepts view events without blocking the caller.
type ViewRecorder interface {
	Record(ev domain.ViewEvent) bool
}
