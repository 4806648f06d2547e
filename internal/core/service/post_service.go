package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/policy"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

const (
	defaultPostPage = 20
	maxPostPage     = 100
	maxTitleLen     = 100
	minContentLen   = 10
)

// PostService implements community posts and replies.
type PostService struct {
	posts  ports.PostRepository
	policy *policy.Policy
	views  ports.ViewRecorder
	logger zerolog.Logger
	now    func() time.Time
}

// NewPostService wires the service. views may be nil to disable view counting.
func NewPostService(posts ports.PostRepository, p *policy.Policy, views ports.ViewRecorder, logger zerolog.Logger) *PostService {
	return &PostService{posts: posts, policy: p, views: views, logger: logger, now: time.Now}
}

func (s *PostService) List(ctx context.Context, filter ports.PostFilter) (*ports.Page[*domain.Post], error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.NewValidationError("type", "unknown post type")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.Limit = pageBounds(filter.Page, filter.Limit, defaultPostPage, maxPostPage)

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return newPage(posts, total, filter.Page, filter.Limit), nil
}

// Get returns an active post with its replies and records a view.
func (s *PostService) Get(ctx context.Context, id, viewerKey string) (*ports.PostThread, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status != domain.PostActive {
		return nil, domain.ErrPostNotFound
	}

	replies, err := s.posts.Replies(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load replies: %w", err)
	}
	if replies == nil {
		replies = []*domain.Post{}
	}

	if ev, ok := viewEvent(domain.ResourcePost, id, viewerKey); ok && s.views != nil {
		s.views.Record(ev)
	}
	return &ports.PostThread{Post: post, Replies: replies}, nil
}

// Create stores a new post, or a reply when in.ParentID is set. Replies to a
// locked post are refused.
func (s *PostService) Create(ctx context.Context, actor *domain.User, in ports.CreatePostInput) (*domain.Post, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	verr := &domain.ValidationError{}
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || runeLen(title) > maxTitleLen {
		verr.Add("title", "title is required and must be at most 100 characters")
	}
	if runeLen(content) < minContentLen {
		verr.Add("content", "content must be at least 10 characters")
	}
	postType := in.Type
	if postType == "" {
		postType = domain.PostDiscussion
	}
	if !postType.Valid() {
		verr.Add("type", "unknown post type")
	}
	tags := cleanTags(in.Tags, verr)
	if !verr.Empty() {
		return nil, verr
	}

	var parent *domain.Post
	if in.ParentID != "" {
		p, err := s.posts.FindByID(ctx, in.ParentID)
		if err != nil {
			return nil, err
		}
		if p.IsLocked {
			return nil, domain.ErrPostLocked
		}
		parent = p
	}

	now := s.now().UTC()
	post := &domain.Post{
		Title:      title,
		Content:    content,
		AuthorID:   actor.ID,
		AuthorName: actor.DisplayName,
		Tags:       tags,
		ImageURLs:  cleanURLs(in.ImageURLs),
		Type:       postType,
		Status:     domain.PostActive,
		ParentID:   in.ParentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	created, err := s.posts.Create(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if parent != nil {
		if err := s.posts.IncrementReplyCount(ctx, parent.ID, 1); err != nil {
			s.logger.Warn().Err(err).Str("post_id", parent.ID).Msg("failed to increment reply count")
		}
	}

	s.logger.Info().Str("post_id", created.ID).Str("user_id", actor.ID).Msg("post created")
	return created, nil
}

// Update applies in to the post. Pin, lock and status need MODERATE_COMMUNITY;
// other fields need ownership or MODERATE_COMMUNITY.
func (s *PostService) Update(ctx context.Context, actor *domain.User, id string, in ports.UpdatePostInput) (*domain.Post, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	moderator := s.policy.HasPermission(actor, domain.PermModerateCommunity)
	if post.AuthorID != actor.ID && !moderator {
		return nil, domain.ErrNotOwner
	}
	if (in.IsPinned != nil || in.IsLocked != nil || in.Status != nil) && !moderator {
		return nil, domain.ErrInsufficientPermission
	}

	verr := &domain.ValidationError{}
	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" || runeLen(v) > maxTitleLen {
			verr.Add("title", "title is required and must be at most 100 characters")
		}
		post.Title = v
	}
	if in.Content != nil {
		v := strings.TrimSpace(*in.Content)
		if runeLen(v) < minContentLen {
			verr.Add("content", "content must be at least 10 characters")
		}
		post.Content = v
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			verr.Add("type", "unknown post type")
		}
		post.Type = *in.Type
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			verr.Add("status", "unknown post status")
		}
		post.Status = *in.Status
	}
	if in.Tags != nil {
		post.Tags = cleanTags(in.Tags, verr)
	}
	if in.ImageURLs != nil {
		post.ImageURLs = cleanURLs(in.ImageURLs)
	}
	if !verr.Empty() {
		return nil, verr
	}
	if in.IsPinned != nil {
		post.IsPinned = *in.IsPinned
	}
	if in.IsLocked != nil {
		post.IsLocked = *in.IsLocked
	}
	post.UpdatedAt = s.now().UTC()

	updated, err := s.posts.Update(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return updated, nil
}

// Delete removes the post. Removing a reply decrements its parent's count.
func (s *PostService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if actor == nil {
		return domain.ErrAuthenticationRequired
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post.AuthorID != actor.ID && !s.policy.HasPermission(actor, domain.PermModerateCommunity) {
		return domain.ErrNotOwner
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if post.IsReply() {
		if err := s.posts.IncrementReplyCount(ctx, post.ParentID, -1); err != nil {
			s.logger.Warn().Err(err).Str("post_id", post.ParentID).Msg("failed to decrement reply count")
		}
	}

	s.logger.Info().Str("post_id", id).Str("user_id", actor.ID).Msg("post deleted")
	return nil
}

func (s *PostService) Owner(ctx context.Context, id string) (string, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return post.AuthorID, nil
}
