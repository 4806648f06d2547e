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
	defaultArticlePage = 20
	maxArticlePage     = 100
	maxExcerptLen      = 200
)

// ArticleService implements magazine articles and their editorial workflow.
type ArticleService struct {
	articles ports.ArticleRepository
	policy   *policy.Policy
	views    ports.ViewRecorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewArticleService(articles ports.ArticleRepository, p *policy.Policy, views ports.ViewRecorder, logger zerolog.Logger) *ArticleService {
	return &ArticleService{articles: articles, policy: p, views: views, logger: logger, now: time.Now}
}

// List returns published articles only.
func (s *ArticleService) List(ctx context.Context, filter ports.ArticleFilter) (*ports.Page[*domain.Article], error) {
	if filter.Category != "" && !filter.Category.Valid() {
		return nil, domain.NewValidationError("category", "unknown category")
	}
	filter.Status = domain.ArticlePublished
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page, filter.Limit = pageBounds(filter.Page, filter.Limit, defaultArticlePage, maxArticlePage)

	articles, total, err := s.articles.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return newPage(articles, total, filter.Page, filter.Limit), nil
}

// Get hides unpublished articles from everyone except their author and
// EDIT_MAGAZINE holders. Only published reads count as views.
func (s *ArticleService) Get(ctx context.Context, viewer *domain.User, id, viewerKey string) (*domain.Article, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if article.Status != domain.ArticlePublished {
		if viewer == nil || (viewer.ID != article.AuthorID && !s.policy.HasPermission(viewer, domain.PermEditMagazine)) {
			return nil, domain.ErrArticleNotFound
		}
		return article, nil
	}

	if ev, ok := viewEvent(domain.ResourceArticle, id, viewerKey); ok && s.views != nil {
		s.views.Record(ev)
	}
	return article, nil
}

// Create stores a draft. IsFeatured is kept only for FEATURE_MAGAZINE holders.
func (s *ArticleService) Create(ctx context.Context, actor *domain.User, in ports.ArticleInput) (*domain.Article, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	article := &domain.Article{
		AuthorID:   actor.ID,
		AuthorName: actor.DisplayName,
		Category:   domain.CategoryGeneral,
		Status:     domain.ArticleDraft,
	}
	if in.Title == nil {
		in.Title = new(string)
	}
	if in.Content == nil {
		in.Content = new(string)
	}
	in.Status = nil
	if err := s.apply(actor, article, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	created, err := s.articles.Create(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.logger.Info().Str("article_id", created.ID).Str("user_id", actor.ID).Msg("article created")
	return created, nil
}

// Update applies in. Requesting published without PUBLISH_MAGAZINE files the
// article as submitted instead.
func (s *ArticleService) Update(ctx context.Context, actor *domain.User, id string, in ports.ArticleInput) (*domain.Article, error) {
	if actor == nil {
		return nil, domain.ErrAuthenticationRequired
	}

	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.AuthorID != actor.ID && !s.policy.HasPermission(actor, domain.PermEditMagazine) {
		return nil, domain.ErrNotOwner
	}

	if err := s.apply(actor, article, in); err != nil {
		return nil, err
	}
	article.UpdatedAt = s.now().UTC()

	updated, err := s.articles.Update(ctx, article)
	if err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	return updated, nil
}

func (s *ArticleService) apply(actor *domain.User, a *domain.Article, in ports.ArticleInput) error {
	verr := &domain.ValidationError{}
	if in.Title != nil {
		v := strings.TrimSpace(*in.Title)
		if v == "" || runeLen(v) > maxTitleLen {
			verr.Add("title", "title is required and must be at most 100 characters")
		}
		a.Title = v
	}
	if in.Content != nil {
		v := strings.TrimSpace(*in.Content)
		if v == "" {
			verr.Add("content", "content is required")
		}
		a.Content = v
	}
	if in.Excerpt != nil {
		v := strings.TrimSpace(*in.Excerpt)
		if runeLen(v) > maxExcerptLen {
			verr.Add("excerpt", "excerpt must be at most 200 characters")
		}
		a.Excerpt = v
	}
	if in.Category != nil {
		if !in.Category.Valid() {
			verr.Add("category", "unknown category")
		}
		a.Category = *in.Category
	}
	if in.Status != nil && !in.Status.Valid() {
		verr.Add("status", "unknown article status")
	}
	if in.Tags != nil {
		a.Tags = cleanTags(in.Tags, verr)
	}
	if in.ImageURLs != nil {
		a.ImageURLs = cleanURLs(in.ImageURLs)
	}
	if in.FeaturedImageURL != nil {
		a.FeaturedImageURL = strings.TrimSpace(*in.FeaturedImageURL)
	}
	if !verr.Empty() {
		return verr
	}

	if in.IsFeatured != nil && s.policy.HasPermission(actor, domain.PermFeatureMagazine) {
		a.IsFeatured = *in.IsFeatured
	}

	if in.Status != nil {
		status := *in.Status
		if status == domain.ArticlePublished && !s.policy.HasPermission(actor, domain.PermPublishMagazine) {
			status = domain.ArticleSubmitted
		}
		a.Status = status
	}
	if a.Status == domain.ArticlePublished && a.PublishedAt == nil {
		now := s.now().UTC()
		a.PublishedAt = &now
	}
	return nil
}

func (s *ArticleService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if actor == nil {
		return domain.ErrAuthenticationRequired
	}

	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if article.AuthorID != actor.ID && !s.policy.HasPermission(actor, domain.PermDeleteMagazine) {
		return domain.ErrNotOwner
	}

	if err := s.articles.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	s.logger.Info().Str("article_id", id).Str("user_id", actor.ID).Msg("article deleted")
	return nil
}

func (s *ArticleService) Owner(ctx context.Context, id string) (string, error) {
	article, err := s.articles.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	return article.AuthorID, nil
}
