package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// ViewService counts a view at most once per viewer per dedup window.
type ViewService struct {
	dedup    ports.ViewDeduplicator
	posts    ports.PostRepository
	articles ports.ArticleRepository
	logger   zerolog.Logger
}

func NewViewService(dedup ports.ViewDeduplicator, posts ports.PostRepository, articles ports.ArticleRepository, logger zerolog.Logger) *ViewService {
	return &ViewService{dedup: dedup, posts: posts, articles: articles, logger: logger}
}

func (s *ViewService) Process(ctx context.Context, ev domain.ViewEvent) error {
	first, err := s.dedup.MarkViewed(ctx, ev)
	if err != nil {
		s.logger.Warn().Err(err).Str("resource_id", ev.ResourceID).Msg("view dedup failed, counting anyway")
	} else if !first {
		return nil
	}

	switch ev.Kind {
	case domain.ResourcePost:
		err = s.posts.IncrementViews(ctx, ev.ResourceID)
	case domain.ResourceArticle:
		err = s.articles.IncrementViews(ctx, ev.ResourceID)
	default:
		return fmt.Errorf("process view: unknown resource kind %q", ev.Kind)
	}
	if err != nil {
		return fmt.Errorf("process view: %w", err)
	}
	return nil
}
