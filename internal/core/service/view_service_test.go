package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diggingyuhak/community-api/internal/core/domain"
)

func TestViewService_DedupPerViewer(t *testing.T) {
	posts := newStubPostRepo()
	articles := newStubArticleRepo()
	svc := NewViewService(&stubDedup{}, posts, articles, zerolog.Nop())
	ctx := context.Background()

	ev := domain.ViewEvent{Kind: domain.ResourcePost, ResourceID: "p1", ViewerKey: "alice"}
	require.NoError(t, svc.Process(ctx, ev))
	require.NoError(t, svc.Process(ctx, ev))
	assert.Equal(t, 1, posts.views["p1"])

	ev.ViewerKey = "bob"
	require.NoError(t, svc.Process(ctx, ev))
	assert.Equal(t, 2, posts.views["p1"])

	require.NoError(t, svc.Process(ctx, domain.ViewEvent{Kind: domain.ResourceArticle, ResourceID: "a1", ViewerKey: "bob"}))
	assert.Equal(t, 1, articles.views["a1"])
}

func TestViewService_DedupFailureCountsAnyway(t *testing.T) {
	posts := newStubPostRepo()
	svc := NewViewService(&stubDedup{err: errors.New("redis down")}, posts, newStubArticleRepo(), zerolog.Nop())

	require.NoError(t, svc.Process(context.Background(), domain.ViewEvent{Kind: domain.ResourcePost, ResourceID: "p1", ViewerKey: "a"}))
	assert.Equal(t, 1, posts.views["p1"])
}

func TestViewService_UnknownKind(t *testing.T) {
	svc := NewViewService(&stubDedup{}, newStubPostRepo(), newStubArticleRepo(), zerolog.Nop())
	assert.Error(t, svc.Process(context.Background(), domain.ViewEvent{Kind: "video", ResourceID: "v1", ViewerKey: "a"}))
}
