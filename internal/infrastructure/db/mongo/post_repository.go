package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

const postsCollection = "community_posts"

type PostRepository struct {
	coll *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{coll: db.Collection(postsCollection)}
}

type mongoPost struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	Title      string              `bson:"title"`
	Content    string              `bson:"content"`
	AuthorID   string              `bson:"author_id"`
	AuthorName string              `bson:"author_name"`
	Tags       []string            `bson:"tags"`
	ImageURLs  []string            `bson:"image_urls"`
	Type       string              `bson:"type"`
	Status     string              `bson:"status"`
	IsPinned   bool                `bson:"is_pinned"`
	IsLocked   bool                `bson:"is_locked"`
	ViewCount  int64               `bson:"view_count"`
	LikeCount  int64               `bson:"like_count"`
	ReplyCount int64               `bson:"reply_count"`
	ParentID   *primitive.ObjectID `bson:"parent_post,omitempty"`
	CreatedAt  time.Time           `bson:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at"`
}

func toMongoPost(p *domain.Post) mongoPost {
	doc := mongoPost{
		Title:      p.Title,
		Content:    p.Content,
		AuthorID:   p.AuthorID,
		AuthorName: p.AuthorName,
		Tags:       nonNil(p.Tags),
		ImageURLs:  nonNil(p.ImageURLs),
		Type:       string(p.Type),
		Status:     string(p.Status),
		IsPinned:   p.IsPinned,
		IsLocked:   p.IsLocked,
		ViewCount:  p.ViewCount,
		LikeCount:  p.LikeCount,
		ReplyCount: p.ReplyCount,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if oid, ok := objectID(p.ParentID); ok {
		doc.ParentID = &oid
	}
	return doc
}

func (m *mongoPost) toDomain() *domain.Post {
	p := &domain.Post{
		ID:         m.ID.Hex(),
		Title:      m.Title,
		Content:    m.Content,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Tags:       nonNil(m.Tags),
		ImageURLs:  nonNil(m.ImageURLs),
		Type:       domain.PostType(m.Type),
		Status:     domain.PostStatus(m.Status),
		IsPinned:   m.IsPinned,
		IsLocked:   m.IsLocked,
		ViewCount:  m.ViewCount,
		LikeCount:  m.LikeCount,
		ReplyCount: m.ReplyCount,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
	if m.ParentID != nil {
		p.ParentID = m.ParentID.Hex()
	}
	return p
}

func (r *PostRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "parent_post", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	})
	return err
}

func (r *PostRepository) Create(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoPost(p)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	doc.ID, _ = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *PostRepository) FindByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrPostNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoPost
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("find post: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PostRepository) List(ctx context.Context, f ports.PostFilter) ([]*domain.Post, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"status":      string(domain.PostActive),
		"parent_post": bson.M{"$exists": false},
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	if f.Search != "" {
		filter["$or"] = searchClause(f.Search, "title", "content", "tags")
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	sort := bson.D{{Key: "is_pinned", Value: -1}, {Key: "created_at", Value: -1}}
	posts, err := r.find(ctx, filter, pageOptions(options.Find().SetSort(sort), f.Page, f.Limit))
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *PostRepository) Replies(ctx context.Context, parentID string) ([]*domain.Post, error) {
	oid, ok := objectID(parentID)
	if !ok {
		return []*domain.Post{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{"parent_post": oid, "status": string(domain.PostActive)}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *PostRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.Post, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find posts: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoPost
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	out := make([]*domain.Post, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, nil
}

// Update rewrites the mutable fields. Counters are left to their own
// increment operations so concurrent views and replies are not lost.
func (r *PostRepository) Update(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	oid, ok := objectID(p.ID)
	if !ok {
		return nil, domain.ErrPostNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"title":      p.Title,
		"content":    p.Content,
		"tags":       nonNil(p.Tags),
		"image_urls": nonNil(p.ImageURLs),
		"type":       string(p.Type),
		"status":     string(p.Status),
		"is_pinned":  p.IsPinned,
		"is_locked":  p.IsLocked,
		"updated_at": p.UpdatedAt,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoPost
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrPostNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) IncrementReplyCount(ctx context.Context, id string, delta int) error {
	return r.inc(ctx, id, "reply_count", delta)
}

func (r *PostRepository) IncrementViews(ctx context.Context, id string) error {
	return r.inc(ctx, id, "view_count", 1)
}

func (r *PostRepository) inc(ctx context.Context, id, field string, delta int) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrPostNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("increment %s: %w", field, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPostNotFound
	}
	return nil
}
