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

const articlesCollection = "magazine_articles"

type ArticleRepository struct {
	coll *mongo.Collection
}

func NewArticleRepository(db *mongo.Database) *ArticleRepository {
	return &ArticleRepository{coll: db.Collection(articlesCollection)}
}

type mongoArticle struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Title            string             `bson:"title"`
	Content          string             `bson:"content"`
	Excerpt          string             `bson:"excerpt,omitempty"`
	AuthorID         string             `bson:"author_id"`
	AuthorName       string             `bson:"author_name"`
	Tags             []string           `bson:"tags"`
	FeaturedImageURL string             `bson:"featured_image_url,omitempty"`
	ImageURLs        []string           `bson:"image_urls"`
	Category         string             `bson:"category"`
	Status           string             `bson:"status"`
	IsFeatured       bool               `bson:"is_featured"`
	ViewCount        int64              `bson:"view_count"`
	LikeCount        int64              `bson:"like_count"`
	PublishedAt      *time.Time         `bson:"published_at,omitempty"`
	CreatedAt        time.Time          `bson:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at"`
}

func toMongoArticle(a *domain.Article) mongoArticle {
	return mongoArticle{
		Title:            a.Title,
		Content:          a.Content,
		Excerpt:          a.Excerpt,
		AuthorID:         a.AuthorID,
		AuthorName:       a.AuthorName,
		Tags:             nonNil(a.Tags),
		FeaturedImageURL: a.FeaturedImageURL,
		ImageURLs:        nonNil(a.ImageURLs),
		Category:         string(a.Category),
		Status:           string(a.Status),
		IsFeatured:       a.IsFeatured,
		ViewCount:        a.ViewCount,
		LikeCount:        a.LikeCount,
		PublishedAt:      a.PublishedAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (m *mongoArticle) toDomain() *domain.Article {
	return &domain.Article{
		ID:               m.ID.Hex(),
		Title:            m.Title,
		Content:          m.Content,
		Excerpt:          m.Excerpt,
		AuthorID:         m.AuthorID,
		AuthorName:       m.AuthorName,
		Tags:             nonNil(m.Tags),
		FeaturedImageURL: m.FeaturedImageURL,
		ImageURLs:        nonNil(m.ImageURLs),
		Category:         domain.Category(m.Category),
		Status:           domain.ArticleStatus(m.Status),
		IsFeatured:       m.IsFeatured,
		ViewCount:        m.ViewCount,
		LikeCount:        m.LikeCount,
		PublishedAt:      utcPtr(m.PublishedAt),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

func (r *ArticleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "published_at", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
	})
	return err
}

func (r *ArticleRepository) Create(ctx context.Context, a *domain.Article) (*domain.Article, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toMongoArticle(a)
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert article: %w", err)
	}
	doc.ID, _ = res.InsertedID.(primitive.ObjectID)
	return doc.toDomain(), nil
}

func (r *ArticleRepository) FindByID(ctx context.Context, id string) (*domain.Article, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, domain.ErrArticleNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoArticle
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, fmt.Errorf("find article: %w", err)
	}
	return doc.toDomain(), nil
}

// List sorts newest publication first, then newest creation.
func (r *ArticleRepository) List(ctx context.Context, f ports.ArticleFilter) ([]*domain.Article, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Category != "" {
		filter["category"] = string(f.Category)
	}
	if f.Featured != nil {
		filter["is_featured"] = *f.Featured
	}
	if f.Search != "" {
		filter["$or"] = searchClause(f.Search, "title", "content", "excerpt", "tags")
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	sort := bson.D{{Key: "published_at", Value: -1}, {Key: "created_at", Value: -1}}
	cur, err := r.coll.Find(ctx, filter, pageOptions(options.Find().SetSort(sort), f.Page, f.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoArticle
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode articles: %w", err)
	}
	out := make([]*domain.Article, len(docs))
	for i := range docs {
		out[i] = docs[i].toDomain()
	}
	return out, total, nil
}

func (r *ArticleRepository) Update(ctx context.Context, a *domain.Article) (*domain.Article, error) {
	oid, ok := objectID(a.ID)
	if !ok {
		return nil, domain.ErrArticleNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{
		"title":              a.Title,
		"content":            a.Content,
		"excerpt":            a.Excerpt,
		"tags":               nonNil(a.Tags),
		"featured_image_url": a.FeaturedImageURL,
		"image_urls":         nonNil(a.ImageURLs),
		"category":           string(a.Category),
		"status":             string(a.Status),
		"is_featured":        a.IsFeatured,
		"updated_at":         a.UpdatedAt,
	}
	if a.PublishedAt != nil {
		set["published_at"] = a.PublishedAt.UTC()
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoArticle
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrArticleNotFound
		}
		return nil, fmt.Errorf("update article: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrArticleNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *ArticleRepository) IncrementViews(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return domain.ErrArticleNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateByID(ctx, oid, bson.M{"$inc": bson.M{"view_count": 1}})
	if err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}
