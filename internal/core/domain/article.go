package domain

import "time"

// ArticleStatus is the editorial state of a magazine article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticleSubmitted ArticleStatus = "submitted"
	ArticlePublished ArticleStatus = "published"
	ArticleArchived  ArticleStatus = "archived"
)

var articleStatuses = map[ArticleStatus]struct{}{
	ArticleDraft: {}, ArticleSubmitted: {}, ArticlePublished: {}, ArticleArchived: {},
}

// Valid reports whether s is a known article status.
func (s ArticleStatus) Valid() bool {
	_, ok := articleStatuses[s]
	return ok
}

// Category groups magazine articles by topic.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryStudyAbroad Category = "study_abroad"
	CategoryVisa        Category = "visa"
	CategoryScholarship Category = "scholarship"
	CategoryLanguage    Category = "language"
	CategoryLife        Category = "life"
	CategoryCareer      Category = "career"
	CategoryUniversity  Category = "university"
)

var categories = map[Category]struct{}{
	CategoryGeneral: {}, CategoryStudyAbroad: {}, CategoryVisa: {}, CategoryScholarship: {},
	CategoryLanguage: {}, CategoryLife: {}, CategoryCareer: {}, CategoryUniversity: {},
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// Article is a magazine article.
type Article struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Content          string        `json:"content"`
	Excerpt          string        `json:"excerpt"`
	AuthorID         string        `json:"author"`
	AuthorName       string        `json:"authorName"`
	Tags             []string      `json:"tags"`
	FeaturedImageURL string        `json:"featuredImageUrl,omitempty"`
	ImageURLs        []string      `json:"imageUrls"`
	Category         Category      `json:"category"`
	Status           ArticleStatus `json:"status"`
	IsFeatured       bool          `json:"isFeatured"`
	ViewCount        int64         `json:"viewCount"`
	LikeCount        int64         `json:"likeCount"`
	PublishedAt      *time.Time    `json:"publishedAt"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}
