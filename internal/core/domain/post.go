package domain

import "time"

// PostType classifies a community post.
type PostType string

const (
	PostDiscussion PostType = "discussion"
	PostQuestion   PostType = "question"
	PostNews       PostType = "news"
	PostHelp       PostType = "help"
	PostShowcase   PostType = "showcase"
)

var postTypes = map[PostType]struct{}{
	PostDiscussion: {}, PostQuestion: {}, PostNews: {}, PostHelp: {}, PostShowcase: {},
}

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	_, ok := postTypes[t]
	return ok
}

// PostStatus is the visibility state of a community post.
type PostStatus string

const (
	PostActive   PostStatus = "active"
	PostHidden   PostStatus = "hidden"
	PostDeleted  PostStatus = "deleted"
	PostReported PostStatus = "reported"
)

var postStatuses = map[PostStatus]struct{}{
	PostActive: {}, PostHidden: {}, PostDeleted: {}, PostReported: {},
}

// Valid reports whether s is a known post status.
func (s PostStatus) Valid() bool {
	_, ok := postStatuses[s]
	return ok
}

// Post is a community post or a reply to one.
type Post struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	AuthorID   string     `json:"author"`
	AuthorName string     `json:"authorName"`
	Tags       []string   `json:"tags"`
	ImageURLs  []string   `json:"imageUrls"`
	Type       PostType   `json:"type"`
	Status     PostStatus `json:"status"`
	IsPinned   bool       `json:"isPinned"`
	IsLocked   bool       `json:"isLocked"`
	ViewCount  int64      `json:"viewCount"`
	LikeCount  int64      `json:"likeCount"`
	ReplyCount int64      `json:"replyCount"`
	ParentID   string     `json:"parentPost,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// IsReply reports whether p answers another post.
func (p *Post) IsReply() bool { return p.ParentID != "" }
