package domain

// ResourceKind names a content collection that records views.
type ResourceKind string

const (
	ResourcePost    ResourceKind = "post"
	ResourceArticle ResourceKind = "article"
)

// ViewEvent records that a viewer opened a piece of content.
type ViewEvent struct {
	Kind       ResourceKind
	ResourceID string
	// ViewerKey identifies the viewer: a user id when authenticated,
	// otherwise the client IP.
	ViewerKey string
}
