package handler

import (
	"time"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"required,min=3,max=20"`
	DisplayName string `json:"displayName" validate:"required,min=2,max=50"`
	Password    string `json:"password" validate:"required,min=6"`
	Bio         string `json:"bio" validate:"max=200"`
	Reason      string `json:"reason" validate:"max=200"`
}

// loginRequest accepts an email or a username in the email field.
type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	Message string            `json:"message,omitempty"`
	User    domain.PublicUser `json:"user"`
}

type sessionResponse struct {
	Message   string            `json:"message"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	User      domain.PublicUser `json:"user"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type statusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type profileRequest struct {
	DisplayName     *string `json:"displayName" validate:"omitempty,min=2,max=50"`
	Bio             *string `json:"bio" validate:"omitempty,max=200"`
	ProfileImageURL *string `json:"profileImageUrl" validate:"omitempty,url"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// permissionsRequest maps a permission name to the roles that hold it.
type permissionsRequest struct {
	Permissions map[string][]string `json:"permissions" validate:"required"`
}

type rolesResponse struct {
	Hierarchy   map[domain.Role]int `json:"hierarchy"`
	Permissions domain.Matrix       `json:"permissions"`
}

type permissionsResponse struct {
	Message     string        `json:"message"`
	Permissions domain.Matrix `json:"permissions"`
}

type pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func paginationOf[T any](p *ports.Page[T]) pagination {
	return pagination{Page: p.Page, Limit: p.Limit, Total: p.Total, TotalPages: p.TotalPages}
}

type userListResponse struct {
	Users      []domain.PublicUser `json:"users"`
	Pagination pagination          `json:"pagination"`
}

type pendingResponse struct {
	Users []domain.PublicUser `json:"users"`
	Count int                 `json:"count"`
}

type postRequest struct {
	Title     string   `json:"title" validate:"max=100"`
	Content   string   `json:"content" validate:"required,min=10"`
	Tags      []string `json:"tags"`
	ImageURLs []string `json:"imageUrls"`
	Type      string   `json:"type" validate:"omitempty,oneof=discussion question news help showcase"`
	ParentID  string   `json:"parentPost"`
}

type postUpdateRequest struct {
	Title     *string  `json:"title" validate:"omitempty,max=100"`
	Content   *string  `json:"content" validate:"omitempty,min=10"`
	Tags      []string `json:"tags"`
	ImageURLs []string `json:"imageUrls"`
	Type      *string  `json:"type" validate:"omitempty,oneof=discussion question news help showcase"`
	Status    *string  `json:"status" validate:"omitempty,oneof=active hidden deleted reported"`
	IsPinned  *bool    `json:"isPinned"`
	IsLocked  *bool    `json:"isLocked"`
}

func (r postUpdateRequest) input() ports.UpdatePostInput {
	in := ports.UpdatePostInput{
		Title:     r.Title,
		Content:   r.Content,
		Tags:      r.Tags,
		ImageURLs: r.ImageURLs,
		IsPinned:  r.IsPinned,
		IsLocked:  r.IsLocked,
	}
	if r.Type != nil {
		t := domain.PostType(*r.Type)
		in.Type = &t
	}
	if r.Status != nil {
		s := domain.PostStatus(*r.Status)
		in.Status = &s
	}
	return in
}

type postListResponse struct {
	Posts      []*domain.Post `json:"posts"`
	Pagination pagination     `json:"pagination"`
}

type postResponse struct {
	Message string       `json:"message,omitempty"`
	Post    *domain.Post `json:"post"`
}

type threadResponse struct {
	Post    *domain.Post   `json:"post"`
	Replies []*domain.Post `json:"replies"`
}

type articleRequest struct {
	Title            *string  `json:"title" validate:"omitempty,min=1,max=200"`
	Content          *string  `json:"content" validate:"omitempty,min=1"`
	Excerpt          *string  `json:"excerpt" validate:"omitempty,max=200"`
	Tags             []string `json:"tags"`
	FeaturedImageURL *string  `json:"featuredImageUrl" validate:"omitempty,url"`
	ImageURLs        []string `json:"imageUrls"`
	Category         *string  `json:"category" validate:"omitempty,oneof=general study_abroad visa scholarship language life career university"`
	Status           *string  `json:"status" validate:"omitempty,oneof=draft submitted published archived"`
	IsFeatured       *bool    `json:"isFeatured"`
}

func (r articleRequest) input() ports.ArticleInput {
	in := ports.ArticleInput{
		Title:            r.Title,
		Content:          r.Content,
		Excerpt:          r.Excerpt,
		Tags:             r.Tags,
		FeaturedImageURL: r.FeaturedImageURL,
		ImageURLs:        r.ImageURLs,
		IsFeatured:       r.IsFeatured,
	}
	if r.Category != nil {
		cat := domain.Category(*r.Category)
		in.Category = &cat
	}
	if r.Status != nil {
		s := domain.ArticleStatus(*r.Status)
		in.Status = &s
	}
	return in
}

type articleListResponse struct {
	Articles   []*domain.Article `json:"articles"`
	Pagination pagination        `json:"pagination"`
}

type articleResponse struct {
	Message string          `json:"message,omitempty"`
	Article *domain.Article `json:"article"`
}

// errorBody documents the error envelope for swagger.
type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
