package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// PostHandler serves the community board.
type PostHandler struct {
	posts ports.PostService
}

func NewPostHandler(posts ports.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// List returns active top-level posts, pinned first.
//
// @Summary      List posts
// @Tags         community
// @Produce      json
// @Param        type    query     string  false  "Post type"
// @Param        search  query     string  false  "Matches title, content or tags"
// @Param        page    query     int     false  "Page number"  default(1)
// @Param        limit   query     int     false  "Page size"    default(20)
// @Success      200     {object}  postListResponse
// @Router       /api/community [get]
func (h *PostHandler) List(c echo.Context) error {
	page, err := h.posts.List(c.Request().Context(), ports.PostFilter{
		Type:   domain.PostType(c.QueryParam("type")),
		Search: c.QueryParam("search"),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postListResponse{Posts: page.Items, Pagination: paginationOf(page)})
}

// Get returns a post with its replies and records a view.
//
// @Summary      Get post
// @Tags         community
// @Produce      json
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  threadResponse
// @Failure      404  {object}  errorBody
// @Router       /api/community/{id} [get]
func (h *PostHandler) Get(c echo.Context) error {
	thread, err := h.posts.Get(c.Request().Context(), c.Param("id"), viewerKey(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, threadResponse{Post: thread.Post, Replies: thread.Replies})
}

// Create publishes a post, or a reply when parentPost is set.
//
// @Summary      Create post
// @Tags         community
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      postRequest  true  "Post"
// @Success      201   {object}  postResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      409   {object}  errorBody
// @Router       /api/community [post]
func (h *PostHandler) Create(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req postRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.posts.Create(c.Request().Context(), actor, ports.CreatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		ImageURLs: req.ImageURLs,
		Type:      domain.PostType(req.Type),
		ParentID:  req.ParentID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, postResponse{Message: "Post created", Post: post})
}

// Update edits a post. Pin, lock and status changes need moderation rights.
//
// @Summary      Update post
// @Tags         community
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Post ID"
// @Param        body  body      postUpdateRequest  true  "Changes"
// @Success      200   {object}  postResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /api/community/{id} [put]
func (h *PostHandler) Update(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req postUpdateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.posts.Update(c.Request().Context(), actor, c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, postResponse{Message: "Post updated", Post: post})
}

// Delete removes a post.
//
// @Summary      Delete post
// @Tags         community
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Post ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /api/community/{id} [delete]
func (h *PostHandler) Delete(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Post deleted"})
}
