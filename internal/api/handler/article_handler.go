package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/diggingyuhak/community-api/internal/api/middleware"
	"github.com/diggingyuhak/community-api/internal/core/domain"
	"github.com/diggingyuhak/community-api/internal/core/ports"
)

// ArticleHandler serves the magazine.
type ArticleHandler struct {
	articles ports.ArticleService
}

func NewArticleHandler(articles ports.ArticleService) *ArticleHandler {
	return &ArticleHandler{articles: articles}
}

// List returns published articles.
//
// @Summary      List articles
// @Tags         magazines
// @Produce      json
// @Param        category  query     string  false  "Category"
// @Param        featured  query     bool    false  "Only featured or only non-featured"
// @Param        search    query     string  false  "Matches title, content, excerpt or tags"
// @Param        page      query     int     false  "Page number"  default(1)
// @Param        limit     query     int     false  "Page size"    default(20)
// @Success      200       {object}  articleListResponse
// @Failure      400       {object}  errorBody
// @Router       /api/magazines [get]
func (h *ArticleHandler) List(c echo.Context) error {
	filter := ports.ArticleFilter{
		Category: domain.Category(c.QueryParam("category")),
		Search:   c.QueryParam("search"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
	if raw := c.QueryParam("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.NewValidationError("featured", "featured must be true or false")
		}
		filter.Featured = &featured
	}

	page, err := h.articles.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articleListResponse{Articles: page.Items, Pagination: paginationOf(page)})
}

// Get returns an article and records a view. Drafts are visible only to their
// author and to editors.
//
// @Summary      Get article
// @Tags         magazines
// @Produce      json
// @Param        id   path      string  true  "Article ID"
// @Success      200  {object}  articleResponse
// @Failure      404  {object}  errorBody
// @Router       /api/magazines/{id} [get]
func (h *ArticleHandler) Get(c echo.Context) error {
	article, err := h.articles.Get(c.Request().Context(), middleware.CurrentUser(c), c.Param("id"), viewerKey(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articleResponse{Article: article})
}

// Create stores a new draft.
//
// @Summary      Create article
// @Tags         magazines
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      articleRequest  true  "Article"
// @Success      201   {object}  articleResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Router       /api/magazines [post]
func (h *ArticleHandler) Create(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req articleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	article, err := h.articles.Create(c.Request().Context(), actor, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, articleResponse{Message: "Article created", Article: article})
}

// Update edits an article. Publishing without the publish permission files it
// for review instead.
//
// @Summary      Update article
// @Tags         magazines
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Article ID"
// @Param        body  body      articleRequest  true  "Changes"
// @Success      200   {object}  articleResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /api/magazines/{id} [put]
func (h *ArticleHandler) Update(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	var req articleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	article, err := h.articles.Update(c.Request().Context(), actor, c.Param("id"), req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, articleResponse{Message: "Article updated", Article: article})
}

// Delete removes an article.
//
// @Summary      Delete article
// @Tags         magazines
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Article ID"
// @Success      200  {object}  messageResponse
// @Failure      403  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Router       /api/magazines/{id} [delete]
func (h *ArticleHandler) Delete(c echo.Context) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.articles.Delete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Article deleted"})
}
