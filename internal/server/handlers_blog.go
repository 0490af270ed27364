package server

import (
	"github.com/labstack/echo/v4"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

func (s *Server) registerBlogRoutes() {
	s.echo.GET("/blog", s.handleBlogIndex)
	s.echo.GET("/blog/:slug", s.handleBlogPost)
}

func (s *Server) handleBlogIndex(c echo.Context) error {
	posts, err := s.blog.ListPublished(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to load blog posts", err)
	}

	return s.renderTemplate(c, "blog_list.html", map[string]any{
		"Posts": posts,
	})
}

func (s *Server) handleBlogPost(c echo.Context) error {
	post, err := s.blog.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	if !post.Published {
		return apperrors.NotFoundError("blog post not found")
	}

	return s.renderTemplate(c, "blog_post.html", map[string]any{
		"Post": post,
	})
}
