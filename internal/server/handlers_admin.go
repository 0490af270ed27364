package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

const adminMessagePageSize = 50

func (s *Server) registerAdminRoutes(csrf echo.MiddlewareFunc) {
	admin := s.echo.Group("/admin", csrf, s.requireAdmin)

	admin.GET("", s.handleAdminDashboard)

	admin.GET("/messages", s.handleAdminMessages)
	admin.POST("/messages/:id/read", s.handleAdminMessageRead)
	admin.POST("/messages/:id/archive", s.handleAdminMessageArchive)
	admin.POST("/messages/:id/delete", s.handleAdminMessageDelete)

	admin.GET("/posts", s.handleAdminPosts)
	admin.GET("/posts/new", s.handleAdminPostNew)
	admin.POST("/posts", s.handleAdminPostCreate)
	admin.GET("/posts/:id/edit", s.handleAdminPostEdit)
	admin.POST("/posts/:id", s.handleAdminPostUpdate)
	admin.POST("/posts/:id/publish", s.handleAdminPostPublish)
	admin.POST("/posts/:id/delete", s.handleAdminPostDelete)
}

func (s *Server) handleAdminDashboard(c echo.Context) error {
	unread, err := s.contacts.UnreadCount(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to count unread messages", err)
	}

	sessions, connections := s.engine.Stats()

	return s.renderTemplate(c, "admin_dashboard.html", map[string]any{
		"Title":           "Admin",
		"UnreadMessages":  unread,
		"DemoSessions":    sessions,
		"DemoConnections": connections,
		"CSRFToken":       c.Get("csrf"),
	})
}

func (s *Server) handleAdminMessages(c echo.Context) error {
	messages, err := s.contacts.List(c.Request().Context(), adminMessagePageSize, 0)
	if err != nil {
		return apperrors.InternalError("failed to list messages", err)
	}

	return s.renderTemplate(c, "admin_messages.html", map[string]any{
		"Title":     "Messages",
		"Messages":  messages,
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) handleAdminMessageRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid message id")
	}

	if err := s.contacts.MarkRead(c.Request().Context(), id); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/messages")
}

func (s *Server) handleAdminMessageArchive(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid message id")
	}

	if err := s.contacts.Archive(c.Request().Context(), id); err != nil {
		return err
	}
	return c.Redirect(http.StatusFound, "/admin/messages")
}

func (s *Server) handleAdminMessageDelete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid message id")
	}

	if err := s.contacts.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	slog.Info("Contact message deleted", "message_id", id)
	return c.Redirect(http.StatusFound, "/admin/messages")
}

// postForm carries the editable fields of a blog post.
type postForm struct {
	Slug    string `form:"slug"`
	Title   string `form:"title"`
	Summary string `form:"summary"`
	Body    string `form:"body"`
}

func (f *postForm) validate() error {
	f.Slug = strings.TrimSpace(strings.ToLower(f.Slug))
	f.Title = strings.TrimSpace(f.Title)
	f.Summary = strings.TrimSpace(f.Summary)
	f.Body = strings.TrimSpace(f.Body)

	if f.Slug == "" || f.Title == "" || f.Body == "" {
		return apperrors.ValidationError("slug, title and body are required")
	}
	for _, r := range f.Slug {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '-' {
			return apperrors.ValidationError("slug may only contain lowercase letters, digits and hyphens")
		}
	}
	return nil
}

func (s *Server) handleAdminPosts(c echo.Context) error {
	posts, err := s.blog.store.ListAll(c.Request().Context())
	if err != nil {
		return apperrors.InternalError("failed to list posts", err)
	}

	return s.renderTemplate(c, "admin_posts.html", map[string]any{
		"Title":     "Posts",
		"Posts":     posts,
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) handleAdminPostNew(c echo.Context) error {
	return s.renderTemplate(c, "admin_post_form.html", map[string]any{
		"Title":     "New post",
		"Action":    "/admin/posts",
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) handleAdminPostCreate(c echo.Context) error {
	var form postForm
	if err := c.Bind(&form); err != nil {
		return apperrors.ValidationError("invalid form submission")
	}
	if err := form.validate(); err != nil {
		return err
	}

	post, err := s.blog.store.Create(c.Request().Context(), form.Slug, form.Title, form.Summary, form.Body)
	if err != nil {
		return apperrors.InternalError("failed to create post", err)
	}

	s.blog.Invalidate()
	slog.Info("Blog post created", "post_id", post.ID, "slug", post.Slug)
	return c.Redirect(http.StatusFound, "/admin/posts")
}

func (s *Server) handleAdminPostEdit(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid post id")
	}

	post, err := s.blog.store.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return s.renderTemplate(c, "admin_post_form.html", map[string]any{
		"Title":     "Edit post",
		"Action":    "/admin/posts/" + id.String(),
		"Post":      post,
		"CSRFToken": c.Get("csrf"),
	})
}

func (s *Server) handleAdminPostUpdate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid post id")
	}

	var form postForm
	if err := c.Bind(&form); err != nil {
		return apperrors.ValidationError("invalid form submission")
	}
	if err := form.validate(); err != nil {
		return err
	}

	if err := s.blog.store.Update(c.Request().Context(), id, form.Slug, form.Title, form.Summary, form.Body); err != nil {
		return err
	}

	s.blog.Invalidate()
	slog.Info("Blog post updated", "post_id", id)
	return c.Redirect(http.StatusFound, "/admin/posts")
}

func (s *Server) handleAdminPostPublish(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid post id")
	}

	published := c.FormValue("published") == "true"
	if err := s.blog.store.SetPublished(c.Request().Context(), id, published); err != nil {
		return err
	}

	s.blog.Invalidate()
	slog.Info("Blog post publish state changed", "post_id", id, "published", published)
	return c.Redirect(http.StatusFound, "/admin/posts")
}

func (s *Server) handleAdminPostDelete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperrors.ValidationError("invalid post id")
	}

	if err := s.blog.store.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	s.blog.Invalidate()
	slog.Info("Blog post deleted", "post_id", id)
	return c.Redirect(http.StatusFound, "/admin/posts")
}
