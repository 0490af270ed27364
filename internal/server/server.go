package server

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/Bhardin04/brianhardin.info/internal/config"
	"github.com/Bhardin04/brianhardin.info/internal/database"
	"github.com/Bhardin04/brianhardin.info/internal/demo"
	"github.com/Bhardin04/brianhardin.info/web"
)

// contactStore is the slice of the contact repository the handlers use.
type contactStore interface {
	Create(ctx context.Context, name, email, subject, body string) (*database.ContactMessage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*database.ContactMessage, error)
	List(ctx context.Context, limit, offset int) ([]database.ContactMessage, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	Archive(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	UnreadCount(ctx context.Context) (int, error)
}

// blogStore is the slice of the blog repository the handlers use.
type blogStore interface {
	Create(ctx context.Context, slug, title, summary, body string) (*database.BlogPost, error)
	GetByID(ctx context.Context, id uuid.UUID) (*database.BlogPost, error)
	GetBySlug(ctx context.Context, slug string) (*database.BlogPost, error)
	ListPublished(ctx context.Context) ([]database.BlogPost, error)
	ListAll(ctx context.Context) ([]database.BlogPost, error)
	Update(ctx context.Context, id uuid.UUID, slug, title, summary, body string) error
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// contactThrottle rate-limits contact submissions per sender.
type contactThrottle interface {
	Allow(ctx context.Context, sender string) (bool, error)
}

// mailSender delivers contact notifications. May be nil when SMTP is not
// configured.
type mailSender interface {
	SendContactNotification(ctx context.Context, name, email, subject, body string) error
}

// HealthCheck is a named health check function.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	engine   *demo.Engine
	contacts contactStore
	blog     *blogCache
	throttle contactThrottle
	mailer   mailSender

	templates    *template.Template
	oauthClient  githubOAuthClient
	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, engine *demo.Engine, contacts contactStore, blog blogStore, throttle contactThrottle, mailer mailSender, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		engine:       engine,
		contacts:     contacts,
		blog:         newBlogCache(blog),
		throttle:     throttle,
		mailer:       mailer,
		templates:    templates,
		oauthClient:  newGitHubOAuthClient(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubRedirectURI),
		sessionStore: setupSessionStore(cfg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName          = "bhinfo-session"
	sessionKeyAdmin      = "admin_login"
	sessionKeyOAuthState = "oauth_state"
	sessionMaxAge        = 7 * 24 * time.Hour
)

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Template execution failed", "template", name, "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
