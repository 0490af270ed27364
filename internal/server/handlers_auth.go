package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	githubAuthURL = "https://github.com/login/oauth/authorize"
	oauthTimeout  = 10 * time.Second
)

func (s *Server) registerAuthRoutes(csrf echo.MiddlewareFunc) {
	s.echo.GET("/auth/login", s.handleLoginPage, csrf)
	s.echo.GET("/auth/callback", s.handleOAuthCallback)
	s.echo.POST("/auth/logout", s.handleLogout, csrf)
}

// requireAdmin gates a route behind a logged-in admin session.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, err := s.sessionStore.Get(c.Request(), sessionName)
		if err != nil {
			return c.Redirect(http.StatusFound, "/auth/login")
		}

		login, ok := session.Values[sessionKeyAdmin].(string)
		if !ok || login == "" {
			return c.Redirect(http.StatusFound, "/auth/login")
		}
		if !strings.EqualFold(login, s.config.AdminGitHubLogin) {
			return c.Redirect(http.StatusFound, "/auth/login")
		}

		return next(c)
	}
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *Server) handleLoginPage(c echo.Context) error {
	state, err := generateOAuthState()
	if err != nil {
		slog.Error("Failed to generate OAuth state", "error", err)
		return c.String(http.StatusInternalServerError, "Internal error")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session for OAuth state", "error", err)
	}
	session.Values[sessionKeyOAuthState] = state
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("Failed to save OAuth state session", "error", err)
		return c.String(http.StatusInternalServerError, "Internal error")
	}

	authURL := fmt.Sprintf(
		"%s?client_id=%s&redirect_uri=%s&state=%s",
		githubAuthURL,
		url.QueryEscape(s.config.GitHubClientID),
		url.QueryEscape(s.config.GitHubRedirectURI),
		url.QueryEscape(state),
	)

	return s.renderTemplate(c, "login.html", map[string]any{
		"Title":         "Sign in",
		"GitHubAuthURL": authURL,
	})
}

func (s *Server) handleOAuthCallback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return c.String(http.StatusBadRequest, "Missing code parameter")
	}

	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return c.String(http.StatusBadRequest, "Invalid session")
	}
	expectedState, ok := session.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return c.String(http.StatusBadRequest, "Missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return c.String(http.StatusBadRequest, "Invalid OAuth state")
	}
	delete(session.Values, sessionKeyOAuthState)

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	user, err := s.oauthClient.ExchangeCodeForUser(ctx, code)
	if err != nil {
		slog.Error("Failed to exchange OAuth code", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to authenticate with GitHub")
	}

	if !strings.EqualFold(user.Login, s.config.AdminGitHubLogin) {
		slog.Warn("Rejected login from non-admin account", "login", user.Login)
		if err := session.Save(c.Request(), c.Response().Writer); err != nil {
			slog.Warn("Failed to save session after rejected login", "error", err)
		}
		return c.String(http.StatusForbidden, "This account is not authorized to administer the site")
	}

	session.Values[sessionKeyAdmin] = user.Login
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("Failed to save session", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to save session")
	}

	slog.Info("Admin logged in", "login", user.Login)
	return c.Redirect(http.StatusFound, "/admin")
}

func (s *Server) handleLogout(c echo.Context) error {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.Warn("Failed to get session during logout", "error", err)
		session, err = s.sessionStore.New(c.Request(), sessionName)
		if err != nil {
			slog.Error("Failed to create new session during logout", "error", err)
		}
	}
	session.Options.MaxAge = -1

	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.Error("Failed to save logout session", "error", err)
		return c.String(http.StatusInternalServerError, "Failed to logout. Please clear your browser cookies and try again.")
	}

	return c.Redirect(http.StatusFound, "/")
}
