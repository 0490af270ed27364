package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
	"github.com/Bhardin04/brianhardin.info/internal/metrics"
)

const (
	maxContactFieldLen = 200
	maxContactBodyLen  = 5000
	mailSendTimeout    = 15 * time.Second
)

func (s *Server) registerContactRoutes(csrfMiddleware, contactLimiter echo.MiddlewareFunc) {
	s.echo.GET("/contact", s.handleContactPage, csrfMiddleware)
	s.echo.POST("/contact", s.handleContactSubmit, csrfMiddleware, contactLimiter)
}

func (s *Server) handleContactPage(c echo.Context) error {
	return s.renderTemplate(c, "contact.html", map[string]any{
		"CSRFToken": c.Get("csrf"),
	})
}

type contactForm struct {
	Name    string `form:"name"`
	Email   string `form:"email"`
	Subject string `form:"subject"`
	Body    string `form:"body"`
}

func (f *contactForm) validate() error {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Body = strings.TrimSpace(f.Body)

	switch {
	case f.Name == "" || f.Email == "" || f.Subject == "" || f.Body == "":
		return apperrors.ValidationError("all fields are required")
	case len(f.Name) > maxContactFieldLen || len(f.Subject) > maxContactFieldLen:
		return apperrors.ValidationError("name or subject too long")
	case len(f.Body) > maxContactBodyLen:
		return apperrors.ValidationError("message too long")
	}

	if _, err := mail.ParseAddress(f.Email); err != nil {
		return apperrors.ValidationError("invalid email address")
	}
	return nil
}

// handleContactSubmit persists the submission and mails a notification. Mail
// delivery happens off the request path; a broken SMTP provider never loses
// the message.
func (s *Server) handleContactSubmit(c echo.Context) error {
	var form contactForm
	if err := c.Bind(&form); err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		return apperrors.ValidationError("invalid form submission")
	}
	if err := form.validate(); err != nil {
		metrics.ContactSubmissions.WithLabelValues("invalid").Inc()
		return err
	}

	ctx := c.Request().Context()

	allowed, err := s.throttle.Allow(ctx, c.RealIP())
	if err != nil {
		// Redis being down should not block legitimate mail.
		slog.Error("Contact throttle check failed, allowing submission", "error", err)
	} else if !allowed {
		metrics.ContactSubmissions.WithLabelValues("throttled").Inc()
		return apperrors.ValidationError("please wait before sending another message")
	}

	msg, err := s.contacts.Create(ctx, form.Name, form.Email, form.Subject, form.Body)
	if err != nil {
		return apperrors.InternalError("failed to store contact message", err)
	}
	metrics.ContactSubmissions.WithLabelValues("accepted").Inc()
	slog.Info("Contact message received", "message_id", msg.ID.String())

	if s.mailer != nil {
		go s.notify(form)
	}

	return c.JSON(http.StatusAccepted, map[string]string{"status": "received"})
}

func (s *Server) notify(form contactForm) {
	ctx, cancel := context.WithTimeout(context.Background(), mailSendTimeout)
	defer cancel()

	if err := s.mailer.SendContactNotification(ctx, form.Name, form.Email, form.Subject, form.Body); err != nil {
		slog.Error("Failed to send contact notification", "error", err)
	}
}
