package server

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/Bhardin04/brianhardin.info/internal/config"
	"github.com/Bhardin04/brianhardin.info/internal/database"
	"github.com/Bhardin04/brianhardin.info/internal/demo"
	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

// --- Stub implementations ---

type stubContacts struct {
	mu        sync.Mutex
	messages  []*database.ContactMessage
	createErr error
}

func (s *stubContacts) Create(_ context.Context, name, email, subject, body string) (*database.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	msg := &database.ContactMessage{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *stubContacts) GetByID(_ context.Context, id uuid.UUID) (*database.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, apperrors.NotFoundError("contact message not found")
}

func (s *stubContacts) List(_ context.Context, limit, offset int) ([]database.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []database.ContactMessage
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Archived {
			continue
		}
		out = append(out, *s.messages[i])
	}
	if offset < len(out) {
		out = out[offset:]
	} else {
		out = nil
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubContacts) MarkRead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			msg.Read = true
			return nil
		}
	}
	return apperrors.NotFoundError("contact message not found")
}

func (s *stubContacts) Archive(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ID == id {
			msg.Archived = true
			msg.Read = true
			return nil
		}
	}
	return apperrors.NotFoundError("contact message not found")
}

func (s *stubContacts) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, msg := range s.messages {
		if msg.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFoundError("contact message not found")
}

func (s *stubContacts) UnreadCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, msg := range s.messages {
		if !msg.Read && !msg.Archived {
			count++
		}
	}
	return count, nil
}

func (s *stubContacts) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

type stubBlog struct {
	mu    sync.Mutex
	posts []database.BlogPost
	calls map[string]int
}

func (s *stubBlog) record(op string) {
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
}

func (s *stubBlog) callCount(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *stubBlog) Create(_ context.Context, slug, title, summary, body string) (*database.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("create")
	post := database.BlogPost{
		ID:        uuid.New(),
		Slug:      slug,
		Title:     title,
		Summary:   summary,
		Body:      body,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.posts = append(s.posts, post)
	return &post, nil
}

func (s *stubBlog) GetByID(_ context.Context, id uuid.UUID) (*database.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("get_by_id")
	for i := range s.posts {
		if s.posts[i].ID == id {
			post := s.posts[i]
			return &post, nil
		}
	}
	return nil, apperrors.NotFoundError("blog post not found")
}

func (s *stubBlog) GetBySlug(_ context.Context, slug string) (*database.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("get_by_slug")
	for i := range s.posts {
		if s.posts[i].Slug == slug {
			post := s.posts[i]
			return &post, nil
		}
	}
	return nil, apperrors.NotFoundError("blog post not found")
}

func (s *stubBlog) ListPublished(_ context.Context) ([]database.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list_published")
	var out []database.BlogPost
	for _, post := range s.posts {
		if post.Published {
			out = append(out, post)
		}
	}
	return out, nil
}

func (s *stubBlog) ListAll(_ context.Context) ([]database.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list_all")
	return append([]database.BlogPost(nil), s.posts...), nil
}

func (s *stubBlog) Update(_ context.Context, id uuid.UUID, slug, title, summary, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("update")
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Slug = slug
			s.posts[i].Title = title
			s.posts[i].Summary = summary
			s.posts[i].Body = body
			return nil
		}
	}
	return apperrors.NotFoundError("blog post not found")
}

func (s *stubBlog) SetPublished(_ context.Context, id uuid.UUID, published bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("set_published")
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts[i].Published = published
			if published && s.posts[i].PublishedAt == nil {
				now := time.Now()
				s.posts[i].PublishedAt = &now
			}
			return nil
		}
	}
	return apperrors.NotFoundError("blog post not found")
}

func (s *stubBlog) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("delete")
	for i := range s.posts {
		if s.posts[i].ID == id {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFoundError("blog post not found")
}

type stubThrottle struct {
	mu         sync.Mutex
	allowed    bool
	err        error
	lastSender string
}

func (s *stubThrottle) Allow(_ context.Context, sender string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSender = sender
	return s.allowed, s.err
}

type stubMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (s *stubMailer) SendContactNotification(_ context.Context, name, email, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, subject)
	return nil
}

func (s *stubMailer) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type mockOAuthClient struct {
	user *githubUser
	err  error
}

func (m *mockOAuthClient) ExchangeCodeForUser(_ context.Context, _ string) (*githubUser, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return m.user, nil
}

// --- Test helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "test",
		Port:             "0",
		SessionSecret:    "test-secret",
		AdminGitHubLogin: "bhardin04",

		DemoMaxSessions:        10,
		DemoSessionTTL:         time.Hour,
		DemoMaxConnections:     50,
		DemoMaxConnsPerSession: 5,
		DemoTickInterval:       20 * time.Millisecond,
		DemoReaperInterval:     time.Hour,
		DemoConnRatePerSecond:  1000,
		DemoConnRateBurst:      1000,
	}
}

func newTestServer(t *testing.T, cfg *config.Config, contacts contactStore, blog blogStore, throttle contactThrottle, mailSvc mailSender) *Server {
	t.Helper()

	engine := demo.NewEngine(demo.Config{
		MaxSessions:        cfg.DemoMaxSessions,
		SessionTTL:         cfg.DemoSessionTTL,
		MaxConnections:     cfg.DemoMaxConnections,
		MaxConnsPerSession: cfg.DemoMaxConnsPerSession,
		TickInterval:       cfg.DemoTickInterval,
		ReaperInterval:     cfg.DemoReaperInterval,
	}, clockwork.NewRealClock())
	engine.Start(context.Background())
	t.Cleanup(engine.Stop)

	srv, err := NewServer(cfg, engine, contacts, blog, throttle, mailSvc, nil)
	require.NoError(t, err)
	return srv
}
