package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

// BlogPost is one article. Unpublished posts are only visible in the admin
// area.
type BlogPost struct {
	ID          uuid.UUID
	Slug        string
	Title       string
	Summary     string
	Body        string
	Published   bool
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const blogColumns = `id, slug, title, summary, body, published, published_at, created_at, updated_at`

// BlogRepo stores blog posts in PostgreSQL.
type BlogRepo struct {
	pool *pgxpool.Pool
}

func NewBlogRepo(pool *pgxpool.Pool) *BlogRepo {
	return &BlogRepo{pool: pool}
}

func scanPost(row pgx.Row) (*BlogPost, error) {
	var post BlogPost
	err := row.Scan(&post.ID, &post.Slug, &post.Title, &post.Summary, &post.Body,
		&post.Published, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("blog post not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan blog post: %w", err)
	}
	return &post, nil
}

func (r *BlogRepo) Create(ctx context.Context, slug, title, summary, body string) (*BlogPost, error) {
	return scanPost(r.pool.QueryRow(ctx, `
		INSERT INTO blog_posts (slug, title, summary, body)
		VALUES ($1, $2, $3, $4)
		RETURNING `+blogColumns,
		slug, title, summary, body,
	))
}

func (r *BlogRepo) GetByID(ctx context.Context, id uuid.UUID) (*BlogPost, error) {
	return scanPost(r.pool.QueryRow(ctx, `
		SELECT `+blogColumns+`
		FROM blog_posts
		WHERE id = $1
	`, id))
}

func (r *BlogRepo) GetBySlug(ctx context.Context, slug string) (*BlogPost, error) {
	return scanPost(r.pool.QueryRow(ctx, `
		SELECT `+blogColumns+`
		FROM blog_posts
		WHERE slug = $1
	`, slug))
}

// ListPublished returns published posts newest first.
func (r *BlogRepo) ListPublished(ctx context.Context) ([]BlogPost, error) {
	return r.list(ctx, `
		SELECT `+blogColumns+`
		FROM blog_posts
		WHERE published = TRUE
		ORDER BY published_at DESC
	`)
}

// ListAll returns every post for the admin area, newest first.
func (r *BlogRepo) ListAll(ctx context.Context) ([]BlogPost, error) {
	return r.list(ctx, `
		SELECT `+blogColumns+`
		FROM blog_posts
		ORDER BY created_at DESC
	`)
}

func (r *BlogRepo) list(ctx context.Context, query string) ([]BlogPost, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list blog posts: %w", err)
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		var post BlogPost
		if err := rows.Scan(&post.ID, &post.Slug, &post.Title, &post.Summary, &post.Body,
			&post.Published, &post.PublishedAt, &post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan blog post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *BlogRepo) Update(ctx context.Context, id uuid.UUID, slug, title, summary, body string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE blog_posts
		SET slug = $1, title = $2, summary = $3, body = $4, updated_at = NOW()
		WHERE id = $5
	`, slug, title, summary, body, id)
	if err != nil {
		return fmt.Errorf("failed to update blog post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("blog post not found").WithContext("post_id", id.String())
	}
	return nil
}

// SetPublished publishes or unpublishes a post. The first publish stamps
// published_at; republishing keeps the original date.
func (r *BlogRepo) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE blog_posts
		SET published = $1,
		    published_at = CASE WHEN $1 AND published_at IS NULL THEN NOW() ELSE published_at END,
		    updated_at = NOW()
		WHERE id = $2
	`, published, id)
	if err != nil {
		return fmt.Errorf("failed to set blog post published state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("blog post not found").WithContext("post_id", id.String())
	}
	return nil
}

func (r *BlogRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blog_posts WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("blog post not found").WithContext("post_id", id.String())
	}
	return nil
}
