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

// ContactMessage is one submission from the contact form.
type ContactMessage struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Subject   string
	Body      string
	Read      bool
	Archived  bool
	CreatedAt time.Time
}

const contactColumns = `id, name, email, subject, body, read, archived, created_at`

// ContactRepo stores contact form submissions in PostgreSQL.
type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

func (r *ContactRepo) Create(ctx context.Context, name, email, subject, body string) (*ContactMessage, error) {
	var msg ContactMessage
	err := r.pool.QueryRow(ctx, `
		INSERT INTO contact_messages (name, email, subject, body)
		VALUES ($1, $2, $3, $4)
		RETURNING `+contactColumns,
		name, email, subject, body,
	).Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Body, &msg.Read, &msg.Archived, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert contact message: %w", err)
	}
	return &msg, nil
}

func (r *ContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*ContactMessage, error) {
	var msg ContactMessage
	err := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+`
		FROM contact_messages
		WHERE id = $1
	`, id).Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Body, &msg.Read, &msg.Archived, &msg.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundError("contact message not found").WithContext("message_id", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact message: %w", err)
	}
	return &msg, nil
}

// List returns inbox messages newest first. Archived messages are excluded.
func (r *ContactRepo) List(ctx context.Context, limit, offset int) ([]ContactMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM contact_messages
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact messages: %w", err)
	}
	defer rows.Close()

	var msgs []ContactMessage
	for rows.Next() {
		var msg ContactMessage
		if err := rows.Scan(&msg.ID, &msg.Name, &msg.Email, &msg.Subject, &msg.Body, &msg.Read, &msg.Archived, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *ContactRepo) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contact_messages SET read = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark contact message read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("contact message not found").WithContext("message_id", id.String())
	}
	return nil
}

// Archive removes a message from the inbox without deleting it.
func (r *ContactRepo) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contact_messages SET archived = TRUE, read = TRUE WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to archive contact message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("contact message not found").WithContext("message_id", id.String())
	}
	return nil
}

func (r *ContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM contact_messages WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete contact message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFoundError("contact message not found").WithContext("message_id", id.String())
	}
	return nil
}

// UnreadCount powers the admin inbox badge.
func (r *ContactRepo) UnreadCount(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM contact_messages WHERE read = FALSE AND archived = FALSE
	`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
