package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Bhardin04/brianhardin.info/internal/errors"
)

func TestContactRepo_CreateAndGet(t *testing.T) {
	repo := NewContactRepo(requireDB(t))
	ctx := context.Background()

	msg, err := repo.Create(ctx, "Ada Lovelace", "ada@example.com", "Hello", "I enjoyed the demos.")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.False(t, msg.Read)

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "I enjoyed the demos.", got.Body)
}

func TestContactRepo_GetUnknown(t *testing.T) {
	repo := NewContactRepo(requireDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}

func TestContactRepo_MarkReadAndUnreadCount(t *testing.T) {
	repo := NewContactRepo(requireDB(t))
	ctx := context.Background()

	before, err := repo.UnreadCount(ctx)
	require.NoError(t, err)

	msg, err := repo.Create(ctx, "Grace Hopper", "grace@example.com", "Question", "About the pipeline demo.")
	require.NoError(t, err)

	count, err := repo.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, count)

	require.NoError(t, repo.MarkRead(ctx, msg.ID))

	count, err = repo.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, count)

	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)
}

func TestContactRepo_ArchiveRemovesFromInbox(t *testing.T) {
	repo := NewContactRepo(requireDB(t))
	ctx := context.Background()

	msg, err := repo.Create(ctx, "Barbara", "barbara@example.com", "Hi", "Body")
	require.NoError(t, err)

	require.NoError(t, repo.Archive(ctx, msg.ID))

	// Archiving also marks read, so the badge drops.
	got, err := repo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)
	assert.True(t, got.Read)

	msgs, err := repo.List(ctx, 100, 0)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.NotEqual(t, msg.ID, m.ID)
	}

	assert.True(t, apperrors.IsNotFound(repo.Archive(ctx, uuid.New())))
}

func TestContactRepo_DeleteIsNotFoundAfter(t *testing.T) {
	repo := NewContactRepo(requireDB(t))
	ctx := context.Background()

	msg, err := repo.Create(ctx, "Alan", "alan@example.com", "Hi", "Body")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, msg.ID))
	assert.True(t, apperrors.IsNotFound(repo.Delete(ctx, msg.ID)))
	assert.True(t, apperrors.IsNotFound(repo.MarkRead(ctx, msg.ID)))
}

func TestContactRepo_ListNewestFirst(t *testing.T) {
	repo := NewContactRepo(requireDB(t))
	ctx := context.Background()

	older, err := repo.Create(ctx, "First", "first@example.com", "1", "first")
	require.NoError(t, err)
	newer, err := repo.Create(ctx, "Second", "second@example.com", "2", "second")
	require.NoError(t, err)

	msgs, err := repo.List(ctx, 100, 0)
	require.NoError(t, err)

	posOlder, posNewer := -1, -1
	for i, m := range msgs {
		switch m.ID {
		case older.ID:
			posOlder = i
		case newer.ID:
			posNewer = i
		}
	}
	require.NotEqual(t, -1, posOlder)
	require.NotEqual(t, -1, posNewer)
	assert.Less(t, posNewer, posOlder)
}
