package notes

import (
	"context"
	"testing"
	"time"

	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/storage/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() (*Service, *time.Time) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(sl.Discard(), memory.New())
	s.now = func() time.Time { return now }
	return s, &now
}

func ptr(s string) *string { return &s }

func TestCreateAndList(t *testing.T) {
	s, now := newService()
	ctx := context.Background()
	owner := uuid.New()

	first, err := s.Create(ctx, owner, "  first ", "")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Title)

	*now = now.Add(time.Minute)
	second, err := s.Create(ctx, owner, "second", "body")
	require.NoError(t, err)

	list, err := s.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUpdatePartial(t *testing.T) {
	s, now := newService()
	ctx := context.Background()
	owner := uuid.New()

	n, err := s.Create(ctx, owner, "title", "content")
	require.NoError(t, err)

	*now = now.Add(time.Minute)

	updated, err := s.Update(ctx, owner, n.ID, nil, ptr("new content"))
	require.NoError(t, err)
	assert.Equal(t, "title", updated.Title)
	assert.Equal(t, "new content", updated.Content)
	assert.True(t, updated.UpdatedAt.After(n.UpdatedAt))

	updated, err = s.Update(ctx, owner, n.ID, ptr("renamed"), nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "new content", updated.Content)
}

func TestNotesAreIsolatedPerUser(t *testing.T) {
	s, _ := newService()
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()

	n, err := s.Create(ctx, owner, "mine", "")
	require.NoError(t, err)

	list, err := s.List(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Update(ctx, other, n.ID, ptr("stolen"), nil)
	require.ErrorIs(t, err, ErrNoteNotFound)

	err = s.Delete(ctx, other, n.ID)
	require.ErrorIs(t, err, ErrNoteNotFound)

	require.NoError(t, s.Delete(ctx, owner, n.ID))

	err = s.Delete(ctx, owner, n.ID)
	require.ErrorIs(t, err, ErrNoteNotFound)
}
