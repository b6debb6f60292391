package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
)

var ErrNoteNotFound = errors.New("note not found")

type Store interface {
	Notes(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
	Note(ctx context.Context, userID, noteID uuid.UUID) (models.Note, error)
	SaveNote(ctx context.Context, n models.Note) error
	UpdateNote(ctx context.Context, n models.Note) (models.Note, error)
	DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error
}

// Service manages notes on behalf of their owners. Every operation is scoped
// to userID; a note owned by someone else is reported as not found.
type Service struct {
	log   *slog.Logger
	store Store
	now   func() time.Time
}

func New(log *slog.Logger, store Store) *Service {
	return &Service{
		log:   log,
		store: store,
		now:   time.Now,
	}
}

// List returns the user's notes, most recently updated first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	const op = "notes.List"

	notes, err := s.store.Notes(ctx, userID)
	if err != nil {
		s.log.Error("failed to list notes", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, title, content string) (models.Note, error) {
	const op = "notes.Create"

	now := s.now().UTC()
	n := models.Note{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SaveNote(ctx, n); err != nil {
		s.log.Error("failed to save note", slog.String("op", op), sl.Err(err))
		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// Update applies the non-nil fields to the note.
func (s *Service) Update(ctx context.Context, userID, noteID uuid.UUID, title, content *string) (models.Note, error) {
	const op = "notes.Update"

	log := s.log.With(slog.String("op", op))

	n, err := s.store.Note(ctx, userID, noteID)
	if err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			return models.Note{}, ErrNoteNotFound
		}

		log.Error("failed to get note", sl.Err(err))
		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	if title != nil {
		n.Title = strings.TrimSpace(*title)
	}
	if content != nil {
		n.Content = *content
	}
	n.UpdatedAt = s.now().UTC()

	updated, err := s.store.UpdateNote(ctx, n)
	if err != nil {
		// Deleted between the read and the write.
		if errors.Is(err, storage.ErrNoteNotFound) {
			return models.Note{}, ErrNoteNotFound
		}

		log.Error("failed to update note", sl.Err(err))
		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, userID, noteID uuid.UUID) error {
	const op = "notes.Delete"

	if err := s.store.DeleteNote(ctx, userID, noteID); err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			return ErrNoteNotFound
		}

		s.log.Error("failed to delete note", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
