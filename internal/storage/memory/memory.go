package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
)

// Repo is an in-process store for local runs and tests. It enforces the same
// case-insensitive email uniqueness as the Postgres schema.
type Repo struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]models.User
	byEmail map[string]uuid.UUID
	notes   map[uuid.UUID]models.Note
}

func New() *Repo {
	return &Repo{
		users:   make(map[uuid.UUID]models.User),
		byEmail: make(map[string]uuid.UUID),
		notes:   make(map[uuid.UUID]models.Note),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *Repo) SaveUser(_ context.Context, u models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(u.Email)
	if _, exists := r.byEmail[key]; exists {
		return storage.ErrUserExists
	}

	r.users[u.ID] = cloneUser(u)
	r.byEmail[key] = u.ID

	return nil
}

func (r *Repo) UserByEmail(_ context.Context, email string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return cloneUser(r.users[id]), nil
}

func (r *Repo) UserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return cloneUser(u), nil
}

func (r *Repo) SetPendingCode(_ context.Context, userID uuid.UUID, codeHash []byte, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.OTPHash = bytes.Clone(codeHash)
	u.OTPExpiresAt = &expiresAt
	u.UpdatedAt = time.Now().UTC()
	r.users[userID] = u

	return nil
}

func (r *Repo) ConsumePendingCode(_ context.Context, userID uuid.UUID, codeHash []byte) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok || len(u.OTPHash) == 0 || !bytes.Equal(u.OTPHash, codeHash) {
		return models.User{}, storage.ErrNoPendingCode
	}

	u.IsVerified = true
	u.OTPHash = nil
	u.OTPExpiresAt = nil
	u.UpdatedAt = time.Now().UTC()
	r.users[userID] = u

	return cloneUser(u), nil
}

func (r *Repo) ClearExpiredCodes(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cleared int64

	for id, u := range r.users {
		if u.OTPExpiresAt == nil || !u.OTPExpiresAt.Before(now) {
			continue
		}

		u.OTPHash = nil
		u.OTPExpiresAt = nil
		u.UpdatedAt = now
		r.users[id] = u
		cleared++
	}

	return cleared, nil
}

func (r *Repo) Notes(_ context.Context, userID uuid.UUID) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]models.Note, 0)
	for _, n := range r.notes {
		if n.UserID == userID {
			notes = append(notes, n)
		}
	}

	sort.Slice(notes, func(i, j int) bool {
		return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
	})

	return notes, nil
}

func (r *Repo) Note(_ context.Context, userID, noteID uuid.UUID) (models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notes[noteID]
	if !ok || n.UserID != userID {
		return models.Note{}, storage.ErrNoteNotFound
	}

	return n, nil
}

func (r *Repo) SaveNote(_ context.Context, n models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.notes[n.ID] = n

	return nil
}

func (r *Repo) UpdateNote(_ context.Context, n models.Note) (models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.notes[n.ID]
	if !ok || existing.UserID != n.UserID {
		return models.Note{}, storage.ErrNoteNotFound
	}

	existing.Title = n.Title
	existing.Content = n.Content
	existing.UpdatedAt = n.UpdatedAt
	r.notes[n.ID] = existing

	return existing, nil
}

func (r *Repo) DeleteNote(_ context.Context, userID, noteID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notes[noteID]
	if !ok || n.UserID != userID {
		return storage.ErrNoteNotFound
	}

	delete(r.notes, noteID)

	return nil
}

func cloneUser(u models.User) models.User {
	u.PassHash = bytes.Clone(u.PassHash)
	u.OTPHash = bytes.Clone(u.OTPHash)
	if u.OTPExpiresAt != nil {
		t := *u.OTPExpiresAt
		u.OTPExpiresAt = &t
	}
	if u.DOB != nil {
		d := *u.DOB
		u.DOB = &d
	}

	return u
}
