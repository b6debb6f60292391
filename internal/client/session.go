package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"notes_service/internal/models"
)

// State is what survives between runs: the session token and the last known
// snapshot of the signed-in user.
type State struct {
	Token string             `json:"token"`
	User  *models.PublicUser `json:"user,omitempty"`
}

func (s State) empty() bool {
	return s.Token == ""
}

type Store interface {
	// Load reports ok=false when nothing is stored.
	Load() (state State, ok bool, err error)
	Save(state State) error
	Clear() error
}

// FileStore keeps the state in a JSON file readable only by its owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (State, bool, error) {
	const op = "client.FileStore.Load"

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("%s: %w", op, err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return st, !st.empty(), nil
}

func (f *FileStore) Save(st State) error {
	const op = "client.FileStore.Save"

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) Clear() error {
	const op = "client.FileStore.Clear"

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// MemoryStore lives only as long as the process, like a browser tab.
type MemoryStore struct {
	mu    sync.Mutex
	state *State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return State{}, false, nil
	}

	return *m.state, true, nil
}

func (m *MemoryStore) Save(st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = &st

	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = nil

	return nil
}

// Session owns both storage scopes and the state currently in effect.
// The durable store wins when both hold a token.
type Session struct {
	mu      sync.RWMutex
	durable Store
	tab     Store
	current State
	// remembered records which store holds current.
	remembered bool
}

func NewSession(durable, tab Store) *Session {
	return &Session{
		durable: durable,
		tab:     tab,
	}
}

// Restore loads persisted state. It returns false when no token is stored.
func (s *Session) Restore() (bool, error) {
	const op = "client.Session.Restore"

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok, err := s.durable.Load()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		s.current, s.remembered = st, true
		return true, nil
	}

	st, ok, err = s.tab.Load()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if ok {
		s.current, s.remembered = st, false
		return true, nil
	}

	s.current = State{}

	return false, nil
}

// Persist stores a freshly issued session. remember selects the durable store
// and drops anything in the tab store; otherwise only the tab store is written.
func (s *Session) Persist(st State, remember bool) error {
	const op = "client.Session.Persist"

	s.mu.Lock()
	defer s.mu.Unlock()

	if remember {
		if err := s.durable.Save(st); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if err := s.tab.Clear(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	} else {
		if err := s.tab.Save(st); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	s.current, s.remembered = st, remember

	return nil
}

// UpdateUser refreshes the user snapshot in whichever store holds the token.
func (s *Session) UpdateUser(u models.PublicUser) error {
	const op = "client.Session.UpdateUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.empty() {
		return nil
	}

	s.current.User = &u

	store := s.tab
	if s.remembered {
		store = s.durable
	}

	if err := store.Save(s.current); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Clear wipes both stores and the in-memory state.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = State{}

	return errors.Join(s.durable.Clear(), s.tab.Clear())
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Token
}

func (s *Session) User() (models.PublicUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.User == nil {
		return models.PublicUser{}, false
	}

	return *s.current.User, true
}
