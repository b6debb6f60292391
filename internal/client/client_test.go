package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"notes_service/internal/auth"
	httpServer "notes_service/internal/http_server"
	"notes_service/internal/lib/jwt"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/lib/otp"
	"notes_service/internal/models"
	"notes_service/internal/notes"
	"notes_service/internal/notifier"
	"notes_service/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) Send(_ context.Context, email, code string) notifier.DeliveryResult {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.codes[email] = code

	return notifier.DeliveryResult{Status: notifier.StatusSent, Driver: "inbox"}
}

func (i *inbox) code(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.codes[email]
}

type env struct {
	srv   *httptest.Server
	auth  *auth.Auth
	inbox *inbox
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := sl.Discard()
	repo := memory.New()
	box := &inbox{codes: make(map[string]string)}

	authSvc := auth.New(log, repo, repo,
		otp.New(6, 10*time.Minute, bcrypt.MinCost),
		jwt.NewIssuer("client-test-secret", time.Hour),
		box, nil, time.Second,
	)

	srv := httptest.NewServer(httpServer.NewRouter(httpServer.Deps{
		Log:            log,
		Auth:           authSvc,
		Notes:          notes.New(log, repo),
		RequestTimeout: time.Second,
	}))
	t.Cleanup(srv.Close)

	return &env{srv: srv, auth: authSvc, inbox: box}
}

func newSession(t *testing.T) (*Session, *FileStore, *MemoryStore) {
	t.Helper()

	file := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	tab := NewMemoryStore()

	return NewSession(file, tab), file, tab
}

// verified signs up email and verifies it through c.
func (e *env) verified(t *testing.T, c *Client, email string) models.PublicUser {
	t.Helper()

	ctx := context.Background()

	res, err := c.SignUp(ctx, SignUpRequest{FirstName: "Ada", LastName: "Lovelace", Email: email, Password: "correct horse"})
	require.NoError(t, err)
	require.True(t, res.RequiresOTP)
	require.NoError(t, e.auth.Shutdown(ctx))

	user, err := c.VerifyOTP(ctx, email, e.inbox.code(email))
	require.NoError(t, err)

	return user
}

func TestVerifyOTPPersistsDurably(t *testing.T) {
	e := newEnv(t)
	session, file, tab := newSession(t)
	c := New(e.srv.URL, session)

	user := e.verified(t, c, "a@b.com")
	assert.True(t, user.IsEmailVerified)

	st, ok, err := file.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, st.Token)
	assert.Equal(t, "a@b.com", st.User.Email)

	_, ok, err = tab.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := os.Stat(file.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	profile, err := c.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
}

func TestSignInRememberSelectsStore(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	session, file, tab := newSession(t)
	c := New(e.srv.URL, session)
	e.verified(t, c, "a@b.com")

	require.NoError(t, c.SignOut())

	_, err := c.SignInWithPassword(ctx, "a@b.com", "correct horse", false)
	require.NoError(t, err)

	_, ok, err := file.Load()
	require.NoError(t, err)
	assert.False(t, ok, "remember=false must not touch the durable store")

	_, ok, err = tab.Load()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.ResendOTP(ctx, "a@b.com"))

	_, err = c.SignIn(ctx, "a@b.com", e.inbox.code("a@b.com"), true)
	require.NoError(t, err)

	_, ok, err = file.Load()
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = tab.Load()
	require.NoError(t, err)
	assert.False(t, ok, "remember=true clears the tab store")
}

func TestUnauthorizedClearsBothStores(t *testing.T) {
	e := newEnv(t)
	session, file, tab := newSession(t)

	called := 0
	c := New(e.srv.URL, session, WithOnUnauthorized(func() { called++ }))

	stale := State{Token: "stale-token", User: &models.PublicUser{Email: "a@b.com"}}
	require.NoError(t, file.Save(stale))
	require.NoError(t, tab.Save(stale))
	_, err := session.Restore()
	require.NoError(t, err)

	_, err = c.ListNotes(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 1, called)

	_, ok, err := file.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = tab.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Empty(t, session.Token())
}

func TestInit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	session, file, _ := newSession(t)
	c := New(e.srv.URL, session)
	user := e.verified(t, c, "a@b.com")

	// A fresh process over the same durable store.
	restored := New(e.srv.URL, NewSession(file, NewMemoryStore()))
	got, ok := restored.Init(ctx)
	require.True(t, ok)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, file.Save(State{Token: "expired"}))
	stale := New(e.srv.URL, NewSession(file, NewMemoryStore()))
	_, ok = stale.Init(ctx)
	assert.False(t, ok)

	_, ok, err := file.Load()
	require.NoError(t, err)
	assert.False(t, ok, "a rejected token is cleared")

	empty := New(e.srv.URL, NewSession(NewFileStore(filepath.Join(t.TempDir(), "none.json")), NewMemoryStore()))
	_, ok = empty.Init(ctx)
	assert.False(t, ok)
}

func TestNotes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	session, _, _ := newSession(t)
	c := New(e.srv.URL, session)
	e.verified(t, c, "a@b.com")

	note, err := c.CreateNote(ctx, "groceries", "milk")
	require.NoError(t, err)

	content := "milk, eggs"
	updated, err := c.UpdateNote(ctx, note.ID, nil, &content)
	require.NoError(t, err)
	assert.Equal(t, "groceries", updated.Title)
	assert.Equal(t, content, updated.Content)

	list, err := c.ListNotes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.DeleteNote(ctx, note.ID))

	err = c.DeleteNote(ctx, note.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Note not found", apiErr.Message)

	assert.NotEmpty(t, session.Token(), "a 404 keeps the session")
}

func TestAPIErrorCarriesValidationDetails(t *testing.T) {
	e := newEnv(t)
	session, _, _ := newSession(t)
	c := New(e.srv.URL, session)

	_, err := c.SignUp(context.Background(), SignUpRequest{FirstName: "Ada", Email: "nope"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Details)
}
