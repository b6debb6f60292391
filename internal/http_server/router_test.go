package httpServer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"notes_service/internal/auth"
	"notes_service/internal/lib/jwt"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/lib/otp"
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

type testServer struct {
	handler http.Handler
	auth    *auth.Auth
	inbox   *inbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := sl.Discard()
	repo := memory.New()
	box := &inbox{codes: make(map[string]string)}

	authSvc := auth.New(
		log,
		repo,
		repo,
		otp.New(6, 10*time.Minute, bcrypt.MinCost),
		jwt.NewIssuer("router-test-secret", time.Hour),
		box,
		nil,
		time.Second,
	)

	return &testServer{
		handler: NewRouter(Deps{
			Log:            log,
			Auth:           authSvc,
			Notes:          notes.New(log, repo),
			RequestTimeout: time.Second,
		}),
		auth:  authSvc,
		inbox: box,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())

	return rec.Code, out
}

// signUpAndVerify returns a session token for a freshly verified account.
func (s *testServer) signUpAndVerify(t *testing.T, email string) string {
	t.Helper()

	code, _ := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     email,
		"password":  "correct horse",
	})
	require.Equal(t, http.StatusCreated, code)
	require.NoError(t, s.auth.Shutdown(context.Background()))

	code, body := s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{
		"email": email,
		"otp":   s.inbox.code(email),
	})
	require.Equal(t, http.StatusOK, code)

	return body["token"].(string)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
}

func TestSignUpFlow(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "Ada@Example.com",
		"dob":       "1815-12-10",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, body["requiresOTP"])
	assert.NotEmpty(t, body["userId"])
	assert.NotContains(t, body, "otp")

	require.NoError(t, s.auth.Shutdown(context.Background()))
	otpCode := s.inbox.code("ada@example.com")
	require.Len(t, otpCode, 6)

	code, body = s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "Eve",
		"lastName":  "X",
		"email":     "ADA@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists with this email", body["error"])

	code, _ = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{
		"email": "nobody@example.com",
		"otp":   otpCode,
	})
	assert.Equal(t, http.StatusNotFound, code)

	wrong := "000000"
	if otpCode == wrong {
		wrong = "111111"
	}
	code, body = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{
		"email": "ada@example.com",
		"otp":   wrong,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid OTP", body["error"])

	code, body = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{
		"email": "ada@example.com",
		"otp":   otpCode,
	})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)
	user := body["user"].(map[string]any)
	assert.Equal(t, true, user["isEmailVerified"])
	assert.Equal(t, "ada@example.com", user["email"])

	code, body = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{
		"email": "ada@example.com",
		"otp":   otpCode,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No OTP found for this user", body["error"])

	code, body = s.do(t, http.MethodGet, "/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ada", body["user"].(map[string]any)["firstName"])

	code, _ = s.do(t, http.MethodGet, "/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do(t, http.MethodGet, "/auth/profile", token+"x", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSignUpValidation(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "Ada",
		"email":     "not-an-email",
		"dob":       "10/12/1815",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Error", body["status"])

	details := body["details"].([]any)
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.(map[string]any)["field"].(string))
	}
	assert.ElementsMatch(t, []string{"lastName", "email", "dob"}, fields)
}

func TestSignUpRejectsBlankNames(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "   ",
		"lastName":  "\t",
		"email":     "q@b.com",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	details := body["details"].([]any)
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.(map[string]any)["field"].(string))
	}
	assert.ElementsMatch(t, []string{"firstName", "lastName"}, fields)

	// Nothing was stored, so the same email can still sign up.
	code, _ = s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": " Ada ",
		"lastName":  "Lovelace",
		"email":     "q@b.com",
	})
	assert.Equal(t, http.StatusCreated, code)
	require.NoError(t, s.auth.Shutdown(context.Background()))

	code, body = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{
		"email": "q@b.com",
		"otp":   s.inbox.code("q@b.com"),
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Ada", body["user"].(map[string]any)["firstName"])
}

func TestResendThenOldCodeFails(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "a@b.com",
	})
	require.Equal(t, http.StatusCreated, code)
	require.NoError(t, s.auth.Shutdown(context.Background()))
	first := s.inbox.code("a@b.com")

	code, body := s.do(t, http.MethodPost, "/auth/resend-otp", "", map[string]any{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OTP sent successfully", body["message"])
	second := s.inbox.code("a@b.com")

	if first != second {
		code, _ = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{"email": "a@b.com", "otp": first})
		assert.Equal(t, http.StatusBadRequest, code)
	}

	code, _ = s.do(t, http.MethodPost, "/auth/verify-otp", "", map[string]any{"email": "a@b.com", "otp": second})
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodPost, "/auth/resend-otp", "", map[string]any{"email": "nobody@b.com"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSignIn(t *testing.T) {
	s := newTestServer(t)
	s.signUpAndVerify(t, "a@b.com")

	code, body := s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{
		"email":    "a@b.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, body = s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{
		"email":    "a@b.com",
		"password": "wrong password",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Invalid email or password", body["error"])

	code, body = s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{
		"email": "a@b.com",
		"otp":   "123456",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Please request an OTP first", body["error"])

	code, _ = s.do(t, http.MethodPost, "/auth/resend-otp", "", map[string]any{"email": "a@b.com"})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{
		"email": "a@b.com",
		"otp":   s.inbox.code("a@b.com"),
	})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, _ = s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{"email": "a@b.com"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSignInUnverifiedWithPassword(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"email":     "a@b.com",
		"password":  "correct horse",
	})
	require.Equal(t, http.StatusCreated, code)

	code, body := s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{
		"email":    "a@b.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Email is not verified", body["error"])

	require.NoError(t, s.auth.Shutdown(context.Background()))
}

func TestNotesCRUD(t *testing.T) {
	s := newTestServer(t)
	token := s.signUpAndVerify(t, "a@b.com")
	other := s.signUpAndVerify(t, "c@d.com")

	code, _ := s.do(t, http.MethodGet, "/notes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := s.do(t, http.MethodPost, "/notes", token, map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPost, "/notes", token, map[string]any{"title": "groceries", "content": "milk"})
	require.Equal(t, http.StatusCreated, code)
	note := body["note"].(map[string]any)
	id := note["id"].(string)
	assert.Equal(t, "groceries", note["title"])

	code, body = s.do(t, http.MethodGet, "/notes", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["notes"].([]any), 1)

	code, body = s.do(t, http.MethodGet, "/notes", other, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["notes"].([]any))

	code, body = s.do(t, http.MethodPut, "/notes/"+id, token, map[string]any{"content": "milk, eggs"})
	require.Equal(t, http.StatusOK, code)
	note = body["note"].(map[string]any)
	assert.Equal(t, "groceries", note["title"])
	assert.Equal(t, "milk, eggs", note["content"])

	code, _ = s.do(t, http.MethodPut, "/notes/"+id, token, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPut, "/notes/"+id, other, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodDelete, "/notes/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid note ID", body["error"])

	code, _ = s.do(t, http.MethodDelete, "/notes/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodDelete, "/notes/"+id, token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Note deleted successfully", body["message"])

	code, _ = s.do(t, http.MethodDelete, "/notes/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
