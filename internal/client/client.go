package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/models"

	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// APIError is a non-2xx reply from the service.
type APIError struct {
	StatusCode int
	Message    string
	Details    []resp.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notes api: %d: %s", e.StatusCode, e.Message)
}

// Client talks to the notes service on behalf of one Session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	log     *slog.Logger
}

type Option func(*clientOptions)

type clientOptions struct {
	base           http.RoundTripper
	timeout        time.Duration
	onUnauthorized func()
	log            *slog.Logger
}

// WithTransport sets the transport requests go through after the token is attached.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithOnUnauthorized registers the callback run after a 401 cleared the session,
// typically sending the user back to the sign-in screen.
func WithOnUnauthorized(fn func()) Option {
	return func(o *clientOptions) { o.onUnauthorized = fn }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	o := clientOptions{
		base:    http.DefaultTransport,
		timeout: 15 * time.Second,
		log:     sl.Discard(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: o.timeout,
			Transport: &authTransport{
				base:           o.base,
				session:        session,
				onUnauthorized: o.onUnauthorized,
				log:            o.log,
			},
		},
		session: session,
		log:     o.log,
	}
}

func (c *Client) Session() *Session {
	return c.session
}

type SignUpRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	DOB       string `json:"dob,omitempty"`
	Password  string `json:"password,omitempty"`
}

type SignUpResult struct {
	UserID      string `json:"userId"`
	RequiresOTP bool   `json:"requiresOTP"`
}

type sessionResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (SignUpResult, error) {
	var out SignUpResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", req, &out); err != nil {
		return SignUpResult{}, err
	}

	return out, nil
}

// VerifyOTP confirms the sign-up code and remembers the session durably.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (models.PublicUser, error) {
	body := map[string]string{"email": email, "otp": otp}
	return c.startSession(ctx, "/auth/verify-otp", body, true)
}

func (c *Client) SignIn(ctx context.Context, email, otp string, remember bool) (models.PublicUser, error) {
	body := map[string]string{"email": email, "otp": otp}
	return c.startSession(ctx, "/auth/signin", body, remember)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string, remember bool) (models.PublicUser, error) {
	body := map[string]string{"email": email, "password": password}
	return c.startSession(ctx, "/auth/signin", body, remember)
}

func (c *Client) ResendOTP(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/resend-otp", map[string]string{"email": email}, nil)
}

// Profile fetches the signed-in user and refreshes the stored snapshot.
func (c *Client) Profile(ctx context.Context) (models.PublicUser, error) {
	const op = "client.Profile"

	var out struct {
		User models.PublicUser `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return models.PublicUser{}, err
	}

	if err := c.session.UpdateUser(out.User); err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return out.User, nil
}

func (c *Client) SignOut() error {
	return c.session.Clear()
}

// Init restores a persisted session and checks it against the server. Any
// failure leaves the client signed out without reporting an error.
func (c *Client) Init(ctx context.Context) (models.PublicUser, bool) {
	const op = "client.Init"

	log := c.log.With(slog.String("op", op))

	ok, err := c.session.Restore()
	if err != nil {
		log.Warn("failed to restore session", sl.Err(err))
		c.clearQuietly(log)
		return models.PublicUser{}, false
	}
	if !ok {
		return models.PublicUser{}, false
	}

	user, err := c.Profile(ctx)
	if err != nil {
		log.Info("stored session rejected", sl.Err(err))
		c.clearQuietly(log)
		return models.PublicUser{}, false
	}

	return user, true
}

func (c *Client) ListNotes(ctx context.Context) ([]models.Note, error) {
	var out struct {
		Notes []models.Note `json:"notes"`
	}
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &out); err != nil {
		return nil, err
	}

	return out.Notes, nil
}

func (c *Client) CreateNote(ctx context.Context, title, content string) (models.Note, error) {
	body := map[string]string{"title": title, "content": content}

	var out struct {
		Note models.Note `json:"note"`
	}
	if err := c.do(ctx, http.MethodPost, "/notes", body, &out); err != nil {
		return models.Note{}, err
	}

	return out.Note, nil
}

// UpdateNote sends only the non-nil fields.
func (c *Client) UpdateNote(ctx context.Context, id uuid.UUID, title, content *string) (models.Note, error) {
	body := struct {
		Title   *string `json:"title,omitempty"`
		Content *string `json:"content,omitempty"`
	}{title, content}

	var out struct {
		Note models.Note `json:"note"`
	}
	if err := c.do(ctx, http.MethodPut, "/notes/"+id.String(), body, &out); err != nil {
		return models.Note{}, err
	}

	return out.Note, nil
}

func (c *Client) DeleteNote(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+id.String(), nil, nil)
}

func (c *Client) startSession(ctx context.Context, path string, body any, remember bool) (models.PublicUser, error) {
	const op = "client.startSession"

	var out sessionResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return models.PublicUser{}, err
	}

	user := out.User
	if err := c.session.Persist(State{Token: out.Token, User: &user}, remember); err != nil {
		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

func (c *Client) clearQuietly(log *slog.Logger) {
	if err := c.session.Clear(); err != nil {
		log.Warn("failed to clear session", sl.Err(err))
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	const op = "client.do"

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var envelope resp.Response
		if err := render.DecodeJSON(res.Body, &envelope); err != nil || envelope.Error == "" {
			envelope.Error = http.StatusText(res.StatusCode)
		}

		return &APIError{
			StatusCode: res.StatusCode,
			Message:    envelope.Error,
			Details:    envelope.Details,
		}
	}

	if out == nil {
		return nil
	}

	if err := render.DecodeJSON(res.Body, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// authTransport attaches the bearer token and drops the session on 401.
type authTransport struct {
	base           http.RoundTripper
	session        *Session
	onUnauthorized func()
	log            *slog.Logger
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if token := t.session.Token(); token != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized {
		if err := t.session.Clear(); err != nil {
			t.log.Warn("failed to clear session after 401", sl.Err(err))
		}
		if t.onUnauthorized != nil {
			t.onUnauthorized()
		}
	}

	return res, nil
}
