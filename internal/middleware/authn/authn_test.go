package authn

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	sl "notes_service/internal/lib/logger/sl"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	token string
	id    uuid.UUID
}

func (s stubAuthenticator) Authenticate(token string) (uuid.UUID, error) {
	if token != s.token {
		return uuid.Nil, errors.New("invalid token")
	}
	return s.id, nil
}

func TestMiddleware(t *testing.T) {
	id := uuid.New()
	mw := New(sl.Discard(), stubAuthenticator{token: "good", id: id})

	var got uuid.UUID
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = UserID(r.Context())
		require.True(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer good", want: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer good", want: http.StatusNoContent},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", want: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer bad", want: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got = uuid.Nil

			req := httptest.NewRequest(http.MethodGet, "/notes", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			if tc.want == http.StatusNoContent {
				assert.Equal(t, id, got)
			} else {
				assert.Contains(t, rec.Body.String(), `"status":"Error"`)
			}
		})
	}
}
