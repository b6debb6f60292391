package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notes_service/internal/auth"
	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/middleware/authn"
	"notes_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

type Response struct {
	resp.Response
	User models.PublicUser `json:"user"`
}

type ProfileProvider interface {
	Profile(ctx context.Context, userID uuid.UUID) (models.PublicUser, error)
}

func New(log *slog.Logger, provider ProfileProvider, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profile.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Access token required"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		user, err := provider.Profile(ctx, userID)
		if err != nil {
			// The account behind a still-valid token is gone.
			if errors.Is(err, auth.ErrUserNotFound) {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid token"))

				return
			}

			log.Error("failed to get profile", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			User:     user,
		})
	}
}
