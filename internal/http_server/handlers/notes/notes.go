package notes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/middleware/authn"
	"notes_service/internal/models"
	notesvc "notes_service/internal/notes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type NoteService interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Note, error)
	Create(ctx context.Context, userID uuid.UUID, title, content string) (models.Note, error)
	Update(ctx context.Context, userID, noteID uuid.UUID, title, content *string) (models.Note, error)
	Delete(ctx context.Context, userID, noteID uuid.UUID) error
}

type CreateRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"max=10000"`
}

type UpdateRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Content *string `json:"content" validate:"omitempty,max=10000"`
}

type ListResponse struct {
	resp.Response
	Notes []models.Note `json:"notes"`
}

type NoteResponse struct {
	resp.Response
	Message string      `json:"message"`
	Note    models.Note `json:"note"`
}

type MessageResponse struct {
	resp.Response
	Message string `json:"message"`
}

func List(log *slog.Logger, svc NoteService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.List"

		log := requestLogger(log, r, op)

		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		notes, err := svc.List(ctx, userID)
		if err != nil {
			log.Error("failed to list notes", sl.Err(err))
			internalError(w, r)
			return
		}

		render.JSON(w, r, ListResponse{
			Response: resp.OK(),
			Notes:    notes,
		})
	}
}

func Create(log *slog.Logger, validate *validator.Validate, svc NoteService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.Create"

		log := requestLogger(log, r, op)

		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		var req CreateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		req.Title = strings.TrimSpace(req.Title)

		if err := validate.Struct(req); err != nil {
			invalid(w, r, log, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		note, err := svc.Create(ctx, userID, req.Title, req.Content)
		if err != nil {
			log.Error("failed to create note", sl.Err(err))
			internalError(w, r)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, NoteResponse{
			Response: resp.OK(),
			Message:  "Note created successfully",
			Note:     note,
		})
	}
}

func Update(log *slog.Logger, validate *validator.Validate, svc NoteService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.Update"

		log := requestLogger(log, r, op)

		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		noteID, ok := noteIDParam(w, r)
		if !ok {
			return
		}

		var req UpdateRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			req.Title = &title
		}

		if err := validate.Struct(req); err != nil {
			invalid(w, r, log, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		note, err := svc.Update(ctx, userID, noteID, req.Title, req.Content)
		if err != nil {
			if errors.Is(err, notesvc.ErrNoteNotFound) {
				notFound(w, r)
				return
			}

			log.Error("failed to update note", sl.Err(err))
			internalError(w, r)
			return
		}

		render.JSON(w, r, NoteResponse{
			Response: resp.OK(),
			Message:  "Note updated successfully",
			Note:     note,
		})
	}
}

func Delete(log *slog.Logger, svc NoteService, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.Delete"

		log := requestLogger(log, r, op)

		userID, ok := currentUser(w, r)
		if !ok {
			return
		}

		noteID, ok := noteIDParam(w, r)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		if err := svc.Delete(ctx, userID, noteID); err != nil {
			if errors.Is(err, notesvc.ErrNoteNotFound) {
				notFound(w, r)
				return
			}

			log.Error("failed to delete note", sl.Err(err))
			internalError(w, r)
			return
		}

		render.JSON(w, r, MessageResponse{
			Response: resp.OK(),
			Message:  "Note deleted successfully",
		})
	}
}

func requestLogger(log *slog.Logger, r *http.Request, op string) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := authn.UserID(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, resp.Error("Access token required"))
	}

	return userID, ok
}

func noteIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp.Error("Invalid note ID"))

		return uuid.Nil, false
	}

	return id, true
}

func invalid(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	validateErr := err.(validator.ValidationErrors)

	log.Info("Invalid request", sl.Err(err))

	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, resp.ValidationError(validateErr))
}

func notFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, resp.Error("Note not found"))
}

func internalError(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, resp.Error("Internal error"))
}
