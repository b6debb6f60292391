package verifyOTP

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notes_service/internal/auth"
	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,numeric,max=18"`
}

type Response struct {
	resp.Response
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

type CodeVerifier interface {
	VerifyCode(ctx context.Context, email, code string) (auth.Session, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	verifier CodeVerifier,
	timeout time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verifyOTP.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		sess, err := verifier.VerifyCode(ctx, req.Email, req.OTP)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found"))
			case errors.Is(err, auth.ErrNoPendingCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("No OTP found for this user"))
			case errors.Is(err, auth.ErrCodeExpired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("OTP has expired"))
			case errors.Is(err, auth.ErrCodeMismatch):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Invalid OTP"))
			default:
				log.Error("failed to verify code", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Email verified", slog.String("uid", sess.User.ID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Email verified successfully",
			Token:    sess.Token,
			User:     sess.User,
		})
	}
}
