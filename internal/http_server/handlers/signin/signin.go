package signin

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

// Request carries either a one-time code or a password.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp,omitempty" validate:"required_without=Password,omitempty,numeric,max=18"`
	Password string `json:"password,omitempty" validate:"required_without=OTP,omitempty,max=72"`
}

type Response struct {
	resp.Response
	Message string            `json:"message"`
	Token   string            `json:"token"`
	User    models.PublicUser `json:"user"`
}

type SignIner interface {
	SignIn(ctx context.Context, email, code string) (auth.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (auth.Session, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	signIner SignIner,
	timeout time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signin.New"

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

		var sess auth.Session
		if req.OTP != "" {
			sess, err = signIner.SignIn(ctx, req.Email, req.OTP)
		} else {
			sess, err = signIner.SignInWithPassword(ctx, req.Email, req.Password)
		}
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidCredentials):
				render.Status(r, http.StatusUnauthorized)
				if req.OTP != "" {
					render.JSON(w, r, resp.Error("Invalid email or OTP"))
				} else {
					render.JSON(w, r, resp.Error("Invalid email or password"))
				}
			case errors.Is(err, auth.ErrEmailNotVerified):
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Email is not verified"))
			case errors.Is(err, auth.ErrNoPendingCode):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Please request an OTP first"))
			case errors.Is(err, auth.ErrCodeExpired):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("OTP has expired"))
			default:
				log.Error("failed to sign in user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User signed in", slog.String("uid", sess.User.ID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Message:  "Signed in successfully",
			Token:    sess.Token,
			User:     sess.User,
		})
	}
}
