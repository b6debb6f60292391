package signup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notes_service/internal/auth"
	resp "notes_service/internal/lib/api/response"
	sl "notes_service/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

const dobLayout = "2006-01-02"

type Request struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	DOB       string `json:"dob,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Password  string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
}

type Response struct {
	resp.Response
	Message     string `json:"message"`
	UserID      string `json:"userId"`
	RequiresOTP bool   `json:"requiresOTP"`
}

type SignUper interface {
	RequestSignUp(ctx context.Context, in auth.SignUpInput) (auth.SignUpResult, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	signUper SignUper,
	timeout time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.New"

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

		req.FirstName = strings.TrimSpace(req.FirstName)
		req.LastName = strings.TrimSpace(req.LastName)

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		in := auth.SignUpInput{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Password:  req.Password,
		}

		if req.DOB != "" {
			// Already checked by the datetime rule.
			dob, _ := time.Parse(dobLayout, req.DOB)
			in.DOB = &dob
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		res, err := signUper.RequestSignUp(ctx, in)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserExists):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("User already exists with this email"))
			case errors.Is(err, auth.ErrTooManyRequests):
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, resp.Error("Too many code requests, please try again later"))
			default:
				log.Error("failed to sign up user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User signed up", slog.String("uid", res.UserID.String()))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, Response{
			Response:    resp.OK(),
			Message:     "User created successfully. Please verify your email with the OTP sent.",
			UserID:      res.UserID.String(),
			RequiresOTP: res.RequiresOTP,
		})
	}
}
