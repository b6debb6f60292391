package httpServer

import (
	"log/slog"
	"net/http"
	"time"

	"notes_service/internal/auth"
	"notes_service/internal/http_server/handlers/health"
	notesHandlers "notes_service/internal/http_server/handlers/notes"
	"notes_service/internal/http_server/handlers/profile"
	resendOTP "notes_service/internal/http_server/handlers/resend_otp"
	"notes_service/internal/http_server/handlers/signin"
	"notes_service/internal/http_server/handlers/signup"
	verifyOTP "notes_service/internal/http_server/handlers/verify_otp"
	"notes_service/internal/lib/api/request"
	"notes_service/internal/middleware/authn"
	rateLimit "notes_service/internal/middleware/ratelimit"
	"notes_service/internal/notes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/rs/cors"
)

type Deps struct {
	Log            *slog.Logger
	Auth           *auth.Auth
	Notes          *notes.Service
	RequestTimeout time.Duration
	AllowedOrigins []string
	// IPRateLimit enables the per-IP limits on the auth routes.
	IPRateLimit bool
}

func NewRouter(d Deps) *chi.Mux {
	validate := request.NewValidator()

	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limit := func(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
		if !d.IPRateLimit {
			return func(next http.Handler) http.Handler { return next }
		}
		return mw
	}

	requireAuth := authn.New(d.Log, d.Auth)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	r.Get("/healthz", health.New())

	r.Route("/auth", func(r chi.Router) {
		r.With(limit(rateLimit.SignUp())).Post("/signup",
			signup.New(d.Log, validate, d.Auth, timeout),
		)
		r.With(limit(rateLimit.VerifyOTP())).Post("/verify-otp",
			verifyOTP.New(d.Log, validate, d.Auth, timeout),
		)
		r.With(limit(rateLimit.SignIn())).Post("/signin",
			signin.New(d.Log, validate, d.Auth, timeout),
		)
		r.With(limit(rateLimit.ResendOTP())).Post("/resend-otp",
			resendOTP.New(d.Log, validate, d.Auth, timeout),
		)
		r.With(requireAuth).Get("/profile",
			profile.New(d.Log, d.Auth, timeout),
		)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/", notesHandlers.List(d.Log, d.Notes, timeout))
		r.Post("/", notesHandlers.Create(d.Log, validate, d.Notes, timeout))
		r.Put("/{id}", notesHandlers.Update(d.Log, validate, d.Notes, timeout))
		r.Delete("/{id}", notesHandlers.Delete(d.Log, d.Notes, timeout))
	})

	return r
}
