package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	sl "notes_service/internal/lib/logger/sl"
	"notes_service/internal/models"
	"notes_service/internal/notifier"
	"notes_service/internal/ratelimit"
	"notes_service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrNoPendingCode      = errors.New("no pending code")
	ErrCodeExpired        = errors.New("code has expired")
	ErrCodeMismatch       = errors.New("invalid code")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTooManyRequests    = errors.New("too many code requests")
)

type Auth struct {
	log             *slog.Logger
	usrSaver        UserSaver
	usrProvider     UserProvider
	codes           CodeGenerator
	tokens          TokenIssuer
	notifier        notifier.Notifier
	limiter         IssuanceLimiter
	deliveryTimeout time.Duration
	now             func() time.Time

	deliveries sync.WaitGroup
}

type UserSaver interface {
	SaveUser(ctx context.Context, u models.User) error
	SetPendingCode(ctx context.Context, userID uuid.UUID, codeHash []byte, expiresAt time.Time) error
	ConsumePendingCode(ctx context.Context, userID uuid.UUID, codeHash []byte) (models.User, error)
}

type UserProvider interface {
	UserByEmail(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (models.User, error)
}

type CodeGenerator interface {
	Generate() (code string, expiresAt time.Time, err error)
	Hash(code string) ([]byte, error)
	Compare(hash []byte, code string) bool
}

type TokenIssuer interface {
	Issue(user models.User) (string, error)
	Verify(token string) (uuid.UUID, error)
}

type IssuanceLimiter interface {
	CheckCodeIssuance(ctx context.Context, email string) error
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	codes CodeGenerator,
	tokens TokenIssuer,
	n notifier.Notifier,
	limiter IssuanceLimiter,
	deliveryTimeout time.Duration,
) *Auth {
	return &Auth{
		log:             log,
		usrSaver:        userSaver,
		usrProvider:     userProvider,
		codes:           codes,
		tokens:          tokens,
		notifier:        n,
		limiter:         limiter,
		deliveryTimeout: deliveryTimeout,
		now:             time.Now,
	}
}

type SignUpInput struct {
	FirstName string
	LastName  string
	Email     string
	DOB       *time.Time
	Password  string
}

type SignUpResult struct {
	UserID      uuid.UUID
	RequiresOTP bool
}

type Session struct {
	Token string
	User  models.PublicUser
}

// * NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// * RequestSignUp creates an unverified account and sends it a one-time code.
// Delivery happens in the background; its failure does not fail sign-up.
func (a *Auth) RequestSignUp(ctx context.Context, in SignUpInput) (SignUpResult, error) {
	const op = "auth.RequestSignUp"

	log := a.log.With(slog.String("op", op))

	email := NormalizeEmail(in.Email)

	_, err := a.usrProvider.UserByEmail(ctx, email)
	if err == nil {
		log.Warn("user already exists")
		return SignUpResult{}, ErrUserExists
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to look up user", sl.Err(err))
		return SignUpResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.checkIssuance(ctx, email); err != nil {
		return SignUpResult{}, err
	}

	var passHash []byte
	if in.Password != "" {
		passHash, err = bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Error("failed to generate password hash", sl.Err(err))
			return SignUpResult{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	code, codeHash, expiresAt, err := a.newCode()
	if err != nil {
		log.Error("failed to generate code", sl.Err(err))
		return SignUpResult{}, fmt.Errorf("%s: %w", op, err)
	}

	now := a.now().UTC()
	user := models.User{
		ID:           uuid.New(),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		DOB:          in.DOB,
		PassHash:     passHash,
		OTPHash:      codeHash,
		OTPExpiresAt: &expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := a.usrSaver.SaveUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return SignUpResult{}, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return SignUpResult{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user signed up", slog.String("uid", user.ID.String()))

	a.deliverAsync(ctx, email, code)

	return SignUpResult{UserID: user.ID, RequiresOTP: true}, nil
}

// * VerifyCode consumes the pending code for email and returns a session.
func (a *Auth) VerifyCode(ctx context.Context, email, code string) (Session, error) {
	const op = "auth.VerifyCode"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return Session{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err = a.consumeCode(ctx, user, code)
	if err != nil {
		log.Info("code rejected", sl.Err(err))
		return Session{}, err
	}

	return a.session(ctx, op, user)
}

// * SignIn authenticates with a one-time code previously requested via ResendCode.
func (a *Auth) SignIn(ctx context.Context, email, code string) (Session, error) {
	const op = "auth.SignIn"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return Session{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err = a.consumeCode(ctx, user, code)
	if err != nil {
		log.Info("code rejected", sl.Err(err))
		if errors.Is(err, ErrCodeMismatch) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}

	return a.session(ctx, op, user)
}

// * SignInWithPassword authenticates accounts that registered with a password.
func (a *Auth) SignInWithPassword(ctx context.Context, email, password string) (Session, error) {
	const op = "auth.SignInWithPassword"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return Session{}, ErrInvalidCredentials
		}

		log.Error("failed to get user", sl.Err(err))
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	if len(user.PassHash) == 0 {
		log.Info("account has no password")
		return Session{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return Session{}, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return Session{}, ErrEmailNotVerified
	}

	return a.session(ctx, op, user)
}

// * ResendCode replaces any pending code with a fresh one and waits for delivery.
// A failed delivery is logged and reported in the result, not as an error.
func (a *Auth) ResendCode(ctx context.Context, email string) (notifier.DeliveryResult, error) {
	const op = "auth.ResendCode"

	log := a.log.With(slog.String("op", op))

	email = NormalizeEmail(email)

	user, err := a.usrProvider.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return notifier.DeliveryResult{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return notifier.DeliveryResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.checkIssuance(ctx, email); err != nil {
		return notifier.DeliveryResult{}, err
	}

	code, codeHash, expiresAt, err := a.newCode()
	if err != nil {
		log.Error("failed to generate code", sl.Err(err))
		return notifier.DeliveryResult{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.SetPendingCode(ctx, user.ID, codeHash, expiresAt); err != nil {
		log.Error("failed to store code", sl.Err(err))
		return notifier.DeliveryResult{}, fmt.Errorf("%s: %w", op, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, a.deliveryTimeout)
	defer cancel()

	res := a.notifier.Send(sendCtx, email, code)
	notifier.LogResult(log, res)

	return res, nil
}

// * Profile returns the public view of an authenticated user.
func (a *Auth) Profile(ctx context.Context, userID uuid.UUID) (models.PublicUser, error) {
	const op = "auth.Profile"

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.PublicUser{}, ErrUserNotFound
		}

		return models.PublicUser{}, fmt.Errorf("%s: %w", op, err)
	}

	return user.Public(), nil
}

// * Authenticate resolves a bearer token to the user id it was issued for.
func (a *Auth) Authenticate(token string) (uuid.UUID, error) {
	id, err := a.tokens.Verify(token)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return id, nil
}

// * Shutdown waits for background deliveries started by RequestSignUp.
func (a *Auth) Shutdown(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		a.deliveries.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Auth) consumeCode(ctx context.Context, user models.User, code string) (models.User, error) {
	const op = "auth.consumeCode"

	if !user.HasPendingCode() {
		return models.User{}, ErrNoPendingCode
	}

	if user.CodeExpired(a.now()) {
		return models.User{}, ErrCodeExpired
	}

	if !a.codes.Compare(user.OTPHash, code) {
		return models.User{}, ErrCodeMismatch
	}

	updated, err := a.usrSaver.ConsumePendingCode(ctx, user.ID, user.OTPHash)
	if err != nil {
		// Another request consumed or replaced the code first.
		if errors.Is(err, storage.ErrNoPendingCode) {
			return models.User{}, ErrNoPendingCode
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (a *Auth) session(ctx context.Context, op string, user models.User) (Session, error) {
	log := a.log.With(slog.String("op", op))

	token, err := a.tokens.Issue(user)
	if err != nil {
		log.Error("failed to issue token", sl.Err(err))
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("session issued", slog.String("uid", user.ID.String()))

	return Session{Token: token, User: user.Public()}, nil
}

func (a *Auth) newCode() (string, []byte, time.Time, error) {
	code, expiresAt, err := a.codes.Generate()
	if err != nil {
		return "", nil, time.Time{}, err
	}

	codeHash, err := a.codes.Hash(code)
	if err != nil {
		return "", nil, time.Time{}, err
	}

	return code, codeHash, expiresAt.UTC(), nil
}

func (a *Auth) checkIssuance(ctx context.Context, email string) error {
	if a.limiter == nil {
		return nil
	}

	if err := a.limiter.CheckCodeIssuance(ctx, email); err != nil {
		if errors.Is(err, ratelimit.ErrRateLimitExceeded) {
			return ErrTooManyRequests
		}
		return err
	}

	return nil
}

func (a *Auth) deliverAsync(ctx context.Context, email, code string) {
	log := a.log.With(slog.String("op", "auth.deliverAsync"))

	// The request may finish before delivery does.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.deliveryTimeout)

	a.deliveries.Add(1)
	go func() {
		defer a.deliveries.Done()
		defer cancel()

		notifier.LogResult(log, a.notifier.Send(sendCtx, email, code))
	}()
}
