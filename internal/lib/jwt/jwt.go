package jwt

import (
	"errors"
	"fmt"
	"time"

	"notes_service/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const purposeSession = "session"

var ErrInvalidToken = errors.New("invalid token")

// Issuer signs and verifies stateless HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (i *Issuer) Issue(user models.User) (string, error) {
	const op = "jwt.Issue"

	now := i.now()

	claims := jwt.MapClaims{
		"sub":     user.ID.String(),
		"email":   user.Email,
		"purpose": purposeSession,
		"iat":     now.Unix(),
		"exp":     now.Add(i.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify returns the user id carried by tokenStr. Any failure (bad signature,
// wrong algorithm, expiry, malformed claims) is reported as ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string) (uuid.UUID, error) {
	const op = "jwt.Verify"

	claims := jwt.MapClaims{}

	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if purpose, ok := claims["purpose"].(string); !ok || purpose != purposeSession {
		return uuid.Nil, fmt.Errorf("%s: wrong purpose: %w", op, ErrInvalidToken)
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: malformed subject: %w", op, ErrInvalidToken)
	}

	return id, nil
}
