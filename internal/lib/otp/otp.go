package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultLength = 6
	DefaultTTL    = 10 * time.Minute
)

// Generator issues numeric one-time codes and hashes them for storage.
type Generator struct {
	length   int
	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

type Option func(*Generator)

// WithClock overrides the time source used to compute expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

func New(length int, ttl time.Duration, hashCost int, opts ...Option) *Generator {
	if length <= 0 || length > 18 {
		length = DefaultLength
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = bcrypt.DefaultCost
	}

	g := &Generator{
		length:   length,
		ttl:      ttl,
		hashCost: hashCost,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate returns a zero-padded code drawn uniformly from [0, 10^length)
// and the instant it stops being valid.
func (g *Generator) Generate() (string, time.Time, error) {
	const op = "otp.Generate"

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.length)), nil)

	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}

	code := fmt.Sprintf("%0*d", g.length, n.Int64())

	return code, g.now().Add(g.ttl), nil
}

func (g *Generator) TTL() time.Duration {
	return g.ttl
}

func (g *Generator) Hash(code string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(code), g.hashCost)
}

// Compare reports whether code matches hash. bcrypt compares digests in
// constant time.
func (g *Generator) Compare(hash []byte, code string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil
}
