package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notes_service/internal/config"
	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	poolConfig, err := pgxpool.ParseConfig(dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

const userColumns = `id, first_name, last_name, email, dob, password_hash, is_verified,
		otp_hash, otp_expires_at, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.DOB,
		&u.PassHash,
		&u.IsVerified,
		&u.OTPHash,
		&u.OTPExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (r *PostgresRepo) SaveUser(ctx context.Context, u models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (id, first_name, last_name, email, dob, password_hash, is_verified,
			otp_hash, otp_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`

	_, err := r.pool.Exec(ctx, query,
		u.ID, u.FirstName, u.LastName, u.Email, u.DOB, u.PassHash, u.IsVerified,
		u.OTPHash, u.OTPExpiresAt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrUserExists
		}

		return fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	const op = "storage.postgres.UserByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1);`

	u, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) SetPendingCode(ctx context.Context, userID uuid.UUID, codeHash []byte, expiresAt time.Time) error {
	const op = "storage.postgres.SetPendingCode"

	query := `
		UPDATE users
		SET otp_hash = $1, otp_expires_at = $2, updated_at = NOW()
		WHERE id = $3;
	`

	tag, err := r.pool.Exec(ctx, query, codeHash, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// * ConsumePendingCode clears the pending code and marks the user verified,
// but only while the stored hash is still codeHash.
func (r *PostgresRepo) ConsumePendingCode(ctx context.Context, userID uuid.UUID, codeHash []byte) (models.User, error) {
	const op = "storage.postgres.ConsumePendingCode"

	query := `
		UPDATE users
		SET is_verified = TRUE, otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE id = $1 AND otp_hash = $2
		RETURNING ` + userColumns + `;`

	u, err := scanUser(r.pool.QueryRow(ctx, query, userID, codeHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNoPendingCode
		}

		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (r *PostgresRepo) ClearExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.postgres.ClearExpiredCodes"

	query := `
		UPDATE users
		SET otp_hash = NULL, otp_expires_at = NULL, updated_at = NOW()
		WHERE otp_expires_at IS NOT NULL AND otp_expires_at < $1
	`

	tag, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn builds the connection string from config.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
