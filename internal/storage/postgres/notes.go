package postgres

import (
	"context"
	"errors"
	"fmt"

	"notes_service/internal/models"
	"notes_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const noteColumns = `id, user_id, title, content, created_at, updated_at`

func scanNote(row pgx.Row) (models.Note, error) {
	var n models.Note

	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.CreatedAt, &n.UpdatedAt)

	return n, err
}

func (r *PostgresRepo) Notes(ctx context.Context, userID uuid.UUID) ([]models.Note, error) {
	const op = "storage.postgres.Notes"

	query := `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)

	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

func (r *PostgresRepo) SaveNote(ctx context.Context, n models.Note) error {
	const op = "storage.postgres.SaveNote"

	query := `
		INSERT INTO notes (id, user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := r.pool.Exec(ctx, query, n.ID, n.UserID, n.Title, n.Content, n.CreatedAt, n.UpdatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UpdateNote(ctx context.Context, n models.Note) (models.Note, error) {
	const op = "storage.postgres.UpdateNote"

	query := `
		UPDATE notes
		SET title = $1, content = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5
		RETURNING ` + noteColumns

	updated, err := scanNote(r.pool.QueryRow(ctx, query, n.Title, n.Content, n.UpdatedAt, n.ID, n.UserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Note{}, storage.ErrNoteNotFound
		}

		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	return updated, nil
}

func (r *PostgresRepo) Note(ctx context.Context, userID, noteID uuid.UUID) (models.Note, error) {
	const op = "storage.postgres.Note"

	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND user_id = $2`

	n, err := scanNote(r.pool.QueryRow(ctx, query, noteID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Note{}, storage.ErrNoteNotFound
		}

		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (r *PostgresRepo) DeleteNote(ctx context.Context, userID, noteID uuid.UUID) error {
	const op = "storage.postgres.DeleteNote"

	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrNoteNotFound
	}

	return nil
}
