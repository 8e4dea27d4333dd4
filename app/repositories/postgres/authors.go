package postgres

import (
	"context"

	"inkwell/app/models"
	"inkwell/app/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AuthorRepository struct {
	pool *pgxpool.Pool
}

func (r *AuthorRepository) Create(ctx context.Context, author *models.Author) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO authors (username) VALUES ($1) RETURNING id`,
		author.Username,
	).Scan(&author.ID)
	return mapError(err)
}

func (r *AuthorRepository) GetByID(ctx context.Context, id int) (*models.Author, error) {
	var a models.Author
	err := r.pool.QueryRow(ctx, `SELECT id, username FROM authors WHERE id = $1`, id).
		Scan(&a.ID, &a.Username)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

func (r *AuthorRepository) GetByUsername(ctx context.Context, username string) (*models.Author, error) {
	var a models.Author
	err := r.pool.QueryRow(ctx, `SELECT id, username FROM authors WHERE username = $1`, username).
		Scan(&a.ID, &a.Username)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

// Delete relies on ON DELETE CASCADE for posts, comments and follows.
func (r *AuthorRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
