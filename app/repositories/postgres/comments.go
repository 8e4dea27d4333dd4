package postgres

import (
	"context"
	"fmt"

	"inkwell/app/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentRepository struct {
	pool *pgxpool.Pool
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (post_id, author_id, text, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	return mapError(err)
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, post_id, author_id, text, created_at FROM comments
		 WHERE post_id = $1 ORDER BY created_at DESC, id DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}
