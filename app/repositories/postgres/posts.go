package postgres

import (
	"context"
	"fmt"
	"strings"

	"inkwell/app/models"
	"inkwell/app/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postColumns = `id, text, created_at, author_id, COALESCE(group_id, 0), image`

type PostRepository struct {
	pool *pgxpool.Pool
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (text, created_at, author_id, group_id, image)
		 VALUES ($1, $2, $3, NULLIF($4, 0), $5) RETURNING id`,
		post.Text, post.CreatedAt, post.AuthorID, post.GroupID, post.Image,
	).Scan(&post.ID)
	return mapError(err)
}

func (r *PostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	post, err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err)
	}
	return post, nil
}

func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET text = $2, group_id = NULLIF($3, 0), image = $4 WHERE id = $1`,
		post.ID, post.Text, post.GroupID, post.Image,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *PostRepository) Count(ctx context.Context, filter repositories.PostFilter) (int, error) {
	where, args := buildWhere(filter)
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func (r *PostRepository) List(ctx context.Context, filter repositories.PostFilter, limit, offset int) ([]*models.Post, error) {
	where, args := buildWhere(filter)
	q := `SELECT ` + postColumns + ` FROM posts` + where + ` ORDER BY created_at DESC, id DESC`
	if offset < 0 {
		offset = 0
	}
	args = append(args, offset)
	q += fmt.Sprintf(" OFFSET $%d", len(args))
	if limit > 0 {
		args = append(args, limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func buildWhere(f repositories.PostFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.AuthorID > 0 {
		add("author_id = $%d", f.AuthorID)
	}
	if f.GroupID > 0 {
		add("group_id = $%d", f.GroupID)
	}
	if len(f.AuthorIDs) > 0 {
		add("author_id = ANY($%d)", toInt64s(f.AuthorIDs))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Text, &p.CreatedAt, &p.AuthorID, &p.GroupID, &p.Image); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
