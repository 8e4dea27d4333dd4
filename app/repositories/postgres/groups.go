package postgres

import (
	"context"
	"fmt"

	"inkwell/app/models"
	"inkwell/app/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	pool *pgxpool.Pool
}

func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO blog_groups (title, slug, description) VALUES ($1, $2, $3) RETURNING id`,
		group.Title, group.Slug, group.Description,
	).Scan(&group.ID)
	return mapError(err)
}

func (r *GroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *GroupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return r.get(ctx, `WHERE slug = $1`, slug)
}

func (r *GroupRepository) get(ctx context.Context, where string, arg any) (*models.Group, error) {
	var g models.Group
	err := r.pool.QueryRow(ctx, `SELECT id, title, slug, description FROM blog_groups `+where, arg).
		Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		return nil, mapError(err)
	}
	return &g, nil
}

func (r *GroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, slug, description FROM blog_groups ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// Delete relies on ON DELETE SET NULL to detach the group's posts.
func (r *GroupRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blog_groups WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
