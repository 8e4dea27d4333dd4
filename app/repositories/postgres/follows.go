package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FollowRepository struct {
	pool *pgxpool.Pool
}

// Create inserts the edge; the primary key turns repeats into no-ops.
func (r *FollowRepository) Create(ctx context.Context, followerID, followedID int) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, followed_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		followerID, followedID)
	return mapError(err)
}

func (r *FollowRepository) Delete(ctx context.Context, followerID, followedID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID)
	return mapError(err)
}

func (r *FollowRepository) Exists(ctx context.Context, followerID, followedID int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followed_id = $2)`,
		followerID, followedID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return ok, nil
}

func (r *FollowRepository) Following(ctx context.Context, followerID int) ([]int, error) {
	return r.ids(ctx, `SELECT followed_id FROM follows WHERE follower_id = $1 ORDER BY followed_id`, followerID)
}

func (r *FollowRepository) Followers(ctx context.Context, followedID int) ([]int, error) {
	return r.ids(ctx, `SELECT follower_id FROM follows WHERE followed_id = $1 ORDER BY follower_id`, followedID)
}

func (r *FollowRepository) ids(ctx context.Context, q string, arg int) ([]int, error) {
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
