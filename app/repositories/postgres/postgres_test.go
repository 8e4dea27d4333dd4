package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"inkwell/app/repositories"
	"inkwell/app/repositories/repotest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("INKWELL_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("INKWELL_TEST_POSTGRES_URL not set")
	}

	ctx := context.Background()
	pool, err := Connect(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, EnsureSchema(ctx, pool))

	repotest.Run(t, func(t *testing.T) *repositories.Store {
		require.NoError(t, Truncate(ctx, pool))
		// The pool is shared across subtests, so the store is not closed here.
		return NewStore(pool)
	})
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), repositories.ErrDuplicate)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23503"}), repositories.ErrInvalidReference)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(repositories.PostFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = buildWhere(repositories.PostFilter{AuthorID: 1, GroupID: 2, AuthorIDs: []int{3, 4}})
	assert.Equal(t, " WHERE author_id = $1 AND group_id = $2 AND author_id = ANY($3)", where)
	assert.Equal(t, []any{1, 2, []int64{3, 4}}, args)
}
