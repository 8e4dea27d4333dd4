// Package repotest holds the behaviour every repositories.Store backend must
// share. Backend packages call Run from their own tests.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"inkwell/app/models"
	"inkwell/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store; it should register its own cleanup.
type Factory func(t *testing.T) *repositories.Store

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// Run executes the shared suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("authors", func(t *testing.T) { testAuthors(t, newStore(t)) })
	t.Run("groups", func(t *testing.T) { testGroups(t, newStore(t)) })
	t.Run("posts", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("post ordering", func(t *testing.T) { testPostOrdering(t, newStore(t)) })
	t.Run("comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("follows", func(t *testing.T) { testFollows(t, newStore(t)) })
	t.Run("author delete cascades", func(t *testing.T) { testAuthorCascade(t, newStore(t)) })
	t.Run("group delete keeps posts", func(t *testing.T) { testGroupDelete(t, newStore(t)) })
	t.Run("concurrent writes", func(t *testing.T) { testConcurrentWrites(t, newStore(t)) })
}

func mustAuthor(t *testing.T, s *repositories.Store, name string) *models.Author {
	t.Helper()
	a := &models.Author{Username: name}
	require.NoError(t, s.Authors.Create(context.Background(), a))
	require.Greater(t, a.ID, 0)
	return a
}

func mustGroup(t *testing.T, s *repositories.Store, slug string) *models.Group {
	t.Helper()
	g := &models.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	require.NoError(t, s.Groups.Create(context.Background(), g))
	require.Greater(t, g.ID, 0)
	return g
}

func mustPost(t *testing.T, s *repositories.Store, author, group int, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{Text: "post text", AuthorID: author, GroupID: group, CreatedAt: at}
	require.NoError(t, s.Posts.Create(context.Background(), p))
	require.Greater(t, p.ID, 0)
	return p
}

func ids(posts []*models.Post) []int {
	out := make([]int, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func testAuthors(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")

	got, err := s.Authors.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	got, err = s.Authors.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	err = s.Authors.Create(ctx, &models.Author{Username: "alice"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	_, err = s.Authors.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = s.Authors.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, s.Authors.Delete(ctx, 9999), repositories.ErrNotFound)
}

func testGroups(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	news := mustGroup(t, s, "news")
	mustGroup(t, s, "art")

	got, err := s.Groups.GetBySlug(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, news.ID, got.ID)
	assert.Equal(t, "about news", got.Description)

	got, err = s.Groups.GetByID(ctx, news.ID)
	require.NoError(t, err)
	assert.Equal(t, "news", got.Slug)

	err = s.Groups.Create(ctx, &models.Group{Title: "x", Slug: "news", Description: "y"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	list, err := s.Groups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "art", list[0].Slug)

	_, err = s.Groups.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testPosts(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")
	bob := mustAuthor(t, s, "bob")
	news := mustGroup(t, s, "news")

	p1 := mustPost(t, s, alice.ID, news.ID, base)
	p2 := mustPost(t, s, bob.ID, 0, base.Add(time.Minute))
	p3 := mustPost(t, s, alice.ID, 0, base.Add(2*time.Minute))

	got, err := s.Posts.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, news.ID, got.GroupID)
	assert.True(t, base.Equal(got.CreatedAt))

	t.Run("filters", func(t *testing.T) {
		tests := []struct {
			name   string
			filter repositories.PostFilter
			want   []int
		}{
			{"all", repositories.PostFilter{}, []int{p3.ID, p2.ID, p1.ID}},
			{"by author", repositories.PostFilter{AuthorID: alice.ID}, []int{p3.ID, p1.ID}},
			{"by group", repositories.PostFilter{GroupID: news.ID}, []int{p1.ID}},
			{"by author set", repositories.PostFilter{AuthorIDs: []int{bob.ID}}, []int{p2.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				n, err := s.Posts.Count(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, len(tt.want), n)

				posts, err := s.Posts.List(ctx, tt.filter, 0, 0)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(posts))
			})
		}
	})

	t.Run("window", func(t *testing.T) {
		posts, err := s.Posts.List(ctx, repositories.PostFilter{}, 2, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{p2.ID, p1.ID}, ids(posts))

		posts, err = s.Posts.List(ctx, repositories.PostFilter{}, 2, 10)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("update", func(t *testing.T) {
		p2.Text = "edited"
		p2.GroupID = news.ID
		p2.Image = "posts/abc.png"
		require.NoError(t, s.Posts.Update(ctx, p2))

		got, err := s.Posts.GetByID(ctx, p2.ID)
		require.NoError(t, err)
		assert.Equal(t, "edited", got.Text)
		assert.Equal(t, news.ID, got.GroupID)
		assert.Equal(t, "posts/abc.png", got.Image)

		missing := &models.Post{ID: 9999, Text: "x", AuthorID: alice.ID, CreatedAt: base}
		assert.ErrorIs(t, s.Posts.Update(ctx, missing), repositories.ErrNotFound)

		p2.GroupID = 9999
		assert.ErrorIs(t, s.Posts.Update(ctx, p2), repositories.ErrInvalidReference)
	})

	t.Run("invalid references", func(t *testing.T) {
		err := s.Posts.Create(ctx, &models.Post{Text: "x", AuthorID: 9999, CreatedAt: base})
		assert.ErrorIs(t, err, repositories.ErrInvalidReference)

		err = s.Posts.Create(ctx, &models.Post{Text: "x", AuthorID: alice.ID, GroupID: 9999, CreatedAt: base})
		assert.ErrorIs(t, err, repositories.ErrInvalidReference)

		_, err = s.Posts.GetByID(ctx, 9999)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func testPostOrdering(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")

	first := mustPost(t, s, alice.ID, 0, base)
	second := mustPost(t, s, alice.ID, 0, base)
	older := mustPost(t, s, alice.ID, 0, base.Add(-time.Hour))

	posts, err := s.Posts.List(ctx, repositories.PostFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{second.ID, first.ID, older.ID}, ids(posts))
}

func testComments(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")
	post := mustPost(t, s, alice.ID, 0, base)
	other := mustPost(t, s, alice.ID, 0, base)

	c1 := &models.Comment{PostID: post.ID, AuthorID: alice.ID, Text: "first", CreatedAt: base}
	c2 := &models.Comment{PostID: post.ID, AuthorID: alice.ID, Text: "second", CreatedAt: base.Add(time.Second)}
	require.NoError(t, s.Comments.Create(ctx, c1))
	require.NoError(t, s.Comments.Create(ctx, c2))
	require.NoError(t, s.Comments.Create(ctx, &models.Comment{PostID: other.ID, AuthorID: alice.ID, Text: "elsewhere", CreatedAt: base}))

	comments, err := s.Comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].Text)
	assert.Equal(t, "first", comments[1].Text)

	comments, err = s.Comments.ListByPost(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, comments)

	err = s.Comments.Create(ctx, &models.Comment{PostID: 9999, AuthorID: alice.ID, Text: "x", CreatedAt: base})
	assert.ErrorIs(t, err, repositories.ErrInvalidReference)
}

func testFollows(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")
	bob := mustAuthor(t, s, "bob")
	carol := mustAuthor(t, s, "carol")

	require.NoError(t, s.Follows.Create(ctx, alice.ID, bob.ID))
	require.NoError(t, s.Follows.Create(ctx, alice.ID, bob.ID), "repeated follow is a no-op")
	require.NoError(t, s.Follows.Create(ctx, alice.ID, carol.ID))
	require.NoError(t, s.Follows.Create(ctx, carol.ID, bob.ID))

	ok, err := s.Follows.Exists(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Follows.Exists(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	following, err := s.Follows.Following(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{bob.ID, carol.ID}, following)

	followers, err := s.Follows.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{alice.ID, carol.ID}, followers)

	require.NoError(t, s.Follows.Delete(ctx, alice.ID, bob.ID))
	require.NoError(t, s.Follows.Delete(ctx, alice.ID, bob.ID), "deleting a missing edge is a no-op")
	followers, err = s.Follows.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{carol.ID}, followers)

	following, err = s.Follows.Following(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	assert.ErrorIs(t, s.Follows.Create(ctx, alice.ID, 9999), repositories.ErrInvalidReference)
}

func testAuthorCascade(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")
	bob := mustAuthor(t, s, "bob")

	alicePost := mustPost(t, s, alice.ID, 0, base)
	bobPost := mustPost(t, s, bob.ID, 0, base)
	require.NoError(t, s.Comments.Create(ctx, &models.Comment{PostID: alicePost.ID, AuthorID: bob.ID, Text: "on alice", CreatedAt: base}))
	require.NoError(t, s.Comments.Create(ctx, &models.Comment{PostID: bobPost.ID, AuthorID: alice.ID, Text: "by alice", CreatedAt: base}))
	require.NoError(t, s.Comments.Create(ctx, &models.Comment{PostID: bobPost.ID, AuthorID: bob.ID, Text: "by bob", CreatedAt: base}))
	require.NoError(t, s.Follows.Create(ctx, alice.ID, bob.ID))
	require.NoError(t, s.Follows.Create(ctx, bob.ID, alice.ID))

	require.NoError(t, s.Authors.Delete(ctx, alice.ID))

	_, err := s.Authors.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = s.Posts.GetByID(ctx, alicePost.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	comments, err := s.Comments.ListByPost(ctx, bobPost.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "by bob", comments[0].Text)

	followers, err := s.Follows.Followers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, followers)
	following, err := s.Follows.Following(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	// The username is free again.
	mustAuthor(t, s, "alice")
}

func testGroupDelete(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")
	news := mustGroup(t, s, "news")
	post := mustPost(t, s, alice.ID, news.ID, base)

	require.NoError(t, s.Groups.Delete(ctx, news.ID))

	got, err := s.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.GroupID)

	_, err = s.Groups.GetBySlug(ctx, "news")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, s.Groups.Delete(ctx, news.ID), repositories.ErrNotFound)
}

func testConcurrentWrites(t *testing.T, s *repositories.Store) {
	ctx := context.Background()
	alice := mustAuthor(t, s, "alice")
	target := mustPost(t, s, alice.ID, 0, base)

	const writers = 50
	var wg sync.WaitGroup
	errs := make(chan error, 3*writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &models.Post{Text: fmt.Sprintf("post %d", i), AuthorID: alice.ID, CreatedAt: base}
			errs <- s.Posts.Create(ctx, p)

			c := &models.Comment{PostID: target.ID, AuthorID: alice.ID, Text: fmt.Sprintf("comment %d", i), CreatedAt: base}
			errs <- s.Comments.Create(ctx, c)

			edit := *target
			edit.Text = fmt.Sprintf("edit %d", i)
			errs <- s.Posts.Update(ctx, &edit)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	posts, err := s.Posts.List(ctx, repositories.PostFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, posts, writers+1)
	seen := make(map[int]bool)
	for _, p := range posts {
		assert.False(t, seen[p.ID], "duplicate id %d", p.ID)
		seen[p.ID] = true
	}

	comments, err := s.Comments.ListByPost(ctx, target.ID)
	require.NoError(t, err)
	assert.Len(t, comments, writers)

	// One of the edits won.
	got, err := s.Posts.GetByID(ctx, target.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^edit \d+$`, got.Text)
}
