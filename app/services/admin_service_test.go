package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorService(t *testing.T) {
	f := newFixture(t)

	alice, err := f.authors.Create(f.ctx, "  alice ")
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Username)

	_, err = f.authors.Create(f.ctx, "alice")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "username")

	_, err = f.authors.Create(f.ctx, "")
	require.ErrorAs(t, err, &verr)

	assert.ErrorIs(t, f.authors.Delete(f.ctx, "nobody"), ErrNotFound)
}

func TestDeleteAuthorCascades(t *testing.T) {
	f := newFixture(t, withCache())
	alice := f.author(t, "alice")
	bob := f.author(t, "bob")
	alicePost := f.post(t, alice.ID, "by alice", 0)
	bobPost := f.post(t, bob.ID, "by bob", 0)
	_, err := f.posts.CreateComment(f.ctx, alice.ID, bobPost, "alice was here")
	require.NoError(t, err)
	require.NoError(t, f.follows.Follow(f.ctx, bob.ID, alice.ID))

	page, err := f.feed.ListPosts(f.ctx, All(), 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	require.NoError(t, f.authors.Delete(f.ctx, "alice"))

	_, err = f.posts.GetPost(f.ctx, alicePost)
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := f.posts.GetPost(f.ctx, bobPost)
	require.NoError(t, err)
	assert.Empty(t, detail.Comments)

	following, err := f.follows.Following(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, following)

	page, err = f.feed.ListPosts(f.ctx, All(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{bobPost}, postIDs(page))
}

func TestGroupService(t *testing.T) {
	f := newFixture(t)
	f.group(t, "news")

	_, err := f.groups.Create(f.ctx, "Other", "news", "dup")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "slug")

	_, err = f.groups.Create(f.ctx, "Bad", "bad slug", "d")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "slug")

	groups, err := f.groups.List(f.ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 1)
}

func TestDeleteGroupKeepsPosts(t *testing.T) {
	f := newFixture(t)
	alice := f.author(t, "alice")
	news := f.group(t, "news")
	id := f.post(t, alice.ID, "survivor", news.ID)

	require.NoError(t, f.groups.Delete(f.ctx, "news"))

	detail, err := f.posts.GetPost(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "survivor", detail.Post.Text)
	assert.Zero(t, detail.Post.GroupID)
	assert.Nil(t, detail.Group)

	_, err = f.feed.ListPosts(f.ctx, ByGroup("news"), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.groups.Delete(f.ctx, "news"), ErrNotFound)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"text": "required", "group": "bad"}}
	assert.Equal(t, "validation failed: group: bad; text: required", err.Error())
}
