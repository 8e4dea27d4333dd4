package services

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"inkwell/app/cache"
	"inkwell/app/media"
	"inkwell/app/models"
	"inkwell/app/pagination"
	"inkwell/app/repositories"

	"github.com/stretchr/testify/require"
)

// stepClock advances one second per reading so creation order is time order.
type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type fixture struct {
	ctx     context.Context
	store   *repositories.Store
	cache   cache.Cache
	clock   *stepClock
	feed    *FeedService
	follows *FollowService
	posts   *PostService
	authors *AuthorService
	groups  *GroupService
	images  *media.FileStore
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	perPage int
	strict  bool
	cache   bool
	step    time.Duration
}

func withStrict() fixtureOption       { return func(c *fixtureConfig) { c.strict = true } }
func withCache() fixtureOption        { return func(c *fixtureConfig) { c.cache = true } }
func withFrozenClock() fixtureOption  { return func(c *fixtureConfig) { c.step = 0 } }
func withPerPage(n int) fixtureOption { return func(c *fixtureConfig) { c.perPage = n } }

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{perPage: 10, step: time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := repositories.OpenBadger("")
	require.NoError(t, err)
	store := repositories.NewBadgerStore(db)
	t.Cleanup(func() { store.Close() })

	var c cache.Cache = cache.Nop{}
	if cfg.cache {
		mem, err := cache.NewMemory(0, time.Minute)
		require.NoError(t, err)
		t.Cleanup(func() { mem.Close() })
		c = mem
	}

	images, err := media.NewFileStore(t.TempDir())
	require.NoError(t, err)

	clock := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: cfg.step}
	return &fixture{
		ctx:     context.Background(),
		store:   store,
		cache:   c,
		clock:   clock,
		feed:    NewFeedService(store, c, pagination.New(cfg.perPage, cfg.strict)),
		follows: NewFollowService(store, c),
		posts:   NewPostService(store, c, images, clock.Now),
		authors: NewAuthorService(store, c),
		groups:  NewGroupService(store, c),
		images:  images,
	}
}

func (f *fixture) author(t *testing.T, name string) *models.Author {
	t.Helper()
	a, err := f.authors.Create(f.ctx, name)
	require.NoError(t, err)
	return a
}

func (f *fixture) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	g, err := f.groups.Create(f.ctx, "Group "+slug, slug, "all about "+slug)
	require.NoError(t, err)
	return g
}

func (f *fixture) post(t *testing.T, authorID int, text string, groupID int) int {
	t.Helper()
	id, err := f.posts.CreatePost(f.ctx, authorID, PostInput{Text: text, GroupID: groupID})
	require.NoError(t, err)
	return id
}

func postIDs(page *PostPage) []int {
	ids := make([]int, 0, len(page.Items))
	for _, v := range page.Items {
		ids = append(ids, v.ID)
	}
	return ids
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}
