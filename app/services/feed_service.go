package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"inkwell/app/cache"
	"inkwell/app/models"
	"inkwell/app/monitoring"
	"inkwell/app/pagination"
	"inkwell/app/repositories"

	log "github.com/sirupsen/logrus"
)

type scopeKind int

const (
	scopeAll scopeKind = iota
	scopeGroup
	scopeAuthor
	scopeFollowed
)

// Scope selects which posts populate a feed.
type Scope struct {
	kind     scopeKind
	slug     string
	username string
	viewerID int
}

// All is every post.
func All() Scope { return Scope{kind: scopeAll} }

// ByGroup is the posts filed under the group with slug.
func ByGroup(slug string) Scope { return Scope{kind: scopeGroup, slug: slug} }

// ByAuthor is the posts written by username.
func ByAuthor(username string) Scope { return Scope{kind: scopeAuthor, username: username} }

// FollowedFeed is the posts of every author viewerID follows.
func FollowedFeed(viewerID int) Scope { return Scope{kind: scopeFollowed, viewerID: viewerID} }

func (s Scope) String() string {
	switch s.kind {
	case scopeGroup:
		return "group " + s.slug
	case scopeAuthor:
		return "author " + s.username
	case scopeFollowed:
		return fmt.Sprintf("followed by %d", s.viewerID)
	default:
		return "all"
	}
}

// FeedService assembles paginated feeds. It only reads; with a cache
// configured pages are served from it and computed identically without one.
type FeedService struct {
	store     *repositories.Store
	cache     cache.Cache
	paginator pagination.Paginator
}

// NewFeedService creates a FeedService. A nil cache disables caching.
func NewFeedService(store *repositories.Store, c cache.Cache, p pagination.Paginator) *FeedService {
	if c == nil {
		c = cache.Nop{}
	}
	return &FeedService{store: store, cache: c, paginator: p}
}

// selection is a resolved scope.
type selection struct {
	filter     repositories.PostFilter
	cacheScope string
	// empty marks a followed feed with nobody followed.
	empty bool
}

// ListPosts returns page number of scope, newest first.
func (s *FeedService) ListPosts(ctx context.Context, scope Scope, number int) (*PostPage, error) {
	sel, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, sel, number)
}

// GroupFeed returns the group with slug and a page of its posts.
func (s *FeedService) GroupFeed(ctx context.Context, slug string, number int) (*GroupPage, error) {
	group, err := s.group(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, groupSelection(group), number)
	if err != nil {
		return nil, err
	}
	return &GroupPage{Group: group, Posts: page}, nil
}

// Profile aggregates the page of username as seen by viewerID (0 when anonymous).
func (s *FeedService) Profile(ctx context.Context, username string, viewerID, number int) (*ProfilePage, error) {
	author, err := s.author(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, authorSelection(author), number)
	if err != nil {
		return nil, err
	}

	followers, err := s.store.Follows.Followers(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := s.store.Follows.Following(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}

	profile := &ProfilePage{
		Author:         author,
		Posts:          page,
		PostCount:      page.Count,
		FollowerCount:  len(followers),
		FollowingCount: len(following),
	}
	if viewerID > 0 && viewerID != author.ID {
		profile.Following, err = s.store.Follows.Exists(ctx, viewerID, author.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow: %w", err)
		}
	}
	return profile, nil
}

func (s *FeedService) resolve(ctx context.Context, scope Scope) (selection, error) {
	switch scope.kind {
	case scopeGroup:
		group, err := s.group(ctx, scope.slug)
		if err != nil {
			return selection{}, err
		}
		return groupSelection(group), nil
	case scopeAuthor:
		author, err := s.author(ctx, scope.username)
		if err != nil {
			return selection{}, err
		}
		return authorSelection(author), nil
	case scopeFollowed:
		followed, err := s.store.Follows.Following(ctx, scope.viewerID)
		if err != nil {
			return selection{}, fmt.Errorf("failed to load followed authors: %w", err)
		}
		return selection{
			filter:     repositories.PostFilter{AuthorIDs: followed},
			cacheScope: cache.FollowScope(scope.viewerID),
			empty:      len(followed) == 0,
		}, nil
	default:
		return selection{cacheScope: cache.ScopeAll}, nil
	}
}

func groupSelection(g *models.Group) selection {
	return selection{filter: repositories.PostFilter{GroupID: g.ID}, cacheScope: cache.GroupScope(g.ID)}
}

func authorSelection(a *models.Author) selection {
	return selection{filter: repositories.PostFilter{AuthorID: a.ID}, cacheScope: cache.AuthorScope(a.ID)}
}

func (s *FeedService) group(ctx context.Context, slug string) (*models.Group, error) {
	group, err := s.store.Groups.GetBySlug(ctx, slug)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("group", slug)
	}
	return group, err
}

func (s *FeedService) author(ctx context.Context, username string) (*models.Author, error) {
	author, err := s.store.Authors.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("author", username)
	}
	return author, err
}

func (s *FeedService) page(ctx context.Context, sel selection, number int) (*PostPage, error) {
	if number < 1 {
		number = 1
	}
	key := s.cache.Versioned(ctx, sel.cacheScope, fmt.Sprintf("p=%d|n=%d", number, s.paginator.PerPage))
	if data, ok := s.cache.Get(ctx, key); ok {
		var page PostPage
		if err := json.Unmarshal(data, &page); err == nil {
			monitoring.FeedCache.WithLabelValues("hit").Inc()
			return &page, nil
		}
		log.WithField("key", key).Warn("feed: discarding unreadable cache entry")
	}
	monitoring.FeedCache.WithLabelValues("miss").Inc()

	page, err := s.compute(ctx, sel, number)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(page); err == nil {
		s.cache.Set(ctx, key, data)
	}
	return page, nil
}

func (s *FeedService) compute(ctx context.Context, sel selection, number int) (*PostPage, error) {
	count := 0
	if !sel.empty {
		var err error
		count, err = s.store.Posts.Count(ctx, sel.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count posts: %w", err)
		}
	}

	w, err := s.paginator.Resolve(count, number)
	if err != nil {
		return nil, err
	}

	var posts []*models.Post
	if count > 0 {
		posts, err = s.store.Posts.List(ctx, sel.filter, w.PerPage, w.Offset())
		if err != nil {
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
	}
	views, err := s.views(ctx, posts)
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(w, views)
	return &page, nil
}

// views attaches author and group names, looking each one up once per page.
func (s *FeedService) views(ctx context.Context, posts []*models.Post) ([]*PostView, error) {
	authors := map[int]string{}
	groups := map[int]string{}
	views := make([]*PostView, 0, len(posts))
	for _, post := range posts {
		name, ok := authors[post.AuthorID]
		if !ok {
			author, err := s.store.Authors.GetByID(ctx, post.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to load author %d: %w", post.AuthorID, err)
			}
			name = author.Username
			authors[post.AuthorID] = name
		}
		view := &PostView{Post: *post, Author: name}
		if post.HasGroup() {
			slug, ok := groups[post.GroupID]
			if !ok {
				group, err := s.store.Groups.GetByID(ctx, post.GroupID)
				if err != nil && !errors.Is(err, repositories.ErrNotFound) {
					return nil, fmt.Errorf("failed to load group %d: %w", post.GroupID, err)
				}
				if group != nil {
					slug = group.Slug
				}
				groups[post.GroupID] = slug
			}
			view.Group = slug
		}
		views = append(views, view)
	}
	return views, nil
}
