package services

import (
	"context"
	"errors"
	"fmt"

	"inkwell/app/cache"
	"inkwell/app/media"
	"inkwell/app/models"
	"inkwell/app/monitoring"
	"inkwell/app/repositories"

	log "github.com/sirupsen/logrus"
)

// ImageStore persists uploaded images under relative paths. Save reports
// whether it wrote a new file.
type ImageStore interface {
	Save(data []byte) (rel string, created bool, err error)
	Remove(rel string) error
}

// PostInput is the submitted post form. GroupID 0 means no group and a nil
// Image means no upload.
type PostInput struct {
	Text    string
	GroupID int
	Image   []byte
}

// EditInput replaces a post's text and group. A nil Image keeps the current
// picture unless ClearImage is set.
type EditInput struct {
	PostInput
	ClearImage bool
}

// PostService handles business logic for blog posts and their comments
type PostService struct {
	store  *repositories.Store
	cache  cache.Cache
	images ImageStore
	now    Clock
}

// NewPostService creates a new PostService. images may be nil, in which case
// uploads are rejected; a nil clock uses SystemClock.
func NewPostService(store *repositories.Store, c cache.Cache, images ImageStore, clock Clock) *PostService {
	if c == nil {
		c = cache.Nop{}
	}
	if clock == nil {
		clock = SystemClock
	}
	return &PostService{store: store, cache: c, images: images, now: clock}
}

// CreatePost creates a new blog post owned by authorID and returns its id.
func (s *PostService) CreatePost(ctx context.Context, authorID int, in PostInput) (int, error) {
	post := &models.Post{
		Text:     in.Text,
		AuthorID: authorID,
		GroupID:  in.GroupID,
	}
	post.BeforeCreate(s.now())
	if err := post.Validate(); err != nil {
		return 0, invalid(err)
	}
	if err := s.checkGroup(ctx, post.GroupID); err != nil {
		return 0, err
	}
	var fresh string
	if in.Image != nil {
		rel, created, err := s.saveImage(in.Image)
		if err != nil {
			return 0, err
		}
		post.Image = rel
		if created {
			fresh = rel
		}
	}

	if err := s.store.Posts.Create(ctx, post); err != nil {
		s.discardImage(fresh)
		return 0, s.writeError(post, err)
	}

	monitoring.PostsCreated.Inc()
	log.WithFields(log.Fields{"post_id": post.ID, "author_id": post.AuthorID, "excerpt": post.Excerpt()}).Info("posts: created")
	s.invalidate(ctx, post.AuthorID, post.GroupID)
	return post.ID, nil
}

// EditPost overwrites text, group and image of a post owned by requesterID.
// The id and creation time never change.
func (s *PostService) EditPost(ctx context.Context, requesterID, postID int, in EditInput) (*models.Post, error) {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("post", postID)
	}
	if err != nil {
		return nil, err
	}
	if post.AuthorID != requesterID {
		return nil, ErrForbidden
	}

	oldGroup := post.GroupID
	post.Text = in.Text
	post.GroupID = in.GroupID
	if err := post.Validate(); err != nil {
		return nil, invalid(err)
	}
	if err := s.checkGroup(ctx, post.GroupID); err != nil {
		return nil, err
	}
	var fresh string
	switch {
	case in.Image != nil:
		rel, created, err := s.saveImage(in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = rel
		if created {
			fresh = rel
		}
	case in.ClearImage:
		post.Image = ""
	}

	if err := s.store.Posts.Update(ctx, post); err != nil {
		s.discardImage(fresh)
		return nil, s.writeError(post, err)
	}

	monitoring.PostsEdited.Inc()
	s.invalidate(ctx, post.AuthorID, oldGroup, post.GroupID)
	return post, nil
}

// CreateComment adds a comment by authorID under postID.
func (s *PostService) CreateComment(ctx context.Context, authorID, postID int, text string) (*models.Comment, error) {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("post", postID)
	}
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{AuthorID: authorID, Text: text}
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}
	comment.BeforeCreate(s.now())
	if err := comment.Validate(); err != nil {
		return nil, invalid(err)
	}

	err = s.store.Comments.Create(ctx, comment)
	if errors.Is(err, repositories.ErrInvalidReference) {
		return nil, fmt.Errorf("comment on post %d: %w", postID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	monitoring.CommentsCreated.Inc()
	return comment, nil
}

// GetPost retrieves a post with its author, group and comments.
func (s *PostService) GetPost(ctx context.Context, postID int) (*PostDetail, error) {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("post", postID)
	}
	if err != nil {
		return nil, err
	}

	author, err := s.store.Authors.GetByID(ctx, post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load author: %w", err)
	}
	detail := &PostDetail{Post: post, Author: author}

	if post.HasGroup() {
		group, err := s.store.Groups.GetByID(ctx, post.GroupID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load group: %w", err)
		}
		detail.Group = group
	}

	detail.AuthorPostCount, err = s.store.Posts.Count(ctx, repositories.PostFilter{AuthorID: author.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	comments, err := s.store.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	names := map[int]string{author.ID: author.Username}
	detail.Comments = make([]*CommentView, 0, len(comments))
	for _, c := range comments {
		name, ok := names[c.AuthorID]
		if !ok {
			a, err := s.store.Authors.GetByID(ctx, c.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("failed to load comment author: %w", err)
			}
			name = a.Username
			names[c.AuthorID] = name
		}
		detail.Comments = append(detail.Comments, &CommentView{Comment: *c, Author: name})
	}
	return detail, nil
}

func (s *PostService) checkGroup(ctx context.Context, groupID int) error {
	if groupID == 0 {
		return nil
	}
	_, err := s.store.Groups.GetByID(ctx, groupID)
	if errors.Is(err, repositories.ErrNotFound) {
		return fieldError("group", "select a valid choice; that group does not exist")
	}
	return err
}

func (s *PostService) saveImage(data []byte) (string, bool, error) {
	if s.images == nil {
		return "", false, fieldError("image", "image uploads are disabled")
	}
	rel, created, err := s.images.Save(data)
	if errors.Is(err, media.ErrNotImage) || errors.Is(err, media.ErrTooLarge) {
		return "", false, fieldError("image", err.Error())
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to store image: %w", err)
	}
	return rel, created, nil
}

// discardImage removes an upload whose post never got written. Files that
// existed before the request may belong to other posts and stay.
func (s *PostService) discardImage(rel string) {
	if rel == "" {
		return
	}
	if err := s.images.Remove(rel); err != nil {
		log.WithError(err).WithField("image", rel).Warn("posts: failed to remove orphaned image")
	}
}

// writeError maps a failed post write. The group was checked beforehand, so
// a dangling reference there means it was deleted in between.
func (s *PostService) writeError(post *models.Post, err error) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return notFound("post", post.ID)
	case errors.Is(err, repositories.ErrInvalidReference) && post.HasGroup():
		return fieldError("group", "select a valid choice; that group does not exist")
	case errors.Is(err, repositories.ErrInvalidReference):
		return fmt.Errorf("author %d: %w", post.AuthorID, ErrNotFound)
	default:
		return fmt.Errorf("failed to save post: %w", err)
	}
}

// invalidate drops every cached feed a post of authorID in groups appears in.
func (s *PostService) invalidate(ctx context.Context, authorID int, groups ...int) {
	scopes := []string{cache.ScopeAll, cache.AuthorScope(authorID)}
	seen := map[int]bool{}
	for _, g := range groups {
		if g > 0 && !seen[g] {
			seen[g] = true
			scopes = append(scopes, cache.GroupScope(g))
		}
	}

	followers, err := s.store.Follows.Followers(ctx, authorID)
	if err != nil {
		log.WithError(err).WithField("author_id", authorID).Warn("posts: follower lookup failed, clearing feed cache")
		s.cache.Clear(ctx)
		return
	}
	for _, f := range followers {
		scopes = append(scopes, cache.FollowScope(f))
	}
	s.cache.Invalidate(ctx, scopes...)
}
