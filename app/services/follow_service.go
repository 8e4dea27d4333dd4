package services

import (
	"context"
	"errors"
	"fmt"

	"inkwell/app/cache"
	"inkwell/app/models"
	"inkwell/app/monitoring"
	"inkwell/app/repositories"
)

// FollowService maintains follow edges. There is at most one edge per pair.
type FollowService struct {
	store *repositories.Store
	cache cache.Cache
}

// NewFollowService creates a FollowService. A nil cache disables invalidation.
func NewFollowService(store *repositories.Store, c cache.Cache) *FollowService {
	if c == nil {
		c = cache.Nop{}
	}
	return &FollowService{store: store, cache: c}
}

// Follow makes followerID receive followedID's posts. Following twice is a no-op.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID int) error {
	if (models.Follow{FollowerID: followerID, FollowedID: followedID}).IsSelf() {
		return fieldError("author", "you cannot follow yourself")
	}
	err := s.store.Follows.Create(ctx, followerID, followedID)
	if errors.Is(err, repositories.ErrInvalidReference) {
		return fmt.Errorf("follow %d -> %d: %w", followerID, followedID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}
	monitoring.FollowActions.WithLabelValues("follow").Inc()
	s.cache.Invalidate(ctx, cache.FollowScope(followerID))
	return nil
}

// Unfollow removes the edge; it is a no-op when none exists.
func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID int) error {
	if err := s.store.Follows.Delete(ctx, followerID, followedID); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	monitoring.FollowActions.WithLabelValues("unfollow").Inc()
	s.cache.Invalidate(ctx, cache.FollowScope(followerID))
	return nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followedID int) (bool, error) {
	return s.store.Follows.Exists(ctx, followerID, followedID)
}

// Following returns the ids of the authors followerID follows.
func (s *FollowService) Following(ctx context.Context, followerID int) ([]int, error) {
	return s.store.Follows.Following(ctx, followerID)
}

// FollowUsername follows the author named username.
func (s *FollowService) FollowUsername(ctx context.Context, followerID int, username string) error {
	followed, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	return s.Follow(ctx, followerID, followed.ID)
}

// UnfollowUsername unfollows the author named username.
func (s *FollowService) UnfollowUsername(ctx context.Context, followerID int, username string) error {
	followed, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	return s.Unfollow(ctx, followerID, followed.ID)
}

func (s *FollowService) lookup(ctx context.Context, username string) (*models.Author, error) {
	author, err := s.store.Authors.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("author", username)
	}
	return author, err
}
