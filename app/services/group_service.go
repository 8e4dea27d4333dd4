package services

import (
	"context"
	"errors"
	"fmt"

	"inkwell/app/cache"
	"inkwell/app/models"
	"inkwell/app/repositories"
)

// GroupService manages groups from the command line.
type GroupService struct {
	store *repositories.Store
	cache cache.Cache
}

func NewGroupService(store *repositories.Store, c cache.Cache) *GroupService {
	if c == nil {
		c = cache.Nop{}
	}
	return &GroupService{store: store, cache: c}
}

// Create adds a group; the slug must be unused.
func (s *GroupService) Create(ctx context.Context, title, slug, description string) (*models.Group, error) {
	group := &models.Group{Title: title, Slug: slug, Description: description}
	if err := group.Validate(); err != nil {
		return nil, invalid(err)
	}
	err := s.store.Groups.Create(ctx, group)
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, fieldError("slug", "a group with this slug already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}
	return group, nil
}

func (s *GroupService) List(ctx context.Context) ([]*models.Group, error) {
	return s.store.Groups.List(ctx)
}

func (s *GroupService) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	group, err := s.store.Groups.GetBySlug(ctx, slug)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("group", slug)
	}
	return group, err
}

// Delete removes the group; its posts stay, without a group.
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	group, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.store.Groups.Delete(ctx, group.ID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	s.cache.Clear(ctx)
	return nil
}
