package services

import (
	"context"
	"errors"
	"fmt"

	"inkwell/app/cache"
	"inkwell/app/models"
	"inkwell/app/repositories"
)

// AuthorService provisions authors. Accounts come from outside the blog, so
// this is driven by the command line only.
type AuthorService struct {
	store *repositories.Store
	cache cache.Cache
}

func NewAuthorService(store *repositories.Store, c cache.Cache) *AuthorService {
	if c == nil {
		c = cache.Nop{}
	}
	return &AuthorService{store: store, cache: c}
}

// Create registers username.
func (s *AuthorService) Create(ctx context.Context, username string) (*models.Author, error) {
	author := &models.Author{Username: username}
	if err := author.Validate(); err != nil {
		return nil, invalid(err)
	}
	err := s.store.Authors.Create(ctx, author)
	if errors.Is(err, repositories.ErrDuplicate) {
		return nil, fieldError("username", "a user with that username already exists")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}
	return author, nil
}

func (s *AuthorService) GetByUsername(ctx context.Context, username string) (*models.Author, error) {
	author, err := s.store.Authors.GetByUsername(ctx, username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, notFound("author", username)
	}
	return author, err
}

// Delete removes username with their posts, comments and follow edges.
func (s *AuthorService) Delete(ctx context.Context, username string) error {
	author, err := s.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.store.Authors.Delete(ctx, author.ID); err != nil {
		return fmt.Errorf("failed to delete author: %w", err)
	}
	s.cache.Clear(ctx)
	return nil
}
