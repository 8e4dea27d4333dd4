package repositories

import (
	"context"
	"errors"

	"inkwell/app/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique attribute (username, slug) is taken.
	ErrDuplicate = errors.New("record already exists")
	// ErrInvalidReference is returned when a write points at a missing record.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// PostFilter selects the posts of a feed. Zero fields do not restrict.
// A non-empty AuthorIDs keeps only posts written by one of those authors.
type PostFilter struct {
	AuthorID  int
	GroupID   int
	AuthorIDs []int
}

// Matches reports whether post passes the filter.
func (f PostFilter) Matches(post *models.Post) bool {
	if f.AuthorID > 0 && post.AuthorID != f.AuthorID {
		return false
	}
	if f.GroupID > 0 && post.GroupID != f.GroupID {
		return false
	}
	if len(f.AuthorIDs) > 0 {
		for _, id := range f.AuthorIDs {
			if post.AuthorID == id {
				return true
			}
		}
		return false
	}
	return true
}

// AuthorRepository defines the interface for author data access.
// Delete removes the author's posts, comments and follow edges with it.
type AuthorRepository interface {
	Create(ctx context.Context, author *models.Author) error
	GetByID(ctx context.Context, id int) (*models.Author, error)
	GetByUsername(ctx context.Context, username string) (*models.Author, error)
	Delete(ctx context.Context, id int) error
}

// GroupRepository defines the interface for group data access.
// Delete clears the group reference of every post filed under it.
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	List(ctx context.Context) ([]*models.Group, error)
	Delete(ctx context.Context, id int) error
}

// PostRepository defines the interface for post data access.
// List returns posts newest first, ties broken by the most recently inserted.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Count(ctx context.Context, filter PostFilter) (int, error)
	List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error)
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID int) ([]*models.Comment, error)
}

// FollowRepository stores follow edges. At most one edge exists per
// (follower, followed) pair, so Create is idempotent.
type FollowRepository interface {
	Create(ctx context.Context, followerID, followedID int) error
	Delete(ctx context.Context, followerID, followedID int) error
	Exists(ctx context.Context, followerID, followedID int) (bool, error)
	Following(ctx context.Context, followerID int) ([]int, error)
	Followers(ctx context.Context, followedID int) ([]int, error)
}
