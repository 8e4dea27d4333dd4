package repositories

import (
	"context"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create creates a new post. The author and the group, when set, must exist
// at commit time.
func (r *BadgerPostRepository) Create(ctx context.Context, post *models.Post) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if err := checkPostRefs(txn, post); err != nil {
			return err
		}

		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		return setEntity(txn, entityKey(PostKeyPrefix, id), post)
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(PostKeyPrefix, id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Update overwrites an existing post.
func (r *BadgerPostRepository) Update(ctx context.Context, post *models.Post) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		key := entityKey(PostKeyPrefix, post.ID)
		var current models.Post
		if err := getEntity(txn, key, &current); err != nil {
			return err
		}
		if err := checkPostRefs(txn, post); err != nil {
			return err
		}
		return setEntity(txn, key, post)
	})
}

// Count returns the number of posts passing filter.
func (r *BadgerPostRepository) Count(ctx context.Context, filter PostFilter) (int, error) {
	var n int
	err := r.db.View(func(txn *badger.Txn) error {
		posts, err := scanPosts(txn, filter)
		n = len(posts)
		return err
	})
	return n, err
}

// List returns a window of the filtered posts, newest first. A non-positive
// limit returns everything from offset on.
func (r *BadgerPostRepository) List(ctx context.Context, filter PostFilter, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		posts, err = scanPosts(txn, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	SortPosts(posts)
	if offset < 0 {
		offset = 0
	}
	if offset >= len(posts) {
		return []*models.Post{}, nil
	}
	end := len(posts)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return posts[offset:end], nil
}

func checkPostRefs(txn *badger.Txn, post *models.Post) error {
	if err := requireKey(txn, entityKey(AuthorKeyPrefix, post.AuthorID)); err != nil {
		return err
	}
	if post.HasGroup() {
		return requireKey(txn, entityKey(GroupKeyPrefix, post.GroupID))
	}
	return nil
}
