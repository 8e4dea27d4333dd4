package repositories

import (
	"context"
	"errors"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAuthorRepository implements AuthorRepository using BadgerDB
type BadgerAuthorRepository struct {
	db *badger.DB
}

// NewBadgerAuthorRepository creates a new BadgerAuthorRepository
func NewBadgerAuthorRepository(db *badger.DB) *BadgerAuthorRepository {
	return &BadgerAuthorRepository{db: db}
}

// Create stores a new author, failing with ErrDuplicate when the username is taken.
func (r *BadgerAuthorRepository) Create(ctx context.Context, author *models.Author) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		nameKey := []byte(AuthorNameKeyPrefix + author.Username)
		if _, err := getIndex(txn, nameKey); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		id, err := getNextID(txn, AuthorSeqKey)
		if err != nil {
			return err
		}
		author.ID = id

		if err := setEntity(txn, entityKey(AuthorKeyPrefix, id), author); err != nil {
			return err
		}
		return setIndex(txn, nameKey, id)
	})
}

// GetByID retrieves an author by ID
func (r *BadgerAuthorRepository) GetByID(ctx context.Context, id int) (*models.Author, error) {
	var author models.Author
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(AuthorKeyPrefix, id), &author)
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// GetByUsername retrieves an author through the username index.
func (r *BadgerAuthorRepository) GetByUsername(ctx context.Context, username string) (*models.Author, error) {
	var author models.Author
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIndex(txn, []byte(AuthorNameKeyPrefix+username))
		if err != nil {
			return err
		}
		return getEntity(txn, entityKey(AuthorKeyPrefix, id), &author)
	})
	if err != nil {
		return nil, err
	}
	return &author, nil
}

// Delete removes the author together with their posts (and the comments on
// them), their own comments and every follow edge touching them.
func (r *BadgerAuthorRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var author models.Author
		if err := getEntity(txn, entityKey(AuthorKeyPrefix, id), &author); err != nil {
			return err
		}

		posts, err := scanPosts(txn, PostFilter{AuthorID: id})
		if err != nil {
			return err
		}
		var doomed [][]byte
		for _, post := range posts {
			doomed = append(doomed, entityKey(PostKeyPrefix, post.ID))
			keys, err := scanKeys(txn, prefixKey(CommentKeyPrefix, post.ID))
			if err != nil {
				return err
			}
			doomed = append(doomed, keys...)
		}

		comments, err := scanComments(txn, []byte(CommentKeyPrefix))
		if err != nil {
			return err
		}
		for _, c := range comments {
			if c.AuthorID == id {
				doomed = append(doomed, entityKey(CommentKeyPrefix, c.PostID, c.ID))
			}
		}

		// Outgoing edges and their reverse index entries.
		keys, err := scanKeys(txn, prefixKey(FollowKeyPrefix, id))
		if err != nil {
			return err
		}
		for _, key := range keys {
			followed, err := trailingID(key)
			if err != nil {
				return err
			}
			doomed = append(doomed, key, entityKey(FollowerKeyPrefix, followed, id))
		}

		// Incoming edges.
		keys, err = scanKeys(txn, prefixKey(FollowerKeyPrefix, id))
		if err != nil {
			return err
		}
		for _, key := range keys {
			follower, err := trailingID(key)
			if err != nil {
				return err
			}
			doomed = append(doomed, key, entityKey(FollowKeyPrefix, follower, id))
		}

		doomed = append(doomed,
			entityKey(AuthorKeyPrefix, id),
			[]byte(AuthorNameKeyPrefix+author.Username),
		)
		return deleteKeys(txn, doomed)
	})
}
