package repositories

import (
	"context"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create creates a new comment under an existing post.
func (r *BadgerCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if err := requireKey(txn, entityKey(PostKeyPrefix, comment.PostID)); err != nil {
			return err
		}
		if err := requireKey(txn, entityKey(AuthorKeyPrefix, comment.AuthorID)); err != nil {
			return err
		}

		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		return setEntity(txn, entityKey(CommentKeyPrefix, comment.PostID, id), comment)
	})
}

// ListByPost retrieves all comments for a post, newest first.
func (r *BadgerCommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		comments, err = scanComments(txn, prefixKey(CommentKeyPrefix, postID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	SortComments(comments)
	return comments, nil
}
