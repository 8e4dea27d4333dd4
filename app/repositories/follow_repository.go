package repositories

import (
	"context"
	"errors"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerFollowRepository implements FollowRepository using BadgerDB.
// Each edge is written twice: follow:<a>:<b> holds the edge and
// followed_by:<b>:<a> is the reverse index used to find followers.
type BadgerFollowRepository struct {
	db *badger.DB
}

// NewBadgerFollowRepository creates a new BadgerFollowRepository
func NewBadgerFollowRepository(db *badger.DB) *BadgerFollowRepository {
	return &BadgerFollowRepository{db: db}
}

func (r *BadgerFollowRepository) Create(ctx context.Context, followerID, followedID int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if err := requireKey(txn, entityKey(AuthorKeyPrefix, followerID)); err != nil {
			return err
		}
		if err := requireKey(txn, entityKey(AuthorKeyPrefix, followedID)); err != nil {
			return err
		}
		edge := models.Follow{FollowerID: followerID, FollowedID: followedID}
		if err := setEntity(txn, entityKey(FollowKeyPrefix, followerID, followedID), edge); err != nil {
			return err
		}
		return txn.Set(entityKey(FollowerKeyPrefix, followedID, followerID), []byte{})
	})
}

// Delete removes the edge if present.
func (r *BadgerFollowRepository) Delete(ctx context.Context, followerID, followedID int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return deleteKeys(txn, [][]byte{
			entityKey(FollowKeyPrefix, followerID, followedID),
			entityKey(FollowerKeyPrefix, followedID, followerID),
		})
	})
}

func (r *BadgerFollowRepository) Exists(ctx context.Context, followerID, followedID int) (bool, error) {
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(entityKey(FollowKeyPrefix, followerID, followedID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return found, err
}

// Following returns the ids followerID follows, ascending.
func (r *BadgerFollowRepository) Following(ctx context.Context, followerID int) ([]int, error) {
	return r.edgeIDs(prefixKey(FollowKeyPrefix, followerID))
}

// Followers returns the ids following followedID, ascending.
func (r *BadgerFollowRepository) Followers(ctx context.Context, followedID int) ([]int, error) {
	return r.edgeIDs(prefixKey(FollowerKeyPrefix, followedID))
}

func (r *BadgerFollowRepository) edgeIDs(prefix []byte) ([]int, error) {
	ids := []int{}
	err := r.db.View(func(txn *badger.Txn) error {
		keys, err := scanKeys(txn, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			id, err := trailingID(key)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
