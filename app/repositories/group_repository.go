package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGroupRepository implements GroupRepository using BadgerDB
type BadgerGroupRepository struct {
	db *badger.DB
}

// NewBadgerGroupRepository creates a new BadgerGroupRepository
func NewBadgerGroupRepository(db *badger.DB) *BadgerGroupRepository {
	return &BadgerGroupRepository{db: db}
}

// Create stores a new group, failing with ErrDuplicate when the slug is taken.
func (r *BadgerGroupRepository) Create(ctx context.Context, group *models.Group) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		slugKey := []byte(GroupSlugKeyPrefix + group.Slug)
		if _, err := getIndex(txn, slugKey); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		id, err := getNextID(txn, GroupSeqKey)
		if err != nil {
			return err
		}
		group.ID = id

		if err := setEntity(txn, entityKey(GroupKeyPrefix, id), group); err != nil {
			return err
		}
		return setIndex(txn, slugKey, id)
	})
}

// GetByID retrieves a group by ID
func (r *BadgerGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	var group models.Group
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, entityKey(GroupKeyPrefix, id), &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetBySlug retrieves a group through the slug index.
func (r *BadgerGroupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := getIndex(txn, []byte(GroupSlugKeyPrefix+slug))
		if err != nil {
			return err
		}
		return getEntity(txn, entityKey(GroupKeyPrefix, id), &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// List returns all groups ordered by title.
func (r *BadgerGroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	var groups []*models.Group
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(GroupKeyPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var group models.Group
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &group)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal group: %w", err)
			}
			groups = append(groups, &group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Title < groups[j].Title
	})
	return groups, nil
}

// Delete removes the group. Its posts survive with no group.
func (r *BadgerGroupRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var group models.Group
		if err := getEntity(txn, entityKey(GroupKeyPrefix, id), &group); err != nil {
			return err
		}

		posts, err := scanPosts(txn, PostFilter{GroupID: id})
		if err != nil {
			return err
		}
		for _, post := range posts {
			post.GroupID = 0
			if err := setEntity(txn, entityKey(PostKeyPrefix, post.ID), post); err != nil {
				return err
			}
		}

		return deleteKeys(txn, [][]byte{
			entityKey(GroupKeyPrefix, id),
			[]byte(GroupSlugKeyPrefix + group.Slug),
		})
	})
}
