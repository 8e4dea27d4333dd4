package repositories

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"inkwell/app/models"

	"github.com/dgraph-io/badger/v4"
)

const (
	// Key prefixes for different entity types
	AuthorKeyPrefix     = "author:"
	AuthorNameKeyPrefix = "author_name:"
	GroupKeyPrefix      = "group:"
	GroupSlugKeyPrefix  = "group_slug:"
	PostKeyPrefix       = "post:"
	CommentKeyPrefix    = "comment:"     // comment:<post>:<comment>
	FollowKeyPrefix     = "follow:"      // follow:<follower>:<followed>
	FollowerKeyPrefix   = "followed_by:" // followed_by:<followed>:<follower>

	// Sequence keys for auto-incrementing IDs
	AuthorSeqKey  = "seq:author"
	GroupSeqKey   = "seq:group"
	PostSeqKey    = "seq:post"
	CommentSeqKey = "seq:comment"
)

// entityKey builds prefix + zero-padded ids so prefix iteration yields id order.
func entityKey(prefix string, ids ...int) []byte {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%010d", id)
	}
	return []byte(prefix + strings.Join(parts, ":"))
}

// prefixKey is entityKey with a trailing separator, for scanning children.
func prefixKey(prefix string, ids ...int) []byte {
	return append(entityKey(prefix, ids...), ':')
}

// trailingID parses the id after the last separator of a key.
func trailingID(key []byte) (int, error) {
	s := string(key)
	i := strings.LastIndexByte(s, ':')
	id, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed key %q: %w", s, err)
	}
	return id, nil
}

// update runs fn in a read-write transaction and reruns it from scratch
// while the commit loses to a concurrent writer, so each mutation either
// lands whole or fails for a reason of its own. fn must not carry state
// across attempts.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for {
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id uint64
	item, err := txn.Get([]byte(seqKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		id = 1
	} else if err != nil {
		return 0, fmt.Errorf("failed to get sequence: %w", err)
	} else {
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence %s", seqKey)
			}
			id = binary.BigEndian.Uint64(val) + 1
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := txn.Set([]byte(seqKey), buf); err != nil {
		return 0, fmt.Errorf("failed to update sequence: %w", err)
	}

	return int(id), nil
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

func setEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	data, err := marshalEntity(entity)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// requireKey fails with ErrInvalidReference when key is absent.
func requireKey(txn *badger.Txn, key []byte) error {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, ErrInvalidReference)
	}
	return err
}

// getIndex reads an id stored as the value of a secondary index key.
func getIndex(txn *badger.Txn, key []byte) (int, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var id int
	err = item.Value(func(val []byte) error {
		id, err = strconv.Atoi(string(val))
		return err
	})
	return id, err
}

func setIndex(txn *badger.Txn, key []byte, id int) error {
	return txn.Set(key, []byte(strconv.Itoa(id)))
}

// scanKeys returns copies of all keys under prefix. The iterator is closed
// before returning, so callers may write in the same transaction.
func scanKeys(txn *badger.Txn, prefix []byte) ([][]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys, nil
}

// scanPosts loads every post under the post prefix that passes filter.
func scanPosts(txn *badger.Txn, filter PostFilter) ([]*models.Post, error) {
	opts := badger.DefaultIteratorOptions
	prefix := []byte(PostKeyPrefix)
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var posts []*models.Post
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var post models.Post
		err := it.Item().Value(func(val []byte) error {
			return unmarshalEntity(val, &post)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal post: %w", err)
		}
		if filter.Matches(&post) {
			posts = append(posts, &post)
		}
	}
	return posts, nil
}

// scanComments loads every comment under prefix.
func scanComments(txn *badger.Txn, prefix []byte) ([]*models.Comment, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var comments []*models.Comment
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var comment models.Comment
		err := it.Item().Value(func(val []byte) error {
			return unmarshalEntity(val, &comment)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal comment: %w", err)
		}
		comments = append(comments, &comment)
	}
	return comments, nil
}

func deleteKeys(txn *badger.Txn, keys [][]byte) error {
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// SortPosts orders posts newest first; equal timestamps put the later
// insertion (higher id) first.
func SortPosts(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
}

// SortComments applies the post ordering rule to comments.
func SortComments(comments []*models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
}
