package repositories

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Store groups the repositories of one backend.
type Store struct {
	Authors  AuthorRepository
	Groups   GroupRepository
	Posts    PostRepository
	Comments CommentRepository
	Follows  FollowRepository

	closer func() error
}

// NewStore assembles a Store. closer may be nil.
func NewStore(authors AuthorRepository, groups GroupRepository, posts PostRepository,
	comments CommentRepository, follows FollowRepository, closer func() error) *Store {
	return &Store{
		Authors:  authors,
		Groups:   groups,
		Posts:    posts,
		Comments: comments,
		Follows:  follows,
		closer:   closer,
	}
}

// Close releases the backend.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// NewBadgerStore wires every repository to db. Closing the store closes db.
func NewBadgerStore(db *badger.DB) *Store {
	return NewStore(
		NewBadgerAuthorRepository(db),
		NewBadgerGroupRepository(db),
		NewBadgerPostRepository(db),
		NewBadgerCommentRepository(db),
		NewBadgerFollowRepository(db),
		db.Close,
	)
}

// OpenBadger opens the database at path, or an in-memory one when path is empty.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	opts = opts.
		WithLogger(nil).
		WithSyncWrites(false).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}
	return db, nil
}
