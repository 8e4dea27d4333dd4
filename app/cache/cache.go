// Package cache holds rendered feed pages. Entries belong to a scope; bumping
// a scope's generation makes every entry stored under the old one unreachable.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	KindMemory = "memory"
	KindRedis  = "redis"
	KindNone   = "none"

	// ScopeAll holds pages of the unfiltered feed.
	ScopeAll = "all"
)

func GroupScope(groupID int) string   { return "group:" + strconv.Itoa(groupID) }
func AuthorScope(authorID int) string { return "author:" + strconv.Itoa(authorID) }

// FollowScope holds pages of the followed feed of viewerID.
func FollowScope(viewerID int) string { return "follow:" + strconv.Itoa(viewerID) }

// Cache is a best-effort store: backend failures read as misses.
//
// Callers resolve the key with Versioned before reading the data it caches
// and store under that same key, so a page computed before an invalidation
// never becomes visible after it.
type Cache interface {
	Versioned(ctx context.Context, scope, key string) string
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Invalidate(ctx context.Context, scopes ...string)
	Clear(ctx context.Context)
	Close() error
}

// Options selects and sizes a backend.
type Options struct {
	Kind      string
	TTL       time.Duration
	MaxCost   int64
	RedisAddr string
}

// New builds the backend named by opts.Kind.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Kind {
	case KindMemory, "":
		return NewMemory(opts.MaxCost, opts.TTL)
	case KindRedis:
		client, err := Dial(ctx, opts.RedisAddr)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, opts.TTL), nil
	case KindNone:
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q", opts.Kind)
	}
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Versioned(_ context.Context, scope, key string) string { return scope + "|" + key }
func (Nop) Get(context.Context, string) ([]byte, bool)            { return nil, false }
func (Nop) Set(context.Context, string, []byte)                   {}
func (Nop) Invalidate(context.Context, ...string)                 {}
func (Nop) Clear(context.Context)                                 {}
func (Nop) Close() error                                          { return nil }
