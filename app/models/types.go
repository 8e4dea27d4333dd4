package models

import "time"

// Author is a registered writer. Accounts are provisioned outside the blog,
// so an Author carries only what the feeds need.
type Author struct {
	ID       int    `json:"id"`
	Username string `json:"username" validate:"required,max=150"`
}

// Group is a named category posts may be filed under.
type Group struct {
	ID          int    `json:"id"`
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"required,max=50,slug"`
	Description string `json:"description" validate:"required"`
}

// Post represents a blog post. GroupID is zero when the post has no group and
// Image is empty when the post has no picture.
type Post struct {
	ID        int       `json:"id"`
	Text      string    `json:"text" validate:"required"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	GroupID   int       `json:"group_id,omitempty" validate:"gte=0"`
	Image     string    `json:"image,omitempty" validate:"max=255"`
}

// Comment represents a comment on a blog post.
type Comment struct {
	ID        int       `json:"id"`
	PostID    int       `json:"post_id" validate:"required,gt=0"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	Text      string    `json:"text" validate:"required"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Follow is a directed edge: Follower receives Followed's posts in their feed.
type Follow struct {
	FollowerID int `json:"follower_id"`
	FollowedID int `json:"followed_id"`
}
