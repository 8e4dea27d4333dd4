package services

import (
	"inkwell/app/models"
	"inkwell/app/pagination"
)

// PostView is a post with the names a reader needs next to it.
type PostView struct {
	models.Post
	Author string `json:"author"`
	Group  string `json:"group,omitempty"`
}

// PostPage is one page of a feed.
type PostPage = pagination.Page[*PostView]

// GroupPage is a group with a page of its posts.
type GroupPage struct {
	Group *models.Group `json:"group"`
	Posts *PostPage     `json:"posts"`
}

// ProfilePage aggregates an author's page. Following is false for
// anonymous viewers.
type ProfilePage struct {
	Author         *models.Author `json:"author"`
	Posts          *PostPage      `json:"posts"`
	PostCount      int            `json:"post_count"`
	FollowerCount  int            `json:"follower_count"`
	FollowingCount int            `json:"following_count"`
	Following      bool           `json:"following"`
}

// PostDetail is a post with its author, group and comments, newest first.
type PostDetail struct {
	Post            *models.Post   `json:"post"`
	Author          *models.Author `json:"author"`
	Group           *models.Group  `json:"group,omitempty"`
	AuthorPostCount int            `json:"author_post_count"`
	Comments        []*CommentView `json:"comments"`
}

// CommentView is a comment with its author's username.
type CommentView struct {
	models.Comment
	Author string `json:"author"`
}
