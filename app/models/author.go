package models

import "strings"

// Validate checks the author's username.
func (a *Author) Validate() error {
	a.Username = strings.TrimSpace(a.Username)
	return validate.Struct(a)
}

// Validate checks the group fields; the slug is immutable once stored.
func (g *Group) Validate() error {
	g.Title = strings.TrimSpace(g.Title)
	g.Slug = strings.TrimSpace(g.Slug)
	g.Description = strings.TrimSpace(g.Description)
	return validate.Struct(g)
}

// IsSelf reports whether the edge points back at its follower.
func (f Follow) IsSelf() bool {
	return f.FollowerID == f.FollowedID
}
