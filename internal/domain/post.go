package domain

import "time"

// Post is a user authored entry carrying an ordered set of tag names.
type Post struct {
	ID          int64
	Title       string
	Description string
	AuthorID    int64
	AuthorName  string
	Tags        []string
	ImageURL    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Tag is shared across posts and unique by name.
type Tag struct {
	ID   int64
	Name string
}
