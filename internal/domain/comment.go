package domain

import "time"

// Comment belongs to exactly one post and one author.
type Comment struct {
	ID         int64
	PostID     int64
	AuthorID   int64
	AuthorName string
	Content    string
	Likes      int
	CreatedAt  time.Time
}
