package domain

import "time"

// User represents an account that can author posts and comments.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Age          int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
