package repository

import (
	"context"

	"social-network-api/internal/domain"
)

// PostRepository persists posts together with their tag set. Create and
// Update write the post row and its tags in one transaction; Update only
// matches the row while its author is still post.AuthorID.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Update(ctx context.Context, post *domain.Post) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
}

// CommentRepository manages comments attached to posts.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	Update(ctx context.Context, comment *domain.Comment) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Comment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
}
