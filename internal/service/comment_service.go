package service

import (
	"context"
	"fmt"
	"strings"

	"social-network-api/internal/domain"
	"social-network-api/internal/repository"
)

// CommentInput carries the client writable fields of a comment. A nil Likes
// defaults to 0 on create and keeps the stored value on update.
type CommentInput struct {
	Content string
	Likes   *int
}

// CommentService manages comments nested under posts. Every operation
// resolves the post first so a missing post reports not found.
type CommentService interface {
	ListComments(ctx context.Context, postID int64) ([]domain.Comment, error)
	GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error)
	CreateComment(ctx context.Context, authorID, postID int64, in CommentInput) (*domain.Comment, error)
	OwnedComment(ctx context.Context, callerID, postID, commentID int64) (*domain.Comment, error)
	UpdateComment(ctx context.Context, callerID, postID, commentID int64, in CommentInput) (*domain.Comment, error)
	DeleteComment(ctx context.Context, callerID, postID, commentID int64) error
}

type commentService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
}

func NewCommentService(posts repository.PostRepository, comments repository.CommentRepository) CommentService {
	return &commentService{
		posts:    posts,
		comments: comments,
	}
}

func (s *commentService) ListComments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

func (s *commentService) GetComment(ctx context.Context, postID, commentID int64) (*domain.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	comment, err := s.comments.Get(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.PostID != postID {
		return nil, fmt.Errorf("comment %d on post %d: %w", commentID, postID, repository.ErrNotFound)
	}
	return comment, nil
}

func (s *commentService) CreateComment(ctx context.Context, authorID, postID int64, in CommentInput) (*domain.Comment, error) {
	if _, err := s.posts.Get(ctx, postID); err != nil {
		return nil, err
	}
	content, err := validateCommentInput(in)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}
	if in.Likes != nil {
		comment.Likes = *in.Likes
	}
	if _, err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.Get(ctx, comment.ID)
}

func (s *commentService) UpdateComment(ctx context.Context, callerID, postID, commentID int64, in CommentInput) (*domain.Comment, error) {
	comment, err := s.OwnedComment(ctx, callerID, postID, commentID)
	if err != nil {
		return nil, err
	}
	content, err := validateCommentInput(in)
	if err != nil {
		return nil, err
	}

	comment.Content = content
	if in.Likes != nil {
		comment.Likes = *in.Likes
	}
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.comments.Get(ctx, commentID)
}

func (s *commentService) DeleteComment(ctx context.Context, callerID, postID, commentID int64) error {
	if _, err := s.OwnedComment(ctx, callerID, postID, commentID); err != nil {
		return err
	}
	return s.comments.Delete(ctx, commentID)
}

func (s *commentService) OwnedComment(ctx context.Context, callerID, postID, commentID int64) (*domain.Comment, error) {
	comment, err := s.GetComment(ctx, postID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != callerID {
		return nil, ErrForbidden
	}
	return comment, nil
}

func validateCommentInput(in CommentInput) (string, error) {
	errs := fieldErrors{}
	if strings.TrimSpace(in.Content) == "" {
		errs.add("content", "This field is required.")
	}
	if in.Likes != nil && *in.Likes < 0 {
		errs.add("likes", "Ensure this value is greater than or equal to 0.")
	}
	return in.Content, errs.err()
}
