package http

import (
	"context"
	"time"

	"social-network-api/internal/auth"
	"social-network-api/internal/domain"
)

type UserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Age       int    `json:"age"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type PostResponse struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      int64    `json:"author"`
	AuthorName  string   `json:"author_name"`
	Tags        []string `json:"tags"`
	ImageURL    *string  `json:"imageUrl"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type CommentResponse struct {
	ID         int64  `json:"id"`
	Post       int64  `json:"post"`
	Author     int64  `json:"author"`
	AuthorName string `json:"author_name"`
	Content    string `json:"content"`
	Likes      int    `json:"likes"`
	CreatedAt  string `json:"created_at"`
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessTokenResponse struct {
	Access string `json:"access"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Age:       user.Age,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

// postToResponse resolves stored image references into fetchable URLs. A
// reference that cannot be resolved is returned unchanged.
func (h *Handler) postToResponse(ctx context.Context, post domain.Post) PostResponse {
	resp := PostResponse{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Author:      post.AuthorID,
		AuthorName:  post.AuthorName,
		Tags:        post.Tags,
		CreatedAt:   post.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   post.UpdatedAt.Format(time.RFC3339),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if post.ImageURL != nil {
		url, err := h.images.URL(ctx, *post.ImageURL)
		if err != nil {
			h.logger.WithError(err).WithField("post_id", post.ID).Warn("resolve image url")
			url = *post.ImageURL
		}
		resp.ImageURL = &url
	}
	return resp
}

func commentToResponse(comment domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         comment.ID,
		Post:       comment.PostID,
		Author:     comment.AuthorID,
		AuthorName: comment.AuthorName,
		Content:    comment.Content,
		Likes:      comment.Likes,
		CreatedAt:  comment.CreatedAt.Format(time.RFC3339),
	}
}

func pairToResponse(pair auth.Pair) TokenPairResponse {
	return TokenPairResponse{
		Access:  pair.Access,
		Refresh: pair.Refresh,
	}
}
