package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"social-network-api/internal/domain"
	"social-network-api/internal/repository"
)

const (
	MaxUsernameLength = 150
	MaxTitleLength    = 200
	MaxTagLength      = 50
	MaxImageURLLength = 255
)

// PostInput carries the client writable fields of a post. Updates replace
// every field, so a nil Tags clears the tag set.
type PostInput struct {
	Title       string
	Description string
	Tags        []string
	ImageURL    *string
}

// PostService coordinates post level operations backed by repositories.
type PostService interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	GetPost(ctx context.Context, id int64) (*domain.Post, error)
	CreatePost(ctx context.Context, authorID int64, in PostInput) (*domain.Post, error)
	// OwnedPost returns the post when callerID authored it, ErrForbidden
	// otherwise.
	OwnedPost(ctx context.Context, callerID, id int64) (*domain.Post, error)
	UpdatePost(ctx context.Context, callerID, id int64, in PostInput) (*domain.Post, error)
	DeletePost(ctx context.Context, callerID, id int64) (*domain.Post, error)
}

type postService struct {
	posts repository.PostRepository
}

func NewPostService(posts repository.PostRepository) PostService {
	return &postService{posts: posts}
}

func (s *postService) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return s.posts.List(ctx)
}

func (s *postService) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	return s.posts.Get(ctx, id)
}

func (s *postService) CreatePost(ctx context.Context, authorID int64, in PostInput) (*domain.Post, error) {
	in, err := normalizePostInput(in)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title:       in.Title,
		Description: in.Description,
		AuthorID:    authorID,
		Tags:        in.Tags,
		ImageURL:    in.ImageURL,
	}
	if _, err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, post.ID)
}

func (s *postService) UpdatePost(ctx context.Context, callerID, id int64, in PostInput) (*domain.Post, error) {
	post, err := s.OwnedPost(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	in, err = normalizePostInput(in)
	if err != nil {
		return nil, err
	}

	post.Title = in.Title
	post.Description = in.Description
	post.Tags = in.Tags
	post.ImageURL = in.ImageURL
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.posts.Get(ctx, id)
}

// DeletePost removes the post with its comments and returns what was deleted.
func (s *postService) DeletePost(ctx context.Context, callerID, id int64) (*domain.Post, error) {
	post, err := s.OwnedPost(ctx, callerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) OwnedPost(ctx context.Context, callerID, id int64) (*domain.Post, error) {
	post, err := s.posts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != callerID {
		return nil, ErrForbidden
	}
	return post, nil
}

func normalizePostInput(in PostInput) (PostInput, error) {
	errs := fieldErrors{}

	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		errs.add("title", "This field is required.")
	} else if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		errs.add("title", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxTitleLength))
	}
	if strings.TrimSpace(in.Description) == "" {
		errs.add("description", "This field is required.")
	}

	if in.ImageURL != nil {
		v := strings.TrimSpace(*in.ImageURL)
		switch {
		case v == "":
			in.ImageURL = nil
		case utf8.RuneCountInString(v) > MaxImageURLLength:
			errs.add("imageUrl", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxImageURLLength))
		default:
			in.ImageURL = &v
		}
	}

	tags := make([]string, 0, len(in.Tags))
	seen := make(map[string]struct{}, len(in.Tags))
	for _, tag := range in.Tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			errs.add("tags", "Tag names may not be blank.")
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			errs.add("tags", fmt.Sprintf("Ensure each tag has no more than %d characters.", MaxTagLength))
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	in.Tags = tags

	return in, errs.err()
}
