package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"social-network-api/internal/domain"
	"social-network-api/internal/repository"
)

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, password string, age int) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

type userService struct {
	users repository.UserRepository
	cost  int
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{
		users: users,
		cost:  bcrypt.DefaultCost,
	}
}

func (s *userService) Register(ctx context.Context, username, password string, age int) (*domain.User, error) {
	username = strings.TrimSpace(username)

	errs := fieldErrors{}
	if username == "" {
		errs.add("username", "This field is required.")
	} else if utf8.RuneCountInString(username) > MaxUsernameLength {
		errs.add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", MaxUsernameLength))
	}
	if strings.TrimSpace(password) == "" {
		errs.add("password", "This field is required.")
	}
	if age < 0 {
		errs.add("age", "Ensure this value is greater than or equal to 0.")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Age:          age,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = *sanitizeUser(&users[i])
	}
	return users, nil
}

// sanitizeUser drops the password hash so it can never reach a response.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Age:       user.Age,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
