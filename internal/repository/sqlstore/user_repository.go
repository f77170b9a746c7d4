package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"social-network-api/internal/domain"
	"social-network-api/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id {{pk}},
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	age INTEGER NOT NULL DEFAULT 0,
	created_at {{timestamp}} NOT NULL,
	updated_at {{timestamp}} NOT NULL
);
`

var userColumns = []string{"id", "username", "password_hash", "age", "created_at", "updated_at"}

type userRow struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	Age          int       `db:"age"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Age:          r.Age,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if err := r.db.migrate(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query, args, err := r.db.builder.
		Insert("users").
		Columns("username", "password_hash", "age", "created_at", "updated_at").
		Values(user.Username, user.PasswordHash, user.Age, user.CreatedAt, user.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert user: %w", err)
	}

	var id int64
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("user %q: %w", user.Username, repository.ErrDuplicate)
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	return id, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, sq.Eq{"username": username})
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	query, args, err := r.db.builder.Select(userColumns...).From("users").OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}

	var rows []userRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}

	users := make([]domain.User, len(rows))
	for i := range rows {
		users[i] = rows[i].toDomain()
	}
	return users, nil
}

func (r *UserRepository) getOne(ctx context.Context, where sq.Eq) (*domain.User, error) {
	query, args, err := r.db.builder.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get user: %w", err)
	}

	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user := row.toDomain()
	return &user, nil
}
