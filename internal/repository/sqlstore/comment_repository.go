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

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id {{pk}},
	post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	likes INTEGER NOT NULL DEFAULT 0,
	created_at {{timestamp}} NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

type commentRow struct {
	ID         int64     `db:"id"`
	PostID     int64     `db:"post_id"`
	AuthorID   int64     `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Content    string    `db:"content"`
	Likes      int       `db:"likes"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r commentRow) toDomain() domain.Comment {
	return domain.Comment{
		ID:         r.ID,
		PostID:     r.PostID,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		Content:    r.Content,
		Likes:      r.Likes,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type CommentRepository struct {
	db *DB
}

func NewCommentRepository(db *DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	if err := r.db.migrate(ctx, createCommentsTable); err != nil {
		return fmt.Errorf("create comments table: %w", err)
	}
	return nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (int64, error) {
	comment.CreatedAt = time.Now().UTC()

	query, args, err := r.db.builder.
		Insert("comments").
		Columns("post_id", "author_id", "content", "likes", "created_at").
		Values(comment.PostID, comment.AuthorID, comment.Content, comment.Likes, comment.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert comment: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&comment.ID); err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return comment.ID, nil
}

// Update rewrites content and likes; post and author never change.
func (r *CommentRepository) Update(ctx context.Context, comment *domain.Comment) error {
	res, err := execBuilt(ctx, r.db, r.db.builder.
		Update("comments").
		Set("content", comment.Content).
		Set("likes", comment.Likes).
		Where(sq.Eq{"id": comment.ID}))
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	return expectAffected(res, "comment")
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	res, err := execBuilt(ctx, r.db, r.db.builder.Delete("comments").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return expectAffected(res, "comment")
}

func (r *CommentRepository) Get(ctx context.Context, id int64) (*domain.Comment, error) {
	query, args, err := r.selectComments().Where(sq.Eq{"c.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get comment: %w", err)
	}

	var row commentRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("comment %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan comment: %w", err)
	}
	comment := row.toDomain()
	return &comment, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	query, args, err := r.selectComments().Where(sq.Eq{"c.post_id": postID}).OrderBy("c.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list comments: %w", err)
	}

	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}

	comments := make([]domain.Comment, len(rows))
	for i := range rows {
		comments[i] = rows[i].toDomain()
	}
	return comments, nil
}

func (r *CommentRepository) selectComments() sq.SelectBuilder {
	return r.db.builder.
		Select("c.id", "c.post_id", "c.author_id", "u.username AS author_name", "c.content", "c.likes", "c.created_at").
		From("comments c").
		Join("users u ON u.id = c.author_id")
}
