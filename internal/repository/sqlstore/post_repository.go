package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"social-network-api/internal/domain"
	"social-network-api/internal/repository"
)

const createPostsTables = `
CREATE TABLE IF NOT EXISTS posts (
	id {{pk}},
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	author_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	image_url TEXT NULL,
	created_at {{timestamp}} NOT NULL,
	updated_at {{timestamp}} NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);
CREATE TABLE IF NOT EXISTS tags (
	id {{pk}},
	name TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS post_tags (
	post_id BIGINT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (post_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_post_tags_tag_id ON post_tags(tag_id);
`

type postRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	AuthorID    int64          `db:"author_id"`
	AuthorName  string         `db:"author_name"`
	ImageURL    sql.NullString `db:"image_url"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (r postRow) toDomain() domain.Post {
	post := domain.Post{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		AuthorID:    r.AuthorID,
		AuthorName:  r.AuthorName,
		Tags:        []string{},
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.ImageURL.Valid {
		v := r.ImageURL.String
		post.ImageURL = &v
	}
	return post
}

type postTagRow struct {
	PostID int64  `db:"post_id"`
	Name   string `db:"name"`
}

type PostRepository struct {
	db *DB
}

func NewPostRepository(db *DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if err := r.db.migrate(ctx, createPostsTables); err != nil {
		return fmt.Errorf("create posts tables: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	err := r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := r.db.builder.
			Insert("posts").
			Columns("title", "description", "author_id", "image_url", "created_at", "updated_at").
			Values(post.Title, post.Description, post.AuthorID, nullString(post.ImageURL), post.CreatedAt, post.UpdatedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert post: %w", err)
		}
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&post.ID); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		return r.replaceTags(ctx, tx, post.ID, post.Tags)
	})
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}

func (r *PostRepository) Update(ctx context.Context, post *domain.Post) error {
	post.UpdatedAt = time.Now().UTC()

	return r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := r.db.builder.
			Update("posts").
			Set("title", post.Title).
			Set("description", post.Description).
			Set("image_url", nullString(post.ImageURL)).
			Set("updated_at", post.UpdatedAt).
			Where(sq.Eq{"id": post.ID, "author_id": post.AuthorID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update post: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		if err := expectAffected(res, "post"); err != nil {
			return err
		}
		return r.replaceTags(ctx, tx, post.ID, post.Tags)
	})
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	return r.db.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := execBuilt(ctx, tx, r.db.builder.Delete("comments").Where(sq.Eq{"post_id": id})); err != nil {
			return fmt.Errorf("delete post comments: %w", err)
		}
		if _, err := execBuilt(ctx, tx, r.db.builder.Delete("post_tags").Where(sq.Eq{"post_id": id})); err != nil {
			return fmt.Errorf("delete post tags: %w", err)
		}
		res, err := execBuilt(ctx, tx, r.db.builder.Delete("posts").Where(sq.Eq{"id": id}))
		if err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return expectAffected(res, "post")
	})
}

func (r *PostRepository) Get(ctx context.Context, id int64) (*domain.Post, error) {
	query, args, err := r.selectPosts().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get post: %w", err)
	}

	var row postRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}

	posts := []domain.Post{row.toDomain()}
	if err := r.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *PostRepository) List(ctx context.Context) ([]domain.Post, error) {
	query, args, err := r.selectPosts().OrderBy("p.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list posts: %w", err)
	}

	var rows []postRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	posts := make([]domain.Post, len(rows))
	for i := range rows {
		posts[i] = rows[i].toDomain()
	}
	if err := r.loadTags(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *PostRepository) selectPosts() sq.SelectBuilder {
	return r.db.builder.
		Select("p.id", "p.title", "p.description", "p.author_id", "u.username AS author_name", "p.image_url", "p.created_at", "p.updated_at").
		From("posts p").
		Join("users u ON u.id = p.author_id")
}

// loadTags fills Tags for every post with one query, keeping the order the
// tags were attached in.
func (r *PostRepository) loadTags(ctx context.Context, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]int64, len(posts))
	index := make(map[int64]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
	}

	query, args, err := r.db.builder.
		Select("pt.post_id", "t.name").
		From("post_tags pt").
		Join("tags t ON t.id = pt.tag_id").
		Where(sq.Eq{"pt.post_id": ids}).
		OrderBy("pt.post_id ASC", "pt.position ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build list post tags: %w", err)
	}

	var rows []postTagRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return fmt.Errorf("query post tags: %w", err)
	}
	for _, row := range rows {
		i := index[row.PostID]
		posts[i].Tags = append(posts[i].Tags, row.Name)
	}
	return nil
}

// replaceTags clears the post's tag links and re-attaches names in order,
// creating missing tags.
func (r *PostRepository) replaceTags(ctx context.Context, tx *sqlx.Tx, postID int64, names []string) error {
	if _, err := execBuilt(ctx, tx, r.db.builder.Delete("post_tags").Where(sq.Eq{"post_id": postID})); err != nil {
		return fmt.Errorf("clear post tags: %w", err)
	}

	for i, name := range names {
		tagID, err := r.ensureTag(ctx, tx, name)
		if err != nil {
			return err
		}
		query, args, err := r.db.builder.
			Insert("post_tags").
			Columns("post_id", "tag_id", "position").
			Values(postID, tagID, i).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert post tag: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("attach tag %q: %w", name, err)
		}
	}
	return nil
}

func (r *PostRepository) ensureTag(ctx context.Context, tx *sqlx.Tx, name string) (int64, error) {
	query, args, err := r.db.builder.
		Insert("tags").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert tag: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("insert tag %q: %w", name, err)
	}

	query, args, err = r.db.builder.Select("id").From("tags").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build get tag: %w", err)
	}
	var id int64
	if err := tx.GetContext(ctx, &id, query, args...); err != nil {
		return 0, fmt.Errorf("get tag %q: %w", name, err)
	}
	return id, nil
}

func expectAffected(res sql.Result, entity string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", entity, err)
	}
	if aff == 0 {
		return fmt.Errorf("%s: %w", entity, repository.ErrNotFound)
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
