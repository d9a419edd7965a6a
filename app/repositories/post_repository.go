package repositories

import (
	"context"

	"postcomm/app/database"
	"postcomm/app/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	sqlInsertPost = `
		INSERT INTO posts (title, content, author_id, created_at)
		VALUES (?, ?, ?, ?)`

	sqlSelectPost = `
		SELECT p.id, p.title, p.content, p.author_id, u.username AS author_name, p.created_at
		FROM   posts p
		JOIN   users u ON u.id = p.author_id`

	sqlGetPostByID = sqlSelectPost + `
		WHERE  p.id = ?`

	sqlListPosts = sqlSelectPost + `
		ORDER  BY p.id`

	sqlDeletePostComments = `
		DELETE FROM comments WHERE post_id = ?`

	sqlDeletePost = `
		DELETE FROM posts WHERE id = ?`
)

// SQLPostRepository implements PostRepository on SQLite
type SQLPostRepository struct {
	db *sqlx.DB
}

// NewSQLPostRepository creates a new SQLPostRepository
func NewSQLPostRepository(db *sqlx.DB) *SQLPostRepository {
	return &SQLPostRepository{db: db}
}

// Create creates a new post. An unknown author yields ErrNotFound.
func (r *SQLPostRepository) Create(ctx context.Context, post *models.Post) error {
	post.BeforeCreate()
	res, err := r.db.ExecContext(ctx, sqlInsertPost, post.Title, post.Content, post.AuthorID, post.CreatedAt)
	if err != nil {
		err = database.MapError(err)
		if errors.Is(err, database.ErrForeignKey) {
			return errors.Wrap(ErrNotFound, "author does not exist")
		}
		return errors.Wrap(err, "failed to insert post")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to read post id")
	}
	post.ID = id
	return nil
}

// GetByID retrieves a post by ID. Comments are not loaded.
func (r *SQLPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.GetContext(ctx, &post, sqlGetPostByID, id); err != nil {
		return nil, database.MapError(err)
	}
	return &post, nil
}

// List retrieves every post in storage order
func (r *SQLPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	posts := []*models.Post{}
	if err := r.db.SelectContext(ctx, &posts, sqlListPosts); err != nil {
		return nil, errors.Wrap(database.MapError(err), "failed to list posts")
	}
	return posts, nil
}

// Delete deletes a post and its comments in one transaction
func (r *SQLPostRepository) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, sqlDeletePostComments, id); err != nil {
			return errors.Wrap(database.MapError(err), "failed to delete comments")
		}
		res, err := tx.ExecContext(ctx, sqlDeletePost, id)
		if err != nil {
			return errors.Wrap(database.MapError(err), "failed to delete post")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
