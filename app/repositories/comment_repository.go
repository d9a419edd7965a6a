package repositories

import (
	"context"

	"postcomm/app/database"
	"postcomm/app/models"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const (
	sqlInsertComment = `
		INSERT INTO comments (content, post_id, author_id, created_at)
		VALUES (?, ?, ?, ?)`

	sqlListCommentsByPost = `
		SELECT c.id, c.content, c.post_id, c.author_id, u.username AS author_name, c.created_at
		FROM   comments c
		JOIN   users u ON u.id = c.author_id
		WHERE  c.post_id = ?
		ORDER  BY c.id`

	sqlCountCommentsByPost = `
		SELECT COUNT(*) FROM comments WHERE post_id = ?`
)

// SQLCommentRepository implements CommentRepository on SQLite
type SQLCommentRepository struct {
	db *sqlx.DB
}

// NewSQLCommentRepository creates a new SQLCommentRepository
func NewSQLCommentRepository(db *sqlx.DB) *SQLCommentRepository {
	return &SQLCommentRepository{db: db}
}

// Create creates a new comment. If the post (or author) no longer exists
// the insert fails on its foreign key and ErrNotFound is returned.
func (r *SQLCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	res, err := r.db.ExecContext(ctx, sqlInsertComment, comment.Content, comment.PostID, comment.AuthorID, comment.CreatedAt)
	if err != nil {
		err = database.MapError(err)
		if errors.Is(err, database.ErrForeignKey) {
			return errors.Wrap(ErrNotFound, "post or author does not exist")
		}
		return errors.Wrap(err, "failed to insert comment")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to read comment id")
	}
	comment.ID = id
	return nil
}

// ListByPost retrieves all comments for a post, oldest first
func (r *SQLCommentRepository) ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error) {
	comments := []*models.Comment{}
	if err := r.db.SelectContext(ctx, &comments, sqlListCommentsByPost, postID); err != nil {
		return nil, errors.Wrap(database.MapError(err), "failed to list comments")
	}
	return comments, nil
}

// CountByPost returns how many comments reference the post
func (r *SQLCommentRepository) CountByPost(ctx context.Context, postID int64) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, sqlCountCommentsByPost, postID); err != nil {
		return 0, database.MapError(err)
	}
	return n, nil
}
