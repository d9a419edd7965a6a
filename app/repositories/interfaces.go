package repositories

import (
	"context"

	"postcomm/app/database"
	"postcomm/app/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = database.ErrNotFound

	// ErrDuplicate is returned when a unique field is already taken.
	ErrDuplicate = database.ErrDuplicate
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// PostRepository defines the interface for post data access
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	// Delete removes the post together with all of its comments.
	Delete(ctx context.Context, id int64) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListByPost(ctx context.Context, postID int64) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postID int64) (int, error)
}
