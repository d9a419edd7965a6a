package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// User is a registered account. PasswordHash is never serialised.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username" validate:"required,min=1,max=80"`
	PasswordHash string    `db:"password_hash" json:"-" validate:"required"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Post represents a blog post with comments.
type Post struct {
	ID         int64      `db:"id" json:"id"`
	Title      string     `db:"title" json:"title" validate:"required,min=1,max=200"`
	Content    string     `db:"content" json:"content" validate:"required"`
	AuthorID   int64      `db:"author_id" json:"author_id" validate:"required,gt=0"`
	AuthorName string     `db:"author_name" json:"author_name" validate:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	Comments   []*Comment `db:"-" json:"comments,omitempty" validate:"-"`
}

// Comment represents a comment on a blog post.
type Comment struct {
	ID         int64     `db:"id" json:"id"`
	PostID     int64     `db:"post_id" json:"post_id" validate:"required,gt=0"`
	AuthorID   int64     `db:"author_id" json:"author_id" validate:"required,gt=0"`
	AuthorName string    `db:"author_name" json:"author_name" validate:"-"`
	Content    string    `db:"content" json:"content" validate:"required"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
