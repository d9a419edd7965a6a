package models

import (
	"errors"
	"time"
)

// Validate checks if the user meets all validation requirements
func (u *User) Validate() error {
	return validate.Struct(u)
}

// BeforeCreate sets up any necessary fields before creation
func (u *User) BeforeCreate() {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}

// Owns reports whether the user authored the post.
func (u *User) Owns(post *Post) bool {
	return u != nil && post != nil && post.AuthorID == u.ID
}

// ErrNilUser is returned when an operation needs a user and got none.
var ErrNilUser = errors.New("user cannot be nil")
