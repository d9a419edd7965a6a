package models

import "strings"

// Form values submitted by the browser. Validation tags are the single
// source of truth for what the handlers accept.

// CredentialsForm is posted by both /login and /register.
type CredentialsForm struct {
	Username string `validate:"required,max=80"`
	Password string `validate:"required,max=72"`
}

// PostForm is posted by /create_post.
type PostForm struct {
	Title   string `validate:"required,max=200"`
	Content string `validate:"required"`
}

// CommentForm is posted by the comment routes.
type CommentForm struct {
	Content string `validate:"required"`
}

// Normalize trims surrounding whitespace from the username. Passwords are
// kept verbatim.
func (f *CredentialsForm) Normalize() {
	f.Username = strings.TrimSpace(f.Username)
}

// Normalize trims surrounding whitespace.
func (f *PostForm) Normalize() {
	f.Title = strings.TrimSpace(f.Title)
	f.Content = strings.TrimSpace(f.Content)
}

// Normalize trims surrounding whitespace.
func (f *CommentForm) Normalize() {
	f.Content = strings.TrimSpace(f.Content)
}

// ValidateForm normalises and validates any of the form types above.
func ValidateForm(form interface{ Normalize() }) error {
	form.Normalize()
	return validate.Struct(form)
}
