package services

import (
	"context"

	"postcomm/app/models"
	"postcomm/app/repositories"

	"github.com/pkg/errors"
)

// PostService handles business logic for blog posts
type PostService struct {
	postRepo    repositories.PostRepository
	commentRepo repositories.CommentRepository
}

// NewPostService creates a new PostService
func NewPostService(postRepo repositories.PostRepository, commentRepo repositories.CommentRepository) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
	}
}

// ListPosts retrieves every post, oldest first. Comments are not loaded.
func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.postRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list posts")
	}
	return posts, nil
}

// CreatePost creates a post owned by author
func (s *PostService) CreatePost(ctx context.Context, author *models.User, form models.PostForm) (*models.Post, error) {
	if author == nil || author.ID == 0 {
		return nil, ErrUnauthenticated
	}
	if err := models.ValidateForm(&form); err != nil {
		return nil, newValidationError(err)
	}

	post := &models.Post{Title: form.Title, Content: form.Content}
	if err := post.SetAuthor(author); err != nil {
		return nil, err
	}
	if err := post.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, errors.Wrap(err, "failed to create post")
	}
	return post, nil
}

// GetPost retrieves a post by ID with its comments
func (s *PostService) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByPost(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get comments")
	}
	for _, comment := range comments {
		if err := post.AddComment(comment); err != nil {
			return nil, err
		}
	}

	return post, nil
}

// DeletePost deletes a post and all its comments. Only the author may
// delete a post.
func (s *PostService) DeletePost(ctx context.Context, user *models.User, id int64) error {
	if user == nil || user.ID == 0 {
		return ErrUnauthenticated
	}

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.Owns(post) {
		return ErrPermissionDenied
	}

	return s.postRepo.Delete(ctx, id)
}
