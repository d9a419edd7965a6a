package services

import (
	"context"

	"postcomm/app/models"
	"postcomm/app/repositories"

	"github.com/pkg/errors"
)

// CommentService handles business logic for comments
type CommentService struct {
	commentRepo repositories.CommentRepository
	postRepo    repositories.PostRepository
}

// NewCommentService creates a new CommentService
func NewCommentService(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
	}
}

// AddComment attaches a comment by author to the post. A post deleted
// concurrently yields ErrNotFound from the insert itself.
func (s *CommentService) AddComment(ctx context.Context, author *models.User, postID int64, form models.CommentForm) (*models.Comment, error) {
	if author == nil || author.ID == 0 {
		return nil, ErrUnauthenticated
	}
	if err := models.ValidateForm(&form); err != nil {
		return nil, newValidationError(err)
	}

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{Content: form.Content}
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}
	if err := comment.SetAuthor(author); err != nil {
		return nil, err
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to create comment")
	}
	return comment, nil
}

// ListPostComments retrieves all comments for a post
func (s *CommentService) ListPostComments(ctx context.Context, postID int64) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}
