package controllers

import (
	"net/http"
	"strconv"

	"postcomm/app/models"
	"postcomm/app/repositories"
	"postcomm/app/services"
	"postcomm/app/views"

	"github.com/pkg/errors"
)

var errBadForm = errors.New("malformed form")

// CommentAddedNotice is flashed after a comment is added through /view_post/{id}
const CommentAddedNotice = "Your comment has been added."

// CommentController handles HTTP requests for comments
type CommentController struct {
	base
	commentService *services.CommentService
	postService    *services.PostService
}

// NewCommentController creates a new CommentController
func NewCommentController(commentService *services.CommentService, postService *services.PostService, deps Deps) *CommentController {
	return &CommentController{
		base:           newBase(deps),
		commentService: commentService,
		postService:    postService,
	}
}

func commentAction(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}

// Index lists the comments of a post as JSON
func (cc *CommentController) Index(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		cc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}

	comments, err := cc.commentService.ListPostComments(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		cc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		cc.serverError(w, r, "failed to list comments", err)
		return
	}
	cc.sendJSON(w, http.StatusOK, map[string]interface{}{"comments": comments})
}

// Create handles POST /post/{id} and /post/{id}/comment, redirecting back
// to /post/{id}. Empty content is answered with 400.
func (cc *CommentController) Create(w http.ResponseWriter, r *http.Request) {
	id, comment, err := cc.add(r)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrNotFound):
		cc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	case errors.Is(err, errBadForm):
		cc.sendError(w, r, "Failed to parse form", http.StatusBadRequest)
		return
	case services.IsValidation(err):
		cc.sendError(w, r, "Comment content is required", http.StatusBadRequest)
		return
	case errors.Is(err, services.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	default:
		cc.serverError(w, r, "failed to add comment", err)
		return
	}

	cc.created(comment)
	http.Redirect(w, r, commentAction("/post/", id), http.StatusSeeOther)
}

// CreateFromView handles POST /view_post/{id}. Invalid input re-renders
// the post page with the error; success flashes a notice.
func (cc *CommentController) CreateFromView(w http.ResponseWriter, r *http.Request) {
	id, comment, err := cc.add(r)
	var verr *services.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrNotFound):
		cc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	case errors.Is(err, errBadForm):
		cc.sendError(w, r, "Failed to parse form", http.StatusBadRequest)
		return
	case errors.As(err, &verr):
		cc.rerender(w, r, id, verr)
		return
	case errors.Is(err, services.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	default:
		cc.serverError(w, r, "failed to add comment", err)
		return
	}

	cc.created(comment)
	cc.flash(w, r, CommentAddedNotice)
	http.Redirect(w, r, commentAction("/view_post/", id), http.StatusSeeOther)
}

// add parses the form and stores the comment
func (cc *CommentController) add(r *http.Request) (int64, *models.Comment, error) {
	id, ok := postID(r)
	if !ok {
		return 0, nil, repositories.ErrNotFound
	}
	if err := r.ParseForm(); err != nil {
		return id, nil, errBadForm
	}
	form := models.CommentForm{Content: r.PostFormValue("content")}
	comment, err := cc.commentService.AddComment(r.Context(), currentUser(r), id, form)
	return id, comment, err
}

func (cc *CommentController) rerender(w http.ResponseWriter, r *http.Request, id int64, verr *services.ValidationError) {
	post, err := cc.postService.GetPost(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		cc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		cc.serverError(w, r, "failed to get post", err)
		return
	}
	cc.render(w, r, "show", http.StatusUnprocessableEntity, views.Page{
		Title:         post.Title,
		Post:          post,
		CommentAction: commentAction("/view_post/", id),
		Form:          formValues(r, "content"),
		Errors:        verr.Fields,
	})
}

func (cc *CommentController) created(comment *models.Comment) {
	cc.metrics.CommentsCreatedTotal.Inc()
	cc.logger.Info("comment added", "comment_id", comment.ID, "post_id", comment.PostID, "author_id", comment.AuthorID)
}
