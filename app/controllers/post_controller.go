package controllers

import (
	"net/http"

	"postcomm/app/models"
	"postcomm/app/repositories"
	"postcomm/app/services"
	"postcomm/app/views"

	"github.com/pkg/errors"
)

// PermissionDeniedNotice is flashed when a user tries to delete another user's post
const PermissionDeniedNotice = "You can only delete your own posts."

// PostController handles HTTP requests for blog posts
type PostController struct {
	base
	postService *services.PostService
}

// NewPostController creates a new PostController
func NewPostController(postService *services.PostService, deps Deps) *PostController {
	return &PostController{base: newBase(deps), postService: postService}
}

// Index handles listing all posts
func (pc *PostController) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := pc.postService.ListPosts(r.Context())
	if err != nil {
		pc.serverError(w, r, "failed to list posts", err)
		return
	}

	if wantsJSON(r) {
		pc.sendJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
		return
	}
	pc.render(w, r, "index", http.StatusOK, views.Page{Posts: posts})
}

// New displays the form for creating a new post
func (pc *PostController) New(w http.ResponseWriter, r *http.Request) {
	pc.render(w, r, "new", http.StatusOK, views.Page{Title: "New post"})
}

// Create handles creating a new post
func (pc *PostController) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		pc.sendError(w, r, "Failed to parse form", http.StatusBadRequest)
		return
	}

	form := models.PostForm{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
	}
	post, err := pc.postService.CreatePost(r.Context(), currentUser(r), form)
	var verr *services.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
		pc.render(w, r, "new", http.StatusUnprocessableEntity, views.Page{
			Title:  "New post",
			Form:   formValues(r, "title", "content"),
			Errors: verr.Fields,
		})
		return
	case errors.Is(err, services.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	default:
		pc.serverError(w, r, "failed to create post", err)
		return
	}

	pc.metrics.PostsCreatedTotal.Inc()
	pc.logger.Info("post created", "post_id", post.ID, "author_id", post.AuthorID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Show handles displaying a single post at /post/{id}
func (pc *PostController) Show(w http.ResponseWriter, r *http.Request) {
	pc.show(w, r, "/post/")
}

// View displays a post at /view_post/{id}, whose comment form is validated
// and re-rendered on error
func (pc *PostController) View(w http.ResponseWriter, r *http.Request) {
	pc.show(w, r, "/view_post/")
}

func (pc *PostController) show(w http.ResponseWriter, r *http.Request, prefix string) {
	id, ok := postID(r)
	if !ok {
		pc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}

	post, err := pc.postService.GetPost(r.Context(), id)
	if errors.Is(err, repositories.ErrNotFound) {
		pc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}
	if err != nil {
		pc.serverError(w, r, "failed to get post", err)
		return
	}

	if wantsJSON(r) {
		pc.sendJSON(w, http.StatusOK, post)
		return
	}
	pc.render(w, r, "show", http.StatusOK, views.Page{
		Title:         post.Title,
		Post:          post,
		CommentAction: commentAction(prefix, post.ID),
	})
}

// Delete handles deleting a post. Only its author may delete it.
func (pc *PostController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(r)
	if !ok {
		pc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	}

	user := currentUser(r)
	err := pc.postService.DeletePost(r.Context(), user, id)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrNotFound):
		pc.sendError(w, r, "Post not found", http.StatusNotFound)
		return
	case errors.Is(err, services.ErrPermissionDenied):
		pc.metrics.PermissionDeniedTotal.Inc()
		pc.logger.Warn("delete denied", "post_id", id, "user_id", user.ID)
		pc.flash(w, r, PermissionDeniedNotice)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, services.ErrUnauthenticated):
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	default:
		pc.serverError(w, r, "failed to delete post", err)
		return
	}

	pc.metrics.PostsDeletedTotal.Inc()
	pc.logger.Info("post deleted", "post_id", id, "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
