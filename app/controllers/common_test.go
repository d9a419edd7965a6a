package controllers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"postcomm/app/models"
	"postcomm/app/observability"
	"postcomm/app/repositories/mock"
	"postcomm/app/services"
	"postcomm/app/sessions"
	"postcomm/app/views"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testCookie = "test_session"

type testApp struct {
	store    *mock.Store
	sessions *sessions.Manager
	metrics  *observability.Metrics

	auth     *AuthController
	posts    *PostController
	comments *CommentController
	router   *mux.Router

	postService *services.PostService
	authService *services.AuthService
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessionStore, err := sessions.Open("", 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { sessionStore.Close() })

	store := mock.NewStore()
	app := &testApp{
		store:    store,
		sessions: sessions.NewManager(sessionStore, sessions.CookieOptions{Name: testCookie}),
		metrics:  observability.NewMetrics(),
	}
	deps := Deps{
		Templates: views.MustLoad(),
		Sessions:  app.sessions,
		Metrics:   app.metrics,
		Logger:    logger,
	}

	app.authService = services.NewAuthService(store.Users(), bcrypt.MinCost)
	app.postService = services.NewPostService(store.Posts(), store.Comments())
	commentService := services.NewCommentService(store.Comments(), store.Posts())

	app.auth = NewAuthController(app.authService, deps)
	app.posts = NewPostController(app.postService, deps)
	app.comments = NewCommentController(commentService, app.postService, deps)

	// Routes are registered without the login guard so handlers' own
	// checks are exercised.
	r := mux.NewRouter()
	r.HandleFunc("/", app.posts.Index).Methods("GET")
	r.HandleFunc("/login", app.auth.LoginForm).Methods("GET")
	r.HandleFunc("/login", app.auth.Login).Methods("POST")
	r.HandleFunc("/register", app.auth.RegisterForm).Methods("GET")
	r.HandleFunc("/register", app.auth.Register).Methods("POST")
	r.HandleFunc("/logout", app.auth.Logout).Methods("GET")
	r.HandleFunc("/create_post", app.posts.New).Methods("GET")
	r.HandleFunc("/create_post", app.posts.Create).Methods("POST")
	r.HandleFunc("/post/{id:[0-9]+}", app.posts.Show).Methods("GET")
	r.HandleFunc("/post/{id:[0-9]+}", app.comments.Create).Methods("POST")
	r.HandleFunc("/post/{id:[0-9]+}/comment", app.comments.Create).Methods("POST")
	r.HandleFunc("/post/{id:[0-9]+}/comments", app.comments.Index).Methods("GET")
	r.HandleFunc("/view_post/{id:[0-9]+}", app.posts.View).Methods("GET")
	r.HandleFunc("/view_post/{id:[0-9]+}", app.comments.CreateFromView).Methods("POST")
	r.HandleFunc("/delete_post/{id:[0-9]+}", app.posts.Delete).Methods("POST")
	app.router = r
	return app
}

// createUser registers a user directly in the store
func (a *testApp) createUser(t *testing.T, username, password string) *models.User {
	t.Helper()
	user, err := a.authService.Register(context.Background(), models.CredentialsForm{Username: username, Password: password})
	require.NoError(t, err)
	return user
}

// loginAs opens a session for user and returns it
func (a *testApp) loginAs(t *testing.T, user *models.User) *sessions.Session {
	t.Helper()
	sess, err := a.sessions.Store().Create(user.ID, user.Username)
	require.NoError(t, err)
	return sess
}

func (a *testApp) createPost(t *testing.T, author *models.User, title, content string) *models.Post {
	t.Helper()
	post, err := a.postService.CreatePost(context.Background(), author, models.PostForm{Title: title, Content: content})
	require.NoError(t, err)
	return post
}

// do serves a request, attaching sess (if any) the way the session
// middleware would
func (a *testApp) do(method, target string, form url.Values, sess *sessions.Session, headers ...string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	if sess != nil {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: sess.ID})
		req = req.WithContext(sessions.NewContext(req.Context(), sess))
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
