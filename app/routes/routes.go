package routes

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"postcomm/app/controllers"
	"postcomm/app/middleware"
	"postcomm/app/observability"
	"postcomm/app/repositories"
	"postcomm/app/services"
	"postcomm/app/sessions"
	"postcomm/app/views"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Dependencies are the long-lived resources the router is built from
type Dependencies struct {
	DB         *sqlx.DB
	Sessions   *sessions.Manager
	Metrics    *observability.Metrics
	Logger     *slog.Logger
	BcryptCost int
}

// SetupRoutes builds repositories, services and controllers over deps and
// returns the application's router.
func SetupRoutes(deps Dependencies) (*mux.Router, error) {
	if deps.DB == nil || deps.Sessions == nil {
		return nil, errors.New("routes: database and session manager are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics()
	}

	templates, err := views.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse templates")
	}

	userRepo := repositories.NewSQLUserRepository(deps.DB)
	postRepo := repositories.NewSQLPostRepository(deps.DB)
	commentRepo := repositories.NewSQLCommentRepository(deps.DB)

	authService := services.NewAuthService(userRepo, deps.BcryptCost)
	postService := services.NewPostService(postRepo, commentRepo)
	commentService := services.NewCommentService(commentRepo, postRepo)

	controllerDeps := controllers.Deps{
		Templates: templates,
		Sessions:  deps.Sessions,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
	}
	authController := controllers.NewAuthController(authService, controllerDeps)
	postController := controllers.NewPostController(postService, controllerDeps)
	commentController := controllers.NewCommentController(commentService, postService, controllerDeps)

	router := mux.NewRouter()

	// Apply global middleware
	router.Use(middleware.Recoverer(deps.Logger))
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.VaryHeaders)
	router.Use(middleware.LoadSession(deps.Sessions, deps.Logger))

	protected := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireLogin(h)
	}

	// Operational endpoints
	router.PathPrefix("/static/").Handler(http.StripPrefix("/static/", views.Static()))
	router.Handle("/metrics", deps.Metrics.Handler()).Methods("GET")
	router.HandleFunc("/healthz", healthHandler(deps.DB)).Methods("GET")

	// Authentication
	router.HandleFunc("/login", authController.LoginForm).Methods("GET")
	router.HandleFunc("/login", authController.Login).Methods("POST")
	router.HandleFunc("/register", authController.RegisterForm).Methods("GET")
	router.HandleFunc("/register", authController.Register).Methods("POST")
	router.Handle("/logout", protected(authController.Logout)).Methods("GET")

	// Posts
	router.HandleFunc("/", postController.Index).Methods("GET")
	router.Handle("/create_post", protected(postController.New)).Methods("GET")
	router.Handle("/create_post", protected(postController.Create)).Methods("POST")
	router.Handle("/delete_post/{id:[0-9]+}", protected(postController.Delete)).Methods("POST")

	post := router.PathPrefix("/post/{id:[0-9]+}").Subrouter()
	post.HandleFunc("", postController.Show).Methods("GET")
	post.Handle("", protected(commentController.Create)).Methods("POST")
	post.Handle("/comment", protected(commentController.Create)).Methods("POST")
	post.HandleFunc("/comments", commentController.Index).Methods("GET")

	router.HandleFunc("/view_post/{id:[0-9]+}", postController.View).Methods("GET")
	router.Handle("/view_post/{id:[0-9]+}", protected(commentController.CreateFromView)).Methods("POST")

	return router, nil
}

// healthHandler reports whether the database answers
func healthHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

// StartServer listens on srv.Addr and serves until ctx is cancelled, then
// shuts down gracefully within shutdownTimeout.
func StartServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", srv.Addr)
	}
	return Serve(ctx, srv, ln, shutdownTimeout)
}

// Serve is StartServer over an existing listener
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}
