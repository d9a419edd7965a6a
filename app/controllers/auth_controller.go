package controllers

import (
	"net/http"

	"postcomm/app/models"
	"postcomm/app/services"
	"postcomm/app/views"

	"github.com/pkg/errors"
)

// AuthController handles registration, login and logout
type AuthController struct {
	base
	authService *services.AuthService
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, deps Deps) *AuthController {
	return &AuthController{base: newBase(deps), authService: authService}
}

// LoginForm displays the login form
func (ac *AuthController) LoginForm(w http.ResponseWriter, r *http.Request) {
	ac.render(w, r, "login", http.StatusOK, views.Page{Title: "Login"})
}

// Login checks the credentials and starts a session
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ac.sendError(w, r, "Failed to parse form", http.StatusBadRequest)
		return
	}

	form := models.CredentialsForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	user, err := ac.authService.Login(r.Context(), form)
	if errors.Is(err, services.ErrInvalidCredentials) {
		ac.metrics.LoginFailed()
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		ac.serverError(w, r, "login failed", err)
		return
	}

	if _, err := ac.sessions.Login(w, r, user.ID, user.Username); err != nil {
		ac.serverError(w, r, "failed to start session", err)
		return
	}
	ac.metrics.LoginSucceeded()
	ac.logger.Info("user logged in", "user_id", user.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterForm displays the registration form
func (ac *AuthController) RegisterForm(w http.ResponseWriter, r *http.Request) {
	ac.render(w, r, "register", http.StatusOK, views.Page{Title: "Register"})
}

// Register creates an account and sends the visitor to the login page
func (ac *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ac.sendError(w, r, "Failed to parse form", http.StatusBadRequest)
		return
	}

	form := models.CredentialsForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
	user, err := ac.authService.Register(r.Context(), form)
	var verr *services.ValidationError
	switch {
	case err == nil:
	case errors.Is(err, services.ErrUsernameTaken):
		http.Error(w, "Username already exists", http.StatusConflict)
		return
	case errors.As(err, &verr):
		ac.render(w, r, "register", http.StatusUnprocessableEntity, views.Page{
			Title:  "Register",
			Form:   formValues(r, "username"),
			Errors: verr.Fields,
		})
		return
	default:
		ac.serverError(w, r, "registration failed", err)
		return
	}

	ac.metrics.UsersRegisteredTotal.Inc()
	ac.logger.Info("user registered", "user_id", user.ID)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// Logout ends the session
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := ac.sessions.Logout(w, r); err != nil {
		ac.serverError(w, r, "failed to end session", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
