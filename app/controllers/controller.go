package controllers

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"postcomm/app/models"
	"postcomm/app/observability"
	"postcomm/app/sessions"
	"postcomm/app/views"

	"github.com/gorilla/mux"
)

// Deps are the collaborators shared by every controller
type Deps struct {
	Templates map[string]*template.Template
	Sessions  *sessions.Manager
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// base carries the rendering and response helpers of all controllers
type base struct {
	templates map[string]*template.Template
	sessions  *sessions.Manager
	metrics   *observability.Metrics
	logger    *slog.Logger
}

func newBase(d Deps) base {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = observability.NewMetrics()
	}
	return base{
		templates: d.Templates,
		sessions:  d.Sessions,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// currentUser returns the logged-in user of the request, or nil
func currentUser(r *http.Request) *models.User {
	sess := sessions.FromContext(r.Context())
	if !sess.Authenticated() {
		return nil
	}
	return &models.User{ID: sess.UserID, Username: sess.Username}
}

// wantsJSON reports whether the client asked for a JSON response
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// postID reads the {id} route variable
func postID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// render executes the named page inside the layout. Pending flashes are
// consumed here.
func (b *base) render(w http.ResponseWriter, r *http.Request, name string, status int, page views.Page) {
	tmpl, ok := b.templates[name]
	if !ok {
		b.serverError(w, r, "unknown template "+name, nil)
		return
	}

	page.CurrentUser = currentUser(r)
	if b.sessions != nil {
		page.Flashes = b.sessions.PopFlashes(r)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		b.serverError(w, r, "template error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// flash queues a notice for the next page, logging storage failures
func (b *base) flash(w http.ResponseWriter, r *http.Request, message string) {
	if b.sessions == nil {
		return
	}
	if err := b.sessions.Flash(w, r, message); err != nil {
		b.logger.Error("failed to store flash", "error", err)
	}
}

func (b *base) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		b.logger.Error("failed to encode json response", "error", err)
	}
}

func (b *base) sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if wantsJSON(r) {
		b.sendJSON(w, status, map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}

// serverError logs err and answers 500 without leaking details
func (b *base) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	b.logger.Error(msg, "error", err, "method", r.Method, "path", r.URL.Path)
	b.sendError(w, r, "Internal Server Error", http.StatusInternalServerError)
}

// formValues returns the posted values named in keys, for refilling a form
func formValues(r *http.Request, keys ...string) map[string]string {
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		values[k] = r.PostFormValue(k)
	}
	return values
}
