// Package views embeds the HTML templates and static assets.
package views

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"postcomm/app/models"
)

//go:embed layout.html posts/*.html auth/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data every template receives. Handlers fill what their page
// needs and leave the rest zero.
type Page struct {
	Title       string
	CurrentUser *models.User
	Flashes     []string

	Posts []*models.Post
	Post  *models.Post

	// CommentAction is where the comment form on a post page submits to.
	CommentAction string

	Form   map[string]string
	Errors map[string]string
}

var pages = map[string]string{
	"index":    "posts/index.html",
	"show":     "posts/show.html",
	"new":      "posts/new.html",
	"login":    "auth/login.html",
	"register": "auth/register.html",
}

var funcs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// Load parses every page together with the shared layout. Execute the
// "layout" template of the returned entries.
func Load() (map[string]*template.Template, error) {
	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "layout.html", file)
		if err != nil {
			return nil, err
		}
		templates[name] = tmpl
	}
	return templates, nil
}

// MustLoad is like Load but panics on error
func MustLoad() map[string]*template.Template {
	templates, err := Load()
	if err != nil {
		panic(err)
	}
	return templates
}

// Static serves the embedded assets under static/
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
