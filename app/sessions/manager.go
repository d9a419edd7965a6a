package sessions

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

type contextKey string

const sessionContextKey contextKey = "session"

// NewContext returns a copy of ctx carrying sess
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// FromContext returns the request's session, or nil if there is none
func FromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

// CookieOptions controls the session cookie
type CookieOptions struct {
	Name   string
	Secure bool
	// MaxAge of zero makes the cookie last for the browser session.
	MaxAge time.Duration
}

// Manager ties the Store to the session cookie of HTTP requests
type Manager struct {
	store  *Store
	cookie CookieOptions
}

// NewManager creates a Manager over store
func NewManager(store *Store, cookie CookieOptions) *Manager {
	return &Manager{store: store, cookie: cookie}
}

// Store returns the underlying session store
func (m *Manager) Store() *Store {
	return m.store
}

// Load returns the session named by the request cookie. A missing cookie
// or an unknown session yields ErrNotFound.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie.Name)
	if err != nil {
		return nil, ErrNotFound
	}
	return m.store.Get(c.Value)
}

// Login starts a fresh authenticated session and sets its cookie. Any
// previous session of the request is discarded; its pending flashes move
// to the new one.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int64, username string) (*Session, error) {
	var flashes []string
	if old := FromContext(r.Context()); old != nil {
		if pending, err := m.store.PopFlashes(old.ID); err == nil {
			flashes = pending
		}
		if err := m.store.Delete(old.ID); err != nil {
			return nil, err
		}
	}

	sess, err := m.store.Create(userID, username)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}
	if len(flashes) > 0 {
		sess.Flashes = flashes
		if err := m.store.Save(sess); err != nil {
			return nil, err
		}
	}

	m.setCookie(w, sess.ID)
	return sess, nil
}

// Logout deletes the request's session and expires the cookie
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	if sess := FromContext(r.Context()); sess != nil {
		if err := m.store.Delete(sess.ID); err != nil {
			return err
		}
	}
	m.ClearCookie(w)
	return nil
}

// Flash queues a message for the next rendered page. A visitor without a
// session is given an anonymous one.
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, message string) error {
	if sess := FromContext(r.Context()); sess != nil {
		err := m.store.AddFlash(sess.ID, message)
		if !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	sess, err := m.store.Create(0, "")
	if err != nil {
		return err
	}
	if err := m.store.AddFlash(sess.ID, message); err != nil {
		return err
	}
	m.setCookie(w, sess.ID)
	return nil
}

// PopFlashes returns and clears the pending flashes of the request's session
func (m *Manager) PopFlashes(r *http.Request) []string {
	sess := FromContext(r.Context())
	if sess == nil {
		return nil
	}
	flashes, err := m.store.PopFlashes(sess.ID)
	if err != nil {
		return nil
	}
	return flashes
}

// ClearCookie tells the browser to drop the session cookie
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	c := &http.Cookie{
		Name:     m.cookie.Name,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.cookie.MaxAge > 0 {
		c.MaxAge = int(m.cookie.MaxAge / time.Second)
	}
	http.SetCookie(w, c)
}

// CookieName returns the name of the session cookie
func (m *Manager) CookieName() string {
	return m.cookie.Name
}
