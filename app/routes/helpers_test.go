package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"postcomm/app/database"
	"postcomm/app/observability"
	"postcomm/app/sessions"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testCookie = "test_session"

type testServer struct {
	*httptest.Server
	db      *sqlx.DB
	metrics *observability.Metrics
}

// setupTestServer runs the full router over in-memory SQLite and Badger
func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.OpenAndMigrate(database.MemoryPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := sessions.Open("", 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	metrics := observability.NewMetrics()
	router, err := SetupRoutes(Dependencies{
		DB:         db,
		Sessions:   sessions.NewManager(store, sessions.CookieOptions{Name: testCookie}),
		Metrics:    metrics,
		Logger:     logger,
		BcryptCost: bcrypt.MinCost,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, db: db, metrics: metrics}
}

// browser is an HTTP client with its own cookie jar that does not follow
// redirects, so tests can assert on them
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (s *testServer) newBrowser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: s.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status   int
	location string
	body     string
	header   http.Header
}

func (b *browser) get(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) getJSON(path string) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	req.Header.Set("Accept", "application/json")
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return response{
		status:   resp.StatusCode,
		location: resp.Header.Get("Location"),
		body:     string(body),
		header:   resp.Header,
	}
}

// registerAndLogin creates the account and logs the browser in
func (b *browser) registerAndLogin(username, password string) {
	b.t.Helper()
	creds := url.Values{"username": {username}, "password": {password}}
	resp := b.post("/register", creds)
	require.Equal(b.t, http.StatusSeeOther, resp.status, resp.body)
	resp = b.post("/login", creds)
	require.Equal(b.t, http.StatusSeeOther, resp.status, resp.body)
}

func (s *testServer) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}
