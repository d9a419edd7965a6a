package routes

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"postcomm/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliceScenario(t *testing.T) {
	srv := setupTestServer(t)
	alice := srv.newBrowser(t)
	alice.registerAndLogin("alice", "pw")

	resp := alice.post("/create_post", url.Values{"title": {"Hi"}, "content": {"World"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/", resp.location)

	resp = alice.get("/")
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Hi")

	resp = alice.getJSON("/")
	var list struct {
		Posts []*models.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.body), &list))
	require.Len(t, list.Posts, 1)
	id := strconv.FormatInt(list.Posts[0].ID, 10)

	resp = alice.post("/post/"+id+"/comment", url.Values{"content": {"Nice!"}})
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/post/"+id, resp.location)

	resp = alice.get("/post/" + id)
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, "Nice!")

	resp = alice.post("/delete_post/"+id, nil)
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/", resp.location)

	resp = alice.get("/")
	assert.NotContains(t, resp.body, "Hi</a>")
	assert.Contains(t, resp.body, "No posts yet.")
	assert.Equal(t, http.StatusNotFound, alice.get("/post/"+id).status)
	assert.Zero(t, srv.count(t, "posts"))
	assert.Zero(t, srv.count(t, "comments"))
}

func TestBobCannotDeleteAlicesPost(t *testing.T) {
	srv := setupTestServer(t)
	alice := srv.newBrowser(t)
	alice.registerAndLogin("alice", "pw")
	require.Equal(t, http.StatusSeeOther, alice.post("/create_post", url.Values{"title": {"Hi"}, "content": {"World"}}).status)
	require.Equal(t, http.StatusSeeOther, alice.post("/post/1", url.Values{"content": {"first"}}).status)

	bob := srv.newBrowser(t)
	bob.registerAndLogin("bob", "pw")

	resp := bob.post("/delete_post/1", nil)
	require.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/", resp.location)

	resp = bob.get("/")
	assert.Contains(t, resp.body, "You can only delete your own posts.")
	assert.Contains(t, resp.body, "Hi")
	assert.Equal(t, 1, srv.count(t, "posts"))
	assert.Equal(t, 1, srv.count(t, "comments"))
}

func TestRegistrationAndLogin(t *testing.T) {
	srv := setupTestServer(t)
	b := srv.newBrowser(t)

	creds := url.Values{"username": {"alice"}, "password": {"pw"}}
	resp := b.post("/register", creds)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/login", resp.location)

	resp = b.post("/register", creds)
	assert.Equal(t, http.StatusConflict, resp.status)
	assert.Equal(t, 1, srv.count(t, "users"))

	resp = b.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Contains(t, resp.body, "Invalid username or password")

	resp = b.post("/login", creds)
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/", resp.location)
	assert.Contains(t, b.get("/").body, "Signed in as alice")

	var hash string
	require.NoError(t, srv.db.Get(&hash, "SELECT password_hash FROM users WHERE username = 'alice'"))
	assert.NotEqual(t, "pw", hash)

	resp = b.get("/logout")
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/", resp.location)
	assert.NotContains(t, b.get("/").body, "Signed in as alice")
}

func TestLoginRequired(t *testing.T) {
	srv := setupTestServer(t)
	anon := srv.newBrowser(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/create_post"},
		{http.MethodPost, "/create_post"},
		{http.MethodPost, "/post/1"},
		{http.MethodPost, "/post/1/comment"},
		{http.MethodPost, "/view_post/1"},
		{http.MethodPost, "/delete_post/1"},
		{http.MethodGet, "/logout"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var resp response
			if tt.method == http.MethodGet {
				resp = anon.get(tt.path)
			} else {
				resp = anon.post(tt.path, url.Values{"title": {"x"}, "content": {"x"}})
			}
			assert.Equal(t, http.StatusSeeOther, resp.status)
			assert.Equal(t, "/login", resp.location)
		})
	}
	assert.Zero(t, srv.count(t, "posts"))
}

func TestViewPostCommentFlow(t *testing.T) {
	srv := setupTestServer(t)
	alice := srv.newBrowser(t)
	alice.registerAndLogin("alice", "pw")
	require.Equal(t, http.StatusSeeOther, alice.post("/create_post", url.Values{"title": {"Hi"}, "content": {"World"}}).status)

	resp := alice.post("/view_post/1", url.Values{"content": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.status)
	assert.Contains(t, resp.body, "Content is required")

	resp = alice.post("/view_post/1", url.Values{"content": {"Nice!"}})
	assert.Equal(t, http.StatusSeeOther, resp.status)
	assert.Equal(t, "/view_post/1", resp.location)

	resp = alice.get("/view_post/1")
	assert.Contains(t, resp.body, "Your comment has been added.")
	assert.Contains(t, resp.body, "Nice!")

	assert.Equal(t, http.StatusNotFound, alice.get("/view_post/42").status)
}

func TestOperationalEndpoints(t *testing.T) {
	srv := setupTestServer(t)
	b := srv.newBrowser(t)

	resp := b.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "ok", resp.body)

	resp = b.get("/static/style.css")
	assert.Equal(t, http.StatusOK, resp.status)

	b.get("/")
	resp = b.get("/metrics")
	assert.Equal(t, http.StatusOK, resp.status)
	assert.Contains(t, resp.body, `postcomm_http_requests_total{method="GET",route="/",status="200"}`)
}

func TestResponsesVaryOnAcceptAndCookie(t *testing.T) {
	srv := setupTestServer(t)
	resp := srv.newBrowser(t).get("/")
	assert.Equal(t, []string{"Accept", "Cookie"}, resp.header.Values("Vary"))
}

func TestSetupRoutesRequiresDependencies(t *testing.T) {
	_, err := SetupRoutes(Dependencies{})
	assert.Error(t, err)
}

func TestServeGracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Simulate work.
			time.Sleep(100 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, srv, ln, time.Second) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartServerBadAddress(t *testing.T) {
	err := StartServer(context.Background(), &http.Server{Addr: "256.0.0.1:-1"}, time.Second)
	assert.Error(t, err)
}
