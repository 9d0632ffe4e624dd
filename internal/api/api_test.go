package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/clydetadiwa/folio/internal/api"
	"github.com/clydetadiwa/folio/internal/eventbus"
	"github.com/clydetadiwa/folio/internal/storage"
)

const (
	testSecret   = "test-secret"
	testPassword = "correct horse"
)

type capturedEvent struct {
	eventType string
	payload   map[string]string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakePublisher) Publish(eventType string, payload map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{eventType, payload})
}

// testHarness wires the handlers against a real in-memory database.
type testHarness struct {
	posts       *storage.SQLitePostStore
	projects    *storage.SQLiteProjectStore
	subscribers *storage.SQLiteSubscriberStore
	deliveryLog *storage.SQLiteDeliveryLogStore
	events      *fakePublisher
	router      chi.Router
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	posts := storage.NewSQLitePostStore(db)
	projects := storage.NewSQLiteProjectStore(db)
	subscribers := storage.NewSQLiteSubscriberStore(db)
	admins := storage.NewSQLiteAdminStore(db)
	deliveryLog := storage.NewSQLiteDeliveryLogStore(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, admins.Create(context.Background(), &storage.Admin{
		Username:     "clyde",
		PasswordHash: string(hash),
	}))

	events := &fakePublisher{}
	srv := api.New(api.Config{
		Posts:       posts,
		Projects:    projects,
		Subscribers: subscribers,
		Admins:      admins,
		DeliveryLog: deliveryLog,
		Events:      events,
		JWTSecret:   testSecret,
		SiteBaseURL: "https://clydetadiwa.com",
		SiteName:    "Clyde Tadiwa",
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	r := chi.NewRouter()
	srv.Mount(r)
	srv.MountFeeds(r)

	return &testHarness{
		posts:       posts,
		projects:    projects,
		subscribers: subscribers,
		deliveryLog: deliveryLog,
		events:      events,
		router:      r,
	}
}

func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *testHarness) login(t *testing.T) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/login",
		strings.NewReader(`{"username":"clyde","password":"correct horse"}`))
	w := h.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotEmpty(t, result["token"])
	return result["token"]
}

func (h *testHarness) authed(t *testing.T, method, url, body string) *http.Request {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, r)
	req.Header.Set("Authorization", "Bearer "+h.login(t))
	return req
}

// ---------- Auth ----------

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"username":"clyde","password":"correct horse"}`, http.StatusOK},
		{"wrong password", `{"username":"clyde","password":"nope"}`, http.StatusUnauthorized},
		{"unknown user", `{"username":"ghost","password":"correct horse"}`, http.StatusUnauthorized},
		{"missing fields", `{"username":"clyde"}`, http.StatusBadRequest},
		{"invalid JSON", `{bad`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(tc.body)))
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/admin/posts", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/posts", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w = h.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(h.authed(t, http.MethodGet, "/admin/posts", ""))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ---------- Posts ----------

func TestPostLifecycle(t *testing.T) {
	h := newHarness(t)

	body := `{"title":"Hello","slug":"hello","excerpt":"First post.","content":"Body.","tags":["go"],"draft":true}`
	w := h.do(h.authed(t, http.MethodPost, "/admin/posts", body))
	require.Equal(t, http.StatusCreated, w.Code)

	var created storage.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	// Drafts are hidden from the public surface.
	w = h.do(httptest.NewRequest(http.MethodGet, "/posts", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var public []storage.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	assert.Empty(t, public)

	w = h.do(httptest.NewRequest(http.MethodGet, "/posts/hello", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Publish promotes the draft and emits an event.
	w = h.do(h.authed(t, http.MethodPost, "/admin/posts/1/publish", ""))
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, eventbus.EventPostPublished, h.events.events[0].eventType)
	assert.Equal(t, "1", h.events.events[0].payload["id"])
	assert.Equal(t, "hello", h.events.events[0].payload["slug"])

	w = h.do(httptest.NewRequest(http.MethodGet, "/posts/hello", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Publishing twice conflicts.
	w = h.do(h.authed(t, http.MethodPost, "/admin/posts/1/publish", ""))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, h.events.events, 1, "no duplicate event")
}

func TestCreatePostValidation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"missing title", `{"slug":"x"}`, http.StatusBadRequest},
		{"missing slug", `{"title":"X"}`, http.StatusBadRequest},
		{"invalid JSON", `{bad`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(h.authed(t, http.MethodPost, "/admin/posts", tc.body))
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	h := newHarness(t)
	body := `{"title":"One","slug":"same"}`

	w := h.do(h.authed(t, http.MethodPost, "/admin/posts", body))
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(h.authed(t, http.MethodPost, "/admin/posts", `{"title":"Two","slug":"same"}`))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateAndDeletePost(t *testing.T) {
	h := newHarness(t)

	w := h.do(h.authed(t, http.MethodPost, "/admin/posts", `{"title":"Before","slug":"post"}`))
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(h.authed(t, http.MethodPut, "/admin/posts/1", `{"title":"After","slug":"post"}`))
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(h.authed(t, http.MethodGet, "/admin/posts/1", ""))
	require.Equal(t, http.StatusOK, w.Code)
	var got storage.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "After", got.Title)

	w = h.do(h.authed(t, http.MethodDelete, "/admin/posts/1", ""))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(h.authed(t, http.MethodGet, "/admin/posts/1", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---------- Projects ----------

func TestProjectLifecycle(t *testing.T) {
	h := newHarness(t)

	body := `{"title":"folio","description":"This site.","technologies":["go","sqlite"]}`
	w := h.do(h.authed(t, http.MethodPost, "/admin/projects", body))
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/projects", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var projects []storage.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &projects))
	require.Len(t, projects, 1)
	assert.Equal(t, "folio", projects[0].Title)

	w = h.do(h.authed(t, http.MethodPost, "/admin/projects/1/publish", ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.events.events, 1)
	assert.Equal(t, eventbus.EventProjectPublished, h.events.events[0].eventType)

	w = h.do(h.authed(t, http.MethodDelete, "/admin/projects/1", ""))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(h.authed(t, http.MethodPost, "/admin/projects/1/publish", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetProjectPublic(t *testing.T) {
	h := newHarness(t)

	body := `{"title":"folio","description":"This site."}`
	w := h.do(h.authed(t, http.MethodPost, "/admin/projects", body))
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/projects/1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got storage.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "folio", got.Title)

	w = h.do(httptest.NewRequest(http.MethodGet, "/projects/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(httptest.NewRequest(http.MethodGet, "/projects/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------- Feeds ----------

func seedFeedPosts(t *testing.T, h *testHarness) {
	t.Helper()
	w := h.do(h.authed(t, http.MethodPost, "/admin/posts",
		`{"title":"Live Post","slug":"live-post","excerpt":"Out there.","content":"<p>Body</p>","tags":["go"]}`))
	require.Equal(t, http.StatusCreated, w.Code)
	w = h.do(h.authed(t, http.MethodPost, "/admin/posts",
		`{"title":"Hidden Draft","slug":"hidden-draft","draft":true}`))
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSitemap(t *testing.T) {
	h := newHarness(t)
	seedFeedPosts(t, h)

	w := h.do(httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "<loc>https://clydetadiwa.com/blog/live-post</loc>")
	assert.Contains(t, body, "<loc>https://clydetadiwa.com/projects</loc>")
	assert.NotContains(t, body, "hidden-draft")
}

func TestRobots(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Sitemap: https://clydetadiwa.com/sitemap.xml")
	assert.Contains(t, w.Body.String(), "User-agent: *")
}

func TestRSSFeed(t *testing.T) {
	h := newHarness(t)
	seedFeedPosts(t, h)

	w := h.do(httptest.NewRequest(http.MethodGet, "/rss.xml", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/rss+xml; charset=utf-8", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, `<rss version="2.0">`)
	assert.Contains(t, body, "<title>Live Post</title>")
	assert.Contains(t, body, "<guid>https://clydetadiwa.com/blog/live-post</guid>")
	assert.NotContains(t, body, "Hidden Draft")
}

func TestJSONFeed(t *testing.T) {
	h := newHarness(t)
	seedFeedPosts(t, h)

	w := h.do(httptest.NewRequest(http.MethodGet, "/feed.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/feed+json; charset=utf-8", w.Header().Get("Content-Type"))

	var feed struct {
		Version string `json:"version"`
		Title   string `json:"title"`
		FeedURL string `json:"feed_url"`
		Items   []struct {
			URL         string   `json:"url"`
			Title       string   `json:"title"`
			ContentHTML string   `json:"content_html"`
			Tags        []string `json:"tags"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &feed))
	assert.Equal(t, "https://jsonfeed.org/version/1", feed.Version)
	assert.Equal(t, "https://clydetadiwa.com/feed.json", feed.FeedURL)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "https://clydetadiwa.com/blog/live-post", feed.Items[0].URL)
	assert.Equal(t, "<p>Body</p>", feed.Items[0].ContentHTML)
	assert.Equal(t, []string{"go"}, feed.Items[0].Tags)
}

// ---------- Subscribers ----------

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"success", `{"email":"reader@example.com"}`, http.StatusCreated},
		{"invalid email", `{"email":"not-an-email"}`, http.StatusBadRequest},
		{"empty", `{"email":""}`, http.StatusBadRequest},
		{"invalid JSON", `{bad`, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(tc.body)))
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestSubscribeDuplicate(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{"email":"reader@example.com"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	// Same address with different casing is still a duplicate.
	w = h.do(httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{"email":"Reader@Example.com"}`)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminSubscribers(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodPost, "/subscribe", strings.NewReader(`{"email":"reader@example.com"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = h.do(h.authed(t, http.MethodGet, "/admin/subscribers", ""))
	require.Equal(t, http.StatusOK, w.Code)
	var subs []storage.Subscriber
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subs))
	require.Len(t, subs, 1)

	w = h.do(h.authed(t, http.MethodDelete, "/admin/subscribers/1", ""))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(h.authed(t, http.MethodDelete, "/admin/subscribers/1", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---------- Mail ----------

func TestTestEmailWithoutTransport(t *testing.T) {
	h := newHarness(t)

	w := h.do(h.authed(t, http.MethodPost, "/admin/test-email", `{"to":"clyde@example.com"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListNotifications(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.deliveryLog.Log(context.Background(), storage.DeliveryLogEntry{
		EntityKind: "post",
		EntityID:   1,
		Subject:    "✨ New Blog Post Alert: Hello is Now Live!",
		Recipients: 2,
		Sent:       2,
		Status:     "sent",
	}))

	w := h.do(h.authed(t, http.MethodGet, "/admin/notifications", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var entries []storage.DeliveryLogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "sent", entries[0].Status)

	w = h.do(h.authed(t, http.MethodGet, "/admin/notifications?limit=0", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------- Response format ----------

func TestErrorResponseFormat(t *testing.T) {
	h := newHarness(t)

	w := h.do(httptest.NewRequest(http.MethodGet, "/posts/no-such-post", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "post not found", result["error"])
}
