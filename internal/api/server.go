package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/clydetadiwa/folio/internal/mailer"
	"github.com/clydetadiwa/folio/internal/storage"
)

// EventPublisher lets publish handlers emit events without depending on a
// concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Server holds all dependencies for the REST API handlers.
type Server struct {
	posts       storage.PostStore
	projects    storage.ProjectStore
	subscribers storage.SubscriberStore
	admins      storage.AdminStore
	deliveryLog storage.DeliveryLogStore
	// transport is nil when no mail credentials are configured; the
	// test-email endpoint reports that instead of failing.
	transport   mailer.Transport
	events      EventPublisher
	jwtSecret   []byte
	siteBaseURL string
	siteName    string
	logger      *slog.Logger
}

// Config bundles the Server's dependencies.
type Config struct {
	Posts       storage.PostStore
	Projects    storage.ProjectStore
	Subscribers storage.SubscriberStore
	Admins      storage.AdminStore
	DeliveryLog storage.DeliveryLogStore
	Transport   mailer.Transport
	Events      EventPublisher
	JWTSecret   string
	SiteBaseURL string
	SiteName    string
	Logger      *slog.Logger
}

// New creates a new API Server backed by the provided stores.
func New(cfg Config) *Server {
	return &Server{
		posts:       cfg.Posts,
		projects:    cfg.Projects,
		subscribers: cfg.Subscribers,
		admins:      cfg.Admins,
		deliveryLog: cfg.DeliveryLog,
		transport:   cfg.Transport,
		events:      cfg.Events,
		jwtSecret:   []byte(cfg.JWTSecret),
		siteBaseURL: strings.TrimRight(cfg.SiteBaseURL, "/"),
		siteName:    cfg.SiteName,
		logger:      cfg.Logger,
	}
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Public site surface
	r.Get("/posts", s.handleListPosts)
	r.Get("/posts/{slug}", s.handleGetPost)
	r.Get("/projects", s.handleListProjects)
	r.Get("/projects/{id}", s.handleGetProject)
	r.Post("/subscribe", s.handleSubscribe)

	r.Post("/admin/login", s.handleLogin)

	// Admin CMS, JWT-protected
	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/posts", s.handleAdminListPosts)
		r.Post("/posts", s.handleCreatePost)
		r.Get("/posts/{id}", s.handleAdminGetPost)
		r.Put("/posts/{id}", s.handleUpdatePost)
		r.Delete("/posts/{id}", s.handleDeletePost)
		r.Post("/posts/{id}/publish", s.handlePublishPost)

		r.Post("/projects", s.handleCreateProject)
		r.Put("/projects/{id}", s.handleUpdateProject)
		r.Delete("/projects/{id}", s.handleDeleteProject)
		r.Post("/projects/{id}/publish", s.handlePublishProject)

		r.Get("/subscribers", s.handleListSubscribers)
		r.Delete("/subscribers/{id}", s.handleDeleteSubscriber)

		r.Post("/test-email", s.handleTestEmail)
		r.Get("/notifications", s.handleListNotifications)
	})
}

// MountFeeds registers the SEO discovery surface at the site root, outside
// the /api prefix.
func (s *Server) MountFeeds(r chi.Router) {
	r.Get("/sitemap.xml", s.handleSitemap)
	r.Get("/robots.txt", s.handleRobots)
	r.Get("/rss.xml", s.handleRSS)
	r.Get("/feed.json", s.handleJSONFeed)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
