package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/clydetadiwa/folio/internal/eventbus"
	"github.com/clydetadiwa/folio/internal/storage"
)

type postRequest struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	CoverImage  string     `json:"cover_image"`
	Excerpt     string     `json:"excerpt"`
	Content     string     `json:"content"`
	Tags        []string   `json:"tags"`
	Draft       bool       `json:"draft"`
	PublishedAt *time.Time `json:"published_at"`
}

func (r postRequest) validate() string {
	if r.Title == "" {
		return "title is required"
	}
	if r.Slug == "" {
		return "slug is required"
	}
	return ""
}

// ─── Public ───────────────────────────────────────────────────────────────────

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context(), false)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, err := s.posts.GetBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		s.logger.Error("get post failed", "slug", slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get post")
		return
	}
	if post.Draft {
		// Drafts are invisible on the public surface.
		writeError(w, http.StatusNotFound, "post not found")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// ─── Admin ────────────────────────────────────────────────────────────────────

func (s *Server) handleAdminListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context(), true)
	if err != nil {
		s.logger.Error("list posts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleAdminGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	post, err := s.posts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		s.logger.Error("get post failed", "post_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get post")
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	post := &storage.Post{
		Title:       req.Title,
		Slug:        req.Slug,
		CoverImage:  req.CoverImage,
		Excerpt:     req.Excerpt,
		Content:     req.Content,
		Tags:        req.Tags,
		Draft:       req.Draft,
		PublishedAt: req.PublishedAt,
	}
	if err := s.posts.Create(r.Context(), post); err != nil {
		if errors.Is(err, storage.ErrDuplicateSlug) {
			writeError(w, http.StatusConflict, "a post with this slug already exists")
			return
		}
		s.logger.Error("create post failed", "slug", req.Slug, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	post := &storage.Post{
		ID:          id,
		Title:       req.Title,
		Slug:        req.Slug,
		CoverImage:  req.CoverImage,
		Excerpt:     req.Excerpt,
		Content:     req.Content,
		Tags:        req.Tags,
		Draft:       req.Draft,
		PublishedAt: req.PublishedAt,
	}
	if err := s.posts.Update(r.Context(), post); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "post not found")
		case errors.Is(err, storage.ErrDuplicateSlug):
			writeError(w, http.StatusConflict, "a post with this slug already exists")
		default:
			s.logger.Error("update post failed", "post_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update post")
		}
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.posts.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		s.logger.Error("delete post failed", "post_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete post")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePublishPost promotes a draft to published and emits the event that
// drives subscriber notifications. The response never waits on listeners.
func (s *Server) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	post, err := s.posts.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "post not found")
			return
		}
		s.logger.Error("get post failed", "post_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get post")
		return
	}
	if !post.Draft {
		writeError(w, http.StatusConflict, "post is already published")
		return
	}

	if err := s.posts.MarkPublished(r.Context(), id); err != nil {
		s.logger.Error("publish post failed", "post_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to publish post")
		return
	}

	if s.events != nil {
		s.events.Publish(eventbus.EventPostPublished, map[string]string{
			"id":   strconv.FormatInt(id, 10),
			"slug": post.Slug,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "published"})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
