package api

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/clydetadiwa/folio/internal/storage"
)

// SEO discovery endpoints. All of them render the published-post list, so
// they share the public read path with GET /api/posts.

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context(), false)
	if err != nil {
		s.logger.Error("sitemap post listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate sitemap")
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	locs := []string{
		s.siteBaseURL + "/",
		s.siteBaseURL + "/projects",
		s.siteBaseURL + "/blog",
	}
	for _, p := range posts {
		locs = append(locs, s.siteBaseURL+"/blog/"+p.Slug)
	}

	sm := sitemap{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, loc := range locs {
		sm.URLs = append(sm.URLs, sitemapURL{
			Loc:        loc,
			LastMod:    now,
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}

	writeXML(w, "application/xml", sm)
}

func (s *Server) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "User-agent: *\nAllow: /\nSitemap: %s/sitemap.xml\n", s.siteBaseURL)
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context(), false)
	if err != nil {
		s.logger.Error("rss post listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate feed")
		return
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       s.siteName,
			Link:        s.siteBaseURL + "/blog",
			Description: "Latest posts",
		},
	}
	for _, p := range posts {
		link := s.siteBaseURL + "/blog/" + p.Slug
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       p.Title,
			Link:        link,
			GUID:        link,
			PubDate:     postPublished(p).UTC().Format(time.RFC1123Z),
			Description: p.Excerpt,
		})
	}

	writeXML(w, "application/rss+xml; charset=utf-8", feed)
}

// jsonFeedItem follows the JSON Feed v1 item shape.
type jsonFeedItem struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	ContentHTML   string   `json:"content_html"`
	Summary       string   `json:"summary"`
	DatePublished string   `json:"date_published"`
	Tags          []string `json:"tags,omitempty"`
	Image         string   `json:"image,omitempty"`
}

type jsonFeed struct {
	Version     string         `json:"version"`
	Title       string         `json:"title"`
	HomePageURL string         `json:"home_page_url"`
	FeedURL     string         `json:"feed_url"`
	Items       []jsonFeedItem `json:"items"`
}

func (s *Server) handleJSONFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.List(r.Context(), false)
	if err != nil {
		s.logger.Error("json feed post listing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate feed")
		return
	}

	feed := jsonFeed{
		Version:     "https://jsonfeed.org/version/1",
		Title:       s.siteName,
		HomePageURL: s.siteBaseURL + "/blog",
		FeedURL:     s.siteBaseURL + "/feed.json",
		Items:       []jsonFeedItem{},
	}
	for _, p := range posts {
		link := s.siteBaseURL + "/blog/" + p.Slug
		feed.Items = append(feed.Items, jsonFeedItem{
			ID:            link,
			URL:           link,
			Title:         p.Title,
			ContentHTML:   p.Content,
			Summary:       p.Excerpt,
			DatePublished: postPublished(p).UTC().Format(time.RFC3339),
			Tags:          p.Tags,
			Image:         p.CoverImage,
		})
	}

	w.Header().Set("Content-Type", "application/feed+json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(feed)
}

func postPublished(p storage.Post) time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

func writeXML(w http.ResponseWriter, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}
