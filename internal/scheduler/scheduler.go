// Package scheduler promotes scheduled drafts to published posts. A post
// saved as a draft with a future PublishedAt goes live automatically once
// that time arrives.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/clydetadiwa/folio/internal/eventbus"
	"github.com/clydetadiwa/folio/internal/storage"
)

const pollInterval = time.Minute

// EventPublisher allows the scheduler to emit events without depending on a
// concrete event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}

// Config holds the scheduler configuration.
type Config struct {
	Posts  storage.PostStore
	Logger *slog.Logger
	// EventPublisher is optional. When set, a post-published event is
	// emitted for every promoted draft.
	EventPublisher EventPublisher
}

// Scheduler polls for due posts on a fixed interval using gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	cfg    Config
	logger *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	return &Scheduler{cron: cron, cfg: cfg, logger: cfg.Logger}, nil
}

// Start registers the publish job and starts the gocron scheduler. The first
// run fires immediately so posts that came due while the process was down
// are published on startup.
func (s *Scheduler) Start(_ context.Context) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(pollInterval),
		gocron.NewTask(s.publishDue),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduling publish job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("publish scheduler started", "poll_interval", pollInterval.String())
	return nil
}

// Stop shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// publishDue promotes every draft whose publish time has passed. Each post
// is handled independently so one failure does not block the rest.
func (s *Scheduler) publishDue() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	due, err := s.cfg.Posts.ListDuePublications(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("listing due publications", "error", err)
		return
	}

	for _, post := range due {
		if err := s.cfg.Posts.MarkPublished(ctx, post.ID); err != nil {
			s.logger.Error("publishing scheduled post",
				"post_id", post.ID, "slug", post.Slug, "error", err)
			continue
		}

		s.logger.Info("scheduled post published", "post_id", post.ID, "slug", post.Slug)

		if s.cfg.EventPublisher != nil {
			s.cfg.EventPublisher.Publish(eventbus.EventPostPublished, map[string]string{
				"id":   strconv.FormatInt(post.ID, 10),
				"slug": post.Slug,
			})
		}
	}
}
