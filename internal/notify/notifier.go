// Package notify reacts to content-publish events by fanning an
// announcement email out to the subscriber list. Failures are logged and
// recorded, never propagated: email trouble must not fail a publish.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/clydetadiwa/folio/internal/eventbus"
	"github.com/clydetadiwa/folio/internal/mailer"
	"github.com/clydetadiwa/folio/internal/storage"
)

// Dispatcher sends a batch of messages and reports the aggregate outcome.
type Dispatcher interface {
	Dispatch(ctx context.Context, messages []mailer.Message) mailer.DispatchResult
}

// Config holds the Notifier's dependencies.
type Config struct {
	Posts       storage.PostStore
	Projects    storage.ProjectStore
	Subscribers storage.SubscriberStore
	DeliveryLog storage.DeliveryLogStore
	Dispatcher  Dispatcher
	Logger      *slog.Logger
	SiteBaseURL string
	SiteName    string
}

// Notifier drives the notification pipeline for published content.
type Notifier struct {
	cfg Config

	postReads       *repoCache[int64, *storage.Post]
	projectReads    *repoCache[int64, *storage.Project]
	subscriberReads *repoCache[struct{}, []storage.Subscriber]
}

// Repository reads are retried a couple of times with a short pause; the
// subscriber list is additionally memoized briefly so back-to-back
// publishes reuse one read.
const (
	readAttempts   = 3
	readRetryDelay = 250 * time.Millisecond
	subscriberTTL  = 30 * time.Second
)

// New creates a Notifier.
func New(cfg Config) *Notifier {
	n := &Notifier{cfg: cfg}
	n.postReads = newRepoCache(subscriberTTL, readAttempts, readRetryDelay,
		func(ctx context.Context, id int64) (*storage.Post, error) {
			return cfg.Posts.Get(ctx, id)
		})
	n.projectReads = newRepoCache(subscriberTTL, readAttempts, readRetryDelay,
		func(ctx context.Context, id int64) (*storage.Project, error) {
			return cfg.Projects.Get(ctx, id)
		})
	n.subscriberReads = newRepoCache(subscriberTTL, readAttempts, readRetryDelay,
		func(ctx context.Context, _ struct{}) ([]storage.Subscriber, error) {
			return cfg.Subscribers.List(ctx)
		})
	return n
}

// Register subscribes the notifier to content-publish events on the bus.
// Listeners run on the bus's workers, detached from the publishing request.
func (n *Notifier) Register(bus eventbus.EventBus) {
	bus.Subscribe(n.handleEvent)
}

func (n *Notifier) handleEvent(e eventbus.Event) {
	id, err := strconv.ParseInt(e.Payload["id"], 10, 64)
	if err != nil {
		n.cfg.Logger.Error("event payload has no usable id",
			slog.String("event", e.Type), slog.Any("error", err))
		return
	}

	// The triggering HTTP request has already responded; this context only
	// inherits the process lifetime.
	ctx := context.Background()

	switch e.Type {
	case eventbus.EventPostPublished:
		n.PostPublished(ctx, id)
	case eventbus.EventProjectPublished:
		n.ProjectPublished(ctx, id)
	}
}

// PostPublished notifies all subscribers about a newly published blog post.
// Every failure path logs and returns; nothing propagates to the caller.
func (n *Notifier) PostPublished(ctx context.Context, id int64) {
	post, err := n.postReads.Get(ctx, id)
	if err != nil {
		n.logEntityError("post", id, err)
		return
	}

	subject, body, err := renderPostEmail(post, n.cfg.SiteBaseURL, n.cfg.SiteName)
	if err != nil {
		n.cfg.Logger.Error("rendering post email", slog.Int64("post_id", id), slog.Any("error", err))
		return
	}

	n.fanOut(ctx, "post", id, subject, body)
}

// ProjectPublished notifies all subscribers about a new project.
func (n *Notifier) ProjectPublished(ctx context.Context, id int64) {
	project, err := n.projectReads.Get(ctx, id)
	if err != nil {
		n.logEntityError("project", id, err)
		return
	}

	subject, body, err := renderProjectEmail(project, n.cfg.SiteBaseURL, n.cfg.SiteName)
	if err != nil {
		n.cfg.Logger.Error("rendering project email", slog.Int64("project_id", id), slog.Any("error", err))
		return
	}

	n.fanOut(ctx, "project", id, subject, body)
}

// fanOut builds one message per subscriber and hands the batch to the
// dispatcher, then records the aggregate outcome.
func (n *Notifier) fanOut(ctx context.Context, kind string, id int64, subject, body string) {
	subs, err := n.subscriberReads.Get(ctx, struct{}{})
	if err != nil {
		n.cfg.Logger.Error("loading subscribers",
			slog.String("entity", kind), slog.Int64("id", id), slog.Any("error", err))
		return
	}
	if len(subs) == 0 {
		n.cfg.Logger.Info("no subscribers, skipping notification",
			slog.String("entity", kind), slog.Int64("id", id))
		return
	}

	messages := make([]mailer.Message, 0, len(subs))
	for _, s := range subs {
		messages = append(messages, mailer.Message{To: s.Email, Subject: subject, HTMLBody: body})
	}

	result := n.cfg.Dispatcher.Dispatch(ctx, messages)

	n.cfg.Logger.Info("notification batch finished",
		slog.String("entity", kind),
		slog.Int64("id", id),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)

	n.recordOutcome(ctx, kind, id, subject, len(messages), result)
}

func (n *Notifier) logEntityError(kind string, id int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		n.cfg.Logger.Warn("entity not found, skipping notification",
			slog.String("entity", kind), slog.Int64("id", id))
		return
	}
	n.cfg.Logger.Error("loading entity for notification",
		slog.String("entity", kind), slog.Int64("id", id), slog.Any("error", err))
}

// recordOutcome persists the batch result to the delivery log. A logging
// failure here is itself only logged.
func (n *Notifier) recordOutcome(ctx context.Context, kind string, id int64, subject string, recipients int, result mailer.DispatchResult) {
	if n.cfg.DeliveryLog == nil {
		return
	}

	status := "sent"
	switch {
	case result.Sent == 0 && result.Failed > 0:
		status = "failed"
	case result.Failed > 0:
		status = "partial"
	}

	entry := storage.DeliveryLogEntry{
		EntityKind: kind,
		EntityID:   id,
		Subject:    subject,
		Recipients: recipients,
		Sent:       result.Sent,
		Failed:     result.Failed,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	if err := n.cfg.DeliveryLog.Log(ctx, entry); err != nil {
		n.cfg.Logger.Error("recording delivery log", slog.Any("error", err))
	}
}
