// Package mailer implements outbound email delivery: a transport abstraction
// over SMTP and a transactional HTTP API, a bounded-retry wrapper with
// exponential backoff, and a concurrency-limited batch dispatcher.
package mailer

import (
	"context"

	"github.com/clydetadiwa/folio/internal/config"
)

// Message is one outbound email. It is an immutable value constructed fresh
// per notification event and never persisted.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Transport delivers exactly one Message through the configured backend.
// Implementations classify every failure into a *TransportError.
type Transport interface {
	// Kind identifies the active backend variant.
	Kind() config.TransportKind
	// Send delivers the message. The context bounds the whole network
	// exchange; implementations must release any connection they open on
	// every exit path.
	Send(ctx context.Context, msg Message) error
}

// NewTransport constructs the Transport for the resolved configuration
// variant. Selection happened once at startup in config.ResolveTransport;
// this function only maps the variant to its implementation.
func NewTransport(cfg config.Transport) Transport {
	if cfg.Kind == config.TransportAPI {
		return NewAPITransport(cfg)
	}
	return NewSMTPTransport(cfg)
}
