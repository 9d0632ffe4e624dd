package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/clydetadiwa/folio/internal/config"
)

// smtpCallTimeout bounds connect, handshake and greeting for one delivery.
const smtpCallTimeout = 45 * time.Second

// SMTPTransport delivers mail through a direct SMTP relay using go-mail.
type SMTPTransport struct {
	cfg config.Transport
}

// NewSMTPTransport creates an SMTPTransport for the given resolved config.
func NewSMTPTransport(cfg config.Transport) *SMTPTransport {
	return &SMTPTransport{cfg: cfg}
}

// Kind returns the transport variant identifier.
func (t *SMTPTransport) Kind() config.TransportKind { return config.TransportSMTP }

// Send delivers msg over SMTP. A fresh client is constructed per call so no
// connection state is shared between concurrent workers. The dial step
// verifies connectivity and authentication before any delivery is attempted,
// and the connection is closed on every exit path.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.FromFormat(t.cfg.FromName, t.cfg.From); err != nil {
		return &TransportError{Kind: KindUnknown, Err: fmt.Errorf("invalid from address: %w", err)}
	}
	if err := m.To(msg.To); err != nil {
		return &TransportError{Kind: KindUnknown, Err: fmt.Errorf("invalid recipient %q: %w", msg.To, err)}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	c, err := mail.NewClient(t.cfg.Host,
		mail.WithPort(t.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.cfg.Username),
		mail.WithPassword(t.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(smtpCallTimeout),
	)
	if err != nil {
		return &TransportError{Kind: KindUnknown, Err: fmt.Errorf("creating mail client: %w", err)}
	}

	if err := c.DialWithContext(ctx); err != nil {
		return classify(err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Send(m); err != nil {
		return classify(err)
	}
	return nil
}
