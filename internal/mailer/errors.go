package mailer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"syscall"
)

// ErrorKind classifies a transport-level delivery failure.
type ErrorKind string

const (
	// KindDNSResolution means the mail host could not be resolved.
	KindDNSResolution ErrorKind = "dns_resolution_failed"
	// KindAuthentication means the server rejected the credentials.
	KindAuthentication ErrorKind = "authentication_failed"
	// KindConnectionTimeout means connect or handshake exceeded its deadline.
	KindConnectionTimeout ErrorKind = "connection_timed_out"
	// KindTLSHandshake means socket or TLS negotiation failed.
	KindTLSHandshake ErrorKind = "tls_handshake_failed"
	// KindConnectionRefused means the remote actively refused the connection.
	KindConnectionRefused ErrorKind = "connection_refused"
	// KindProvider means the API backend returned a structured error.
	KindProvider ErrorKind = "provider_error"
	// KindUnknown covers everything else.
	KindUnknown ErrorKind = "unknown_transport_error"
)

// TransportError is the uniform failure raised by every Transport. The
// retry wrapper propagates it unchanged; only the Kind is inspected.
type TransportError struct {
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// UserMessage returns a human-readable explanation suitable for surfacing
// to an admin (the test-email endpoint is the only such path).
func (e *TransportError) UserMessage() string {
	switch e.Kind {
	case KindDNSResolution:
		return "Failed to connect to the email server: DNS resolution failed. Check the configured host."
	case KindAuthentication:
		return "Email authentication failed. If you use Gmail SMTP, make sure you are using an App Password."
	case KindConnectionTimeout:
		return "The email server connection timed out. Network issue detected."
	case KindTLSHandshake:
		return "Socket connection error: the TLS handshake failed."
	case KindConnectionRefused:
		return "The email server refused the connection."
	case KindProvider:
		return fmt.Sprintf("The email provider rejected the request: %v", e.Err)
	default:
		return fmt.Sprintf("Email delivery failed: %v", e.Err)
	}
}

// classify maps an arbitrary send failure onto a TransportError. Typed
// network errors are matched first; string matching on the SMTP dialogue is
// the fallback for conditions the smtp client reports as plain errors.
func classify(err error) *TransportError {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: KindDNSResolution, Err: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &TransportError{Kind: KindConnectionRefused, Err: err}
	}

	// The smtp client surfaces server replies as textproto errors; the
	// 53x family covers rejected or missing credentials.
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch tpErr.Code {
		case 530, 534, 535, 538:
			return &TransportError{Kind: KindAuthentication, Err: err}
		}
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) || errors.As(err, &unknownAuthErr) {
		return &TransportError{Kind: KindTLSHandshake, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindConnectionTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransportError{Kind: KindConnectionTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"):
		return &TransportError{Kind: KindDNSResolution, Err: err}
	case strings.Contains(msg, "535") ||
		strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "username and password not accepted"):
		// 535 is the SMTP "authentication credentials invalid" reply code.
		// Matching must stay narrow: auth failures are never retried, so a
		// bare "auth" substring would turn transient errors that merely
		// mention AUTH into terminal ones.
		return &TransportError{Kind: KindAuthentication, Err: err}
	case strings.Contains(msg, "connection refused"):
		return &TransportError{Kind: KindConnectionRefused, Err: err}
	case strings.Contains(msg, "tls") || strings.Contains(msg, "handshake"):
		return &TransportError{Kind: KindTLSHandshake, Err: err}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		return &TransportError{Kind: KindConnectionTimeout, Err: err}
	}

	return &TransportError{Kind: KindUnknown, Err: err}
}
