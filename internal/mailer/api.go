package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clydetadiwa/folio/internal/config"
)

// apiCallTimeout bounds one request to the transactional email API.
const apiCallTimeout = 30 * time.Second

// APITransport delivers mail through a Resend-compatible transactional API:
// POST {base}/emails with bearer authentication.
type APITransport struct {
	client *resty.Client
	from   string
}

// apiSendRequest is the JSON payload of one send call.
type apiSendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// apiError is the structured error body the provider returns on failure.
type apiError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

// NewAPITransport creates an APITransport for the given resolved config.
func NewAPITransport(cfg config.Transport) *APITransport {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(apiCallTimeout).
		SetHeader("Content-Type", "application/json")

	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	return &APITransport{client: client, from: from}
}

// Kind returns the transport variant identifier.
func (t *APITransport) Kind() config.TransportKind { return config.TransportAPI }

// Send delivers msg through the API. A non-error response is success; a
// structured error body or any transport-level failure is classified.
func (t *APITransport) Send(ctx context.Context, msg Message) error {
	var provErr apiError

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(apiSendRequest{
			From:    t.from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    msg.HTMLBody,
		}).
		SetError(&provErr).
		Post("/emails")
	if err != nil {
		return classify(err)
	}

	if resp.IsError() {
		if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
			return &TransportError{
				Kind: KindAuthentication,
				Err:  fmt.Errorf("provider rejected API key: %s", resp.Status()),
			}
		}
		detail := provErr.Message
		if detail == "" {
			detail = resp.Status()
		}
		return &TransportError{Kind: KindProvider, Err: fmt.Errorf("%s", detail)}
	}

	return nil
}
