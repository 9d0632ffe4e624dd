package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strconv"

	"github.com/clydetadiwa/folio/internal/mailer"
)

type testEmailRequest struct {
	To string `json:"to"`
}

// handleTestEmail sends a single probe message through the configured
// transport. This is the only endpoint where an email failure is surfaced
// to a user, so the classified message goes in the response.
func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	if s.transport == nil {
		writeError(w, http.StatusServiceUnavailable, "no mail transport is configured")
		return
	}

	var req testEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := mail.ParseAddress(req.To); err != nil {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}

	msg := mailer.Message{
		To:       req.To,
		Subject:  "Test email",
		HTMLBody: "<p>Your mail transport is working.</p>",
	}
	if err := mailer.SendWithRetry(r.Context(), s.transport, msg, mailer.DefaultRetryPolicy(s.transport.Kind())); err != nil {
		s.logger.Error("test email failed", "to", req.To, "error", err)

		var te *mailer.TransportError
		if errors.As(err, &te) {
			writeError(w, http.StatusBadGateway, te.UserMessage())
			return
		}
		writeError(w, http.StatusBadGateway, "failed to send test email")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "to": req.To})
}

// handleListNotifications returns recent delivery log entries, newest first.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := s.deliveryLog.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("list delivery log failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
