package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"

	"github.com/clydetadiwa/folio/internal/storage"
)

type subscribeRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}

	sub, err := s.subscribers.Add(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "email is already subscribed")
			return
		}
		s.logger.Error("subscribe failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := s.subscribers.List(r.Context())
	if err != nil {
		s.logger.Error("list subscribers failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscribers")
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleDeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := s.subscribers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "subscriber not found")
			return
		}
		s.logger.Error("delete subscriber failed", "subscriber_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscriber")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
