package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/leadbot/internal/conversation"
	"github.com/MikeSquared-Agency/leadbot/internal/lead"
	"github.com/MikeSquared-Agency/leadbot/internal/sessions"
)

type sessionResponse struct {
	ID            string              `json:"id"`
	Status        lead.Status         `json:"status"`
	Lead          lead.Fields         `json:"lead"`
	TurnCount     int                 `json:"turn_count"`
	ActivePersona lead.Persona        `json:"active_persona"`
	InputDisabled bool                `json:"input_disabled"`
	Transcript    []conversation.Turn `json:"transcript"`
	CreatedAt     time.Time           `json:"created_at"`
	LastActive    time.Time           `json:"last_active"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply         string              `json:"reply"`
	Persona       lead.Persona        `json:"persona"`
	Captured      bool                `json:"captured"`
	Status        lead.Status         `json:"status"`
	Lead          lead.Fields         `json:"lead"`
	Notice        string              `json:"notice,omitempty"`
	Appended      string              `json:"appended,omitempty"`
	InputDisabled bool                `json:"input_disabled"`
	Failed        bool                `json:"failed"`
	Transcript    []conversation.Turn `json:"transcript"`
}

func toSessionResponse(info sessions.Info) sessionResponse {
	return sessionResponse{
		ID:            info.ID.String(),
		Status:        info.State.Status,
		Lead:          info.State.Fields,
		TurnCount:     info.State.TurnCount,
		ActivePersona: info.State.ActivePersona,
		InputDisabled: info.State.InputDisabled,
		Transcript:    info.State.Transcript,
		CreatedAt:     info.CreatedAt,
		LastActive:    info.LastActive,
	}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Create()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(info))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	info, err := s.sessions.Get(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(info))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(id); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	info, err := s.sessions.Reset(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(info))
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, info, err := s.sessions.Turn(r.Context(), id, req.Text)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{
		Reply:         res.Reply,
		Persona:       res.Persona,
		Captured:      res.Captured,
		Status:        res.Status,
		Lead:          res.Fields,
		Notice:        res.Notice,
		Appended:      res.Appended,
		InputDisabled: res.InputDisabled,
		Failed:        res.Failed,
		Transcript:    info.State.Transcript,
	})
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lead.ErrInputDisabled):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, lead.ErrEmptyUtterance):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
