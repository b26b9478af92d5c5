package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/leadbot/internal/lead"
)

const operatorHeader = "X-Leadbot-Operator"

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

// putSettings decodes the body over the current settings, so omitted
// fields keep their values.
func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	cfg := s.settings.Current()
	if cfg.AppendAfter != nil {
		n := *cfg.AppendAfter
		cfg.AppendAfter = &n
	}
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	updatedBy := r.Header.Get(operatorHeader)
	if updatedBy == "" {
		updatedBy = "api"
	}

	applied, err := s.settings.Update(r.Context(), cfg, updatedBy)
	if err != nil {
		if errors.Is(err, lead.ErrInvalidConfig) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, applied)
}
