package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/extrato-relay/internal/relay"
)

const defaultEventLimit = 50

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "extrato-relay",
	}

	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleLastRun(w http.ResponseWriter, r *http.Request) {
	last := s.runs.Last()
	if last == nil {
		s.writeError(w, http.StatusNotFound, "no run has finished yet")
		return
	}
	s.writeJSON(w, http.StatusOK, last)
}

// handleTriggerRun starts a run in the background. The run is bound to the
// server's run context, not to the request.
func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	if s.runs.Busy() {
		s.writeError(w, http.StatusConflict, relay.ErrRunInProgress.Error())
		return
	}

	go func() {
		_, err := s.runs.Run(s.runCtx)
		switch {
		case errors.Is(err, relay.ErrRunInProgress):
			s.log.Info().Msg("Triggered run dropped, another run started first")
		case err != nil:
			s.log.Error().Err(err).Msg("Triggered run failed")
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "accepted",
	})
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		s.writeError(w, http.StatusNotFound, "events are not recorded")
		return
	}

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": s.events.Recent(limit),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, s.log)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
