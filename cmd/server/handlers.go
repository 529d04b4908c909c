package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lychee-technology/scorekeep"
	"go.uber.org/zap"
)

// matchRequest is the body of POST /api/v1/boardgames/{id}/matches/validate
type matchRequest struct {
	Results  json.RawMessage `json:"results"`
	Metadata json.RawMessage `json:"metadata"`
}

// handleRegister handles POST /api/v1/boardgames
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req scorekeep.RegisterBoardgameRequest
	if err := readJSONBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, scorekeep.ErrCodeInvalidJSON, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	game, err := s.manager.Register(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, game)
}

// handleGet handles GET /api/v1/boardgames/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := boardgameID(w, r)
	if !ok {
		return
	}

	game, err := s.manager.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, game)
}

// handleSearch handles GET /api/v1/boardgames?search=...&limit=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ids, err := s.manager.Search(r.Context(), query.Get("search"), parseLimit(query.Get("limit")))
	if err != nil {
		writeError(w, err)
		return
	}

	games := make([]*scorekeep.Boardgame, 0, len(ids))
	for _, id := range ids {
		game, err := s.manager.Get(r.Context(), id)
		if err != nil {
			if scorekeep.IsNotFoundError(err) {
				// the name index can trail deletions until its next rebuild
				continue
			}
			writeError(w, err)
			return
		}
		games = append(games, game)
	}
	writeSuccess(w, http.StatusOK, games)
}

// handleNames handles GET /api/v1/boardgames/names
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.manager.Names(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, names)
}

// handleValidateMatch handles POST /api/v1/boardgames/{id}/matches/validate
func (s *Server) handleValidateMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := boardgameID(w, r)
	if !ok {
		return
	}

	var req matchRequest
	if err := readJSONBody(r, &req); err != nil {
		writeErrorCode(w, http.StatusBadRequest, scorekeep.ErrCodeInvalidJSON, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	err := s.manager.ValidateMatch(r.Context(), &scorekeep.MatchSubmission{
		BoardgameID: id,
		Results:     rawOrNil(req.Results),
		Metadata:    rawOrNil(req.Metadata),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleValidateSchema handles POST /api/v1/schemas/results/validate
func (s *Server) handleValidateSchema(w http.ResponseWriter, r *http.Request) {
	var candidate json.RawMessage
	if err := readJSONBody(r, &candidate); err != nil {
		writeErrorCode(w, http.StatusBadRequest, scorekeep.ErrCodeInvalidJSON, fmt.Sprintf("invalid json body: %v", err))
		return
	}

	if err := s.manager.ValidateResultsSchema(candidate); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]bool{"valid": true})
}

// handleHealth handles GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			zap.S().Warnw("health check failed", "error", err)
			writeSuccess(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func boardgameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUID(chi.URLParam(r, "id"))
	if err != nil {
		writeErrorCode(w, http.StatusBadRequest, scorekeep.ErrCodeBadUserInput, fmt.Sprintf("invalid boardgame id: %v", err))
		return uuid.Nil, false
	}
	return id, true
}
